// Package api provides the HTTP handlers for epoch order submission,
// clearing, and querying cleared solutions and balances.
//
// REST wire shape is explicitly out of scope (non-goal): this layer
// exists only as the sketched consumer/producer surface described by
// the clearing engine's interfaces, kept intentionally thin and not
// exercised by the correctness tests.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
	"github.com/OleSpjeldnas/ConvexFX/internal/clearing"
	"github.com/OleSpjeldnas/ConvexFX/internal/ledger"
	"github.com/OleSpjeldnas/ConvexFX/internal/metrics"
	"github.com/OleSpjeldnas/ConvexFX/internal/oracle"
	"github.com/OleSpjeldnas/ConvexFX/internal/order"
	"github.com/OleSpjeldnas/ConvexFX/internal/orderbook"
	"github.com/OleSpjeldnas/ConvexFX/internal/reporter"
	"github.com/OleSpjeldnas/ConvexFX/internal/risk"
	"github.com/OleSpjeldnas/ConvexFX/internal/store"
	"github.com/OleSpjeldnas/ConvexFX/internal/validate"
)

// PoolAccount is the ledger account representing the pool itself.
const PoolAccount ledger.AccountId = "pool"

// Service wires the order book, clearing engine, ledger, reporter, and
// store together behind an HTTP surface. Epoch clearing is serialized
// with a mutex, mirroring the teacher's single-instance trade.Service.
type Service struct {
	driver   *clearing.Driver
	oracle   oracle.Oracle
	risk     risk.Params
	ledger   ledger.Ledger
	reporter reporter.Reporter
	store    store.Store
	wsHub    *WSHub

	clearMu sync.Mutex

	mu        sync.Mutex
	books     map[uint64]*orderbook.Book
	witnesses map[uint64]reporter.Witness
}

// NewService creates a new clearing service. Pass nil for hub if
// WebSocket broadcasting is not needed.
func NewService(driver *clearing.Driver, o oracle.Oracle, riskParams risk.Params, l ledger.Ledger, r reporter.Reporter, st store.Store, hub *WSHub) *Service {
	return &Service{
		driver:    driver,
		oracle:    o,
		risk:      riskParams,
		ledger:    l,
		reporter:  r,
		store:     st,
		wsHub:     hub,
		books:     make(map[uint64]*orderbook.Book),
		witnesses: make(map[uint64]reporter.Witness),
	}
}

func (s *Service) bookFor(epochID uint64) *orderbook.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[epochID]
	if !ok {
		b = orderbook.New(epochID)
		s.books[epochID] = b
	}
	return b
}

// --- Request/Response types ---

// CommitRequest is the JSON body for POST /api/v1/epochs/{epochID}/commitments.
type CommitRequest struct {
	Hash        orderbook.CommitmentHash `json:"hash"`
	TimestampMs uint64                   `json:"timestamp_ms"`
}

// RevealRequest is the JSON body for POST /api/v1/epochs/{epochID}/orders.
type RevealRequest struct {
	Order order.Pair `json:"order"`
	Salt  []byte     `json:"salt"`
}

// ClearResponse is the JSON body returned from POST /api/v1/epochs/{epochID}/clear.
type ClearResponse struct {
	Solution clearing.EpochSolution `json:"solution"`
	Report   reporter.EpochReport   `json:"report"`
}

// --- HTTP handlers ---

// CommitOrder handles POST /api/v1/epochs/{epochID}/commitments.
func (s *Service) CommitOrder(w http.ResponseWriter, r *http.Request) {
	epochID, err := epochIDParam(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	book := s.bookFor(epochID)
	c := orderbook.Commitment{Hash: req.Hash, EpochID: epochID, TimestampMs: req.TimestampMs}
	if err := book.Commit(c); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// RevealOrder handles POST /api/v1/epochs/{epochID}/orders.
func (s *Service) RevealOrder(w http.ResponseWriter, r *http.Request) {
	epochID, err := epochIDParam(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req RevealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	book := s.bookFor(epochID)
	orderID, err := book.Reveal(req.Order, req.Salt)
	if err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"order_id": orderID})
}

// ClearEpoch handles POST /api/v1/epochs/{epochID}/clear. It freezes the
// epoch's order book, runs the SCP driver against the pool's current
// inventory and the oracle's reference prices, applies the resulting
// fills to the ledger, publishes an audit report, and broadcasts the
// cleared prices over the WebSocket hub.
func (s *Service) ClearEpoch(w http.ResponseWriter, r *http.Request) {
	s.clearMu.Lock()
	defer s.clearMu.Unlock()

	epochID, err := epochIDParam(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	s.mu.Lock()
	book, ok := s.books[epochID]
	s.mu.Unlock()
	if !ok {
		writeError(w, "no order book for epoch", http.StatusNotFound)
		return
	}

	refs, err := s.oracle.ReferencePrices(epochID)
	if err != nil {
		writeError(w, "oracle unavailable: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	inventoryQ := make([]float64, asset.N)
	for i, a := range asset.All {
		inventoryQ[i] = s.ledger.Balance(PoolAccount, a).Float64()
	}

	orders := book.Freeze()
	inst := clearing.EpochInstance{
		EpochID:    epochID,
		Orders:     orders,
		InventoryQ: inventoryQ,
		RefPrices:  refs,
		Risk:       s.risk.NormalizeGamma(refs),
	}

	start := time.Now()
	sol, err := s.driver.Clear(inst)
	metrics.ClearingLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		var ce *clearing.Error
		outcome := "solver_fail"
		if errors.As(err, &ce) {
			switch ce.Kind {
			case clearing.KindDidNotConverge:
				outcome = "did_not_converge"
			case clearing.KindInfeasible:
				outcome = "infeasible"
			case clearing.KindInvalidInstance:
				outcome = "invalid"
			}
		}
		metrics.EpochsClearedTotal.WithLabelValues(outcome).Inc()
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	metrics.EpochsClearedTotal.WithLabelValues("converged").Inc()
	metrics.ScpIterations.Observe(float64(sol.Diagnostics.Iterations))
	for i, a := range asset.All {
		metrics.PoolInventory.WithLabelValues(a.String()).Set(sol.InventoryPost[i] * sol.Price(a))
	}

	if violations := validate.CheckAll(sol, inst, validate.DefaultParams()); len(violations) > 0 {
		slog.Warn("cleared epoch failed local-law checks", "epoch_id", epochID, "violations", len(violations))
	}

	entries, err := ledger.ApplyFills(s.ledger, PoolAccount, inst, sol, time.Now().UTC())
	if err != nil {
		writeError(w, "failed to apply fills: "+err.Error(), http.StatusInternalServerError)
		return
	}
	for _, e := range entries {
		if err := s.store.InsertLedgerEntry(ctx, e); err != nil {
			slog.Error("failed to persist ledger entry", "epoch_id", epochID, "order_id", e.OrderID, "err", err)
		}
		metrics.FillsTotal.WithLabelValues(e.PayAsset.String(), e.ReceiveAsset.String()).Inc()
	}

	witness := reporter.BuildWitness(sol, inst)
	s.mu.Lock()
	s.witnesses[epochID] = witness
	s.mu.Unlock()

	report, err := s.reporter.Publish(epochID, inst, sol)
	if err != nil {
		writeError(w, "failed to publish report: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.store.SaveEpochReport(ctx, report); err != nil {
		slog.Error("failed to persist epoch report", "epoch_id", epochID, "err", err)
	}

	if s.wsHub != nil {
		prices := make(map[string]float64, len(asset.All))
		for _, a := range asset.All {
			prices[a.String()] = sol.Price(a)
		}
		s.wsHub.Broadcast(WSMessage{Type: "epoch_cleared", EpochID: epochID, Prices: prices, Fills: len(sol.Fills)})
	}

	slog.Info("epoch cleared",
		"epoch_id", epochID,
		"iterations", sol.Diagnostics.Iterations,
		"fills", len(sol.Fills),
		"objective", sol.Objective.Total,
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ClearResponse{Solution: sol, Report: report})
}

// GetEpochReport handles GET /api/v1/epochs/{epochID}.
func (s *Service) GetEpochReport(w http.ResponseWriter, r *http.Request) {
	epochID, err := epochIDParam(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	report, err := s.store.GetEpochReport(r.Context(), epochID)
	if err != nil {
		writeError(w, "epoch report not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// GetWitness handles GET /api/v1/epochs/{epochID}/witness.
func (s *Service) GetWitness(w http.ResponseWriter, r *http.Request) {
	epochID, err := epochIDParam(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	witness, ok := s.witnesses[epochID]
	s.mu.Unlock()
	if !ok {
		writeError(w, "witness not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(witness)
}

// GetBalance handles GET /api/v1/accounts/{accountID}/balance.
func (s *Service) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := ledger.AccountId(chi.URLParam(r, "accountID"))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.ledger.AccountBalances(accountID))
}

// GetPoolInventory handles GET /api/v1/inventory.
func (s *Service) GetPoolInventory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.ledger.AccountBalances(PoolAccount))
}

func epochIDParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "epochID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid epoch ID")
	}
	return id, nil
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
