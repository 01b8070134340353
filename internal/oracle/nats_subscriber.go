package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
)

// DefaultSubject is the JetStream subject published reference-price
// snapshots are expected on.
const DefaultSubject = "convexfx.oracle.refprices"

// wireSnapshot is the published message shape: a plain map keyed by the
// asset's three-letter code, since asset.Id is a position in the asset
// table and would change if that table were reordered, while the code
// would not.
type wireSnapshot struct {
	YRef        map[string]float64 `json:"y_ref"`
	BandBps     float64            `json:"band_bps"`
	TimestampMs int64              `json:"timestamp_ms"`
	Providers   []string           `json:"providers"`
}

// Subscriber consumes published reference-price snapshots from a NATS
// JetStream subject and serves the most recently received one. Oracle
// price discovery itself is out of scope (spec non-goal); this only
// ingests what another process has already published.
type Subscriber struct {
	mu      sync.RWMutex
	current RefPrices
	have    bool

	js      jetstream.JetStream
	subject string
}

// NewSubscriber wraps an already-connected NATS client.
func NewSubscriber(nc *nats.Conn, subject string) (*Subscriber, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("oracle: jetstream: %w", err)
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return &Subscriber{js: js, subject: subject}, nil
}

// Run consumes snapshots until ctx is cancelled. It creates an unnamed
// consumer on the subject with a deliver-last policy, so a restart simply
// resumes from the latest message rather than replaying history.
func (s *Subscriber) Run(ctx context.Context, streamName string) error {
	stream, err := s.js.Stream(ctx, streamName)
	if err != nil {
		return fmt.Errorf("oracle: stream %q: %w", streamName, err)
	}
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: s.subject,
		DeliverPolicy: jetstream.DeliverLastPolicy,
		AckPolicy:     jetstream.AckNonePolicy,
	})
	if err != nil {
		return fmt.Errorf("oracle: consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		s.handle(msg.Data())
	})
	if err != nil {
		return fmt.Errorf("oracle: consume: %w", err)
	}
	defer consumeCtx.Stop()

	<-ctx.Done()
	return ctx.Err()
}

func (s *Subscriber) handle(data []byte) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return
	}
	yRef := make(map[asset.Id]float64, len(w.YRef))
	for code, v := range w.YRef {
		a, err := asset.FromString(code)
		if err != nil {
			continue
		}
		yRef[a] = v
	}
	snap := New(yRef, w.BandBps, w.TimestampMs, w.Providers)

	s.mu.Lock()
	s.current = snap
	s.have = true
	s.mu.Unlock()
}

// ReferencePrices returns the most recently ingested snapshot; the
// subscriber has no per-epoch history, so epochID is ignored.
func (s *Subscriber) ReferencePrices(epochID uint64) (RefPrices, error) {
	return s.CurrentPrices()
}

// CurrentPrices returns the most recently ingested snapshot.
func (s *Subscriber) CurrentPrices() (RefPrices, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.have {
		return RefPrices{}, fmt.Errorf("oracle: no snapshot received yet")
	}
	return s.current, nil
}

// Age returns how long ago the current snapshot was published.
func (s *Subscriber) Age(now time.Time) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.have {
		return 0, false
	}
	return now.Sub(time.UnixMilli(s.current.TimestampMs)), true
}
