package amount

import "testing"

func amt(units string) Amount {
	a, err := FromString(units)
	if err != nil {
		panic(err)
	}
	return a
}

func TestFromUnits(t *testing.T) {
	a := FromUnits(5)
	if got := a.String(); got != "5.000000000" {
		t.Fatalf("FromUnits(5).String() = %q", got)
	}
}

func TestFromStringRoundTrip(t *testing.T) {
	cases := []string{"0", "1", "-1", "123.456789", "-0.000000001"}
	for _, c := range cases {
		a, err := FromString(c)
		if err != nil {
			t.Fatalf("FromString(%q): %v", c, err)
		}
		back, err := FromString(a.String())
		if err != nil || back.Cmp(a) != 0 {
			t.Fatalf("round trip of %q via %q: got %v (err %v)", c, a.String(), back, err)
		}
	}
}

func TestAddSub(t *testing.T) {
	a := amt("10.5")
	b := amt("3.25")
	if got := a.Add(b).String(); got != "13.750000000" {
		t.Fatalf("Add = %q", got)
	}
	if got := a.Sub(b).String(); got != "7.250000000" {
		t.Fatalf("Sub = %q", got)
	}
}

func TestNegAbs(t *testing.T) {
	a := amt("-4.5")
	if !a.IsNegative() {
		t.Fatalf("expected negative")
	}
	if got := a.Abs().String(); got != "4.500000000" {
		t.Fatalf("Abs = %q", got)
	}
	if got := a.Neg().String(); got != "4.500000000" {
		t.Fatalf("Neg = %q", got)
	}
}

func TestCmp(t *testing.T) {
	if amt("1").Cmp(amt("2")) >= 0 {
		t.Fatalf("expected 1 < 2")
	}
	if amt("2").Cmp(amt("2")) != 0 {
		t.Fatalf("expected equal")
	}
}

func TestFromFloat64NonFinite(t *testing.T) {
	nan := 0.0
	nan = nan / nan
	if _, err := FromFloat64(nan); err == nil {
		t.Fatalf("expected error for NaN")
	}
}

func TestMulFloat64(t *testing.T) {
	a := amt("2")
	got, err := a.MulFloat64(1.5)
	if err != nil {
		t.Fatalf("MulFloat64: %v", err)
	}
	if got.String() != "3.000000000" {
		t.Fatalf("MulFloat64 = %q", got.String())
	}
}

func TestFloat64RoundTrip(t *testing.T) {
	a := amt("42.5")
	if got := a.Float64(); got != 42.5 {
		t.Fatalf("Float64 = %v", got)
	}
}

func TestIsZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Fatalf("Zero should be zero")
	}
	if amt("0").Add(amt("0")).Cmp(Zero) != 0 {
		t.Fatalf("0+0 should equal Zero")
	}
}
