package fixed

import (
	"math/big"
	"testing"
)

func TestWadMulRoundsHalfUp(t *testing.T) {
	half := new(big.Int).Rsh(Wad, 1)
	if got := WadMul(big.NewInt(1), half); got.Int64() != 1 {
		t.Fatalf("0.5 should round to 1, got %s", got)
	}
	if got := WadMul(big.NewInt(3), half); got.Int64() != 2 {
		t.Fatalf("1.5 should round to 2, got %s", got)
	}
	if got := WadMul(nil, Wad); got.Sign() != 0 {
		t.Fatalf("nil operand should yield zero, got %s", got)
	}
}

func TestWadDivInvertsWadMul(t *testing.T) {
	amount := new(big.Int).Mul(big.NewInt(123_456_789), big.NewInt(10_000_000_000))
	price := big.NewInt(200_000_000)
	forward := WadMul(amount, price)
	if forward.Int64() != 246_913_578 {
		t.Fatalf("forward value = %s, want 246913578", forward)
	}
	if back := WadDiv(forward, price); back.Cmp(amount) != 0 {
		t.Fatalf("round trip: got %s, want %s", back, amount)
	}
}

func TestRayMulDivRoundTrip(t *testing.T) {
	principal := big.NewInt(600_000_000)
	index := new(big.Int).Mul(Ray, big.NewInt(3))
	index.Div(index, big.NewInt(2)) // 1.5 RAY
	scaled := RayDiv(principal, index)
	if got := RayMul(scaled, index); got.Cmp(principal) != 0 {
		t.Fatalf("ray round trip: got %s, want %s", got, principal)
	}
}

func TestPercentMul(t *testing.T) {
	if got := PercentMul(big.NewInt(1_000), 1_500); got.Int64() != 150 {
		t.Fatalf("15%% of 1000 = %s, want 150", got)
	}
	if got := PercentMul(big.NewInt(1), 50); got.Sign() != 0 {
		t.Fatalf("0.005 should round to 0, got %s", got)
	}
	if got := PercentMul(big.NewInt(101), 50); got.Int64() != 1 {
		t.Fatalf("0.505 should round to 1, got %s", got)
	}
}

func TestPercentDivZeroDivisor(t *testing.T) {
	if got := PercentDiv(big.NewInt(100), nil); got.Sign() != 0 {
		t.Fatalf("zero divisor should yield zero, got %s", got)
	}
	if got := PercentDiv(big.NewInt(300), big.NewInt(200)); got.Int64() != 15_000 {
		t.Fatalf("300/200 = %s bps, want 15000", got)
	}
}

func TestDecimalRescaling(t *testing.T) {
	cases := []struct {
		decimals uint8
		amount   int64
	}{
		{6, 5_000_000},
		{8, 123_000_000},
		{18, 1},
		{21, 7_000},
	}
	for _, tc := range cases {
		wad := ToWad(big.NewInt(tc.amount), tc.decimals)
		back := FromWad(wad, tc.decimals)
		if back.Int64() != tc.amount {
			t.Fatalf("decimals %d: round trip %d -> %s -> %s", tc.decimals, tc.amount, wad, back)
		}
	}

	// One unit in any decimal representation normalizes to exactly one wad.
	if got := ToWad(big.NewInt(1_000_000), 6); got.Cmp(Wad) != 0 {
		t.Fatalf("1e6 at 6 decimals = %s, want 1e18", got)
	}
	if got := ToWad(new(big.Int).Mul(big.NewInt(1_000), Wad), 21); got.Cmp(Wad) != 0 {
		t.Fatalf("1e21 at 21 decimals = %s, want 1e18", got)
	}
}

func TestMinClones(t *testing.T) {
	a := big.NewInt(5)
	b := big.NewInt(9)
	got := Min(a, b)
	if got.Int64() != 5 {
		t.Fatalf("min = %s, want 5", got)
	}
	got.SetInt64(99)
	if a.Int64() != 5 {
		t.Fatalf("Min must not alias its arguments")
	}
}
