package core

import (
	"math"
	"testing"
	"time"

	"market-structure/src/models"
)

func TestCalculateWindowBoundaries(t *testing.T) {
	tests := []struct {
		ts, window, start int64
	}{
		{0, 300, 0},
		{299, 300, 0},
		{300, 300, 300},
		{-1, 300, -300},
		{-300, 300, -300},
	}
	for _, tt := range tests {
		start, end := CalculateWindowBoundaries(tt.ts, tt.window)
		if start != tt.start || end != tt.start+tt.window {
			t.Errorf("CalculateWindowBoundaries(%d, %d) = %d, %d", tt.ts, tt.window, start, end)
		}
	}
}

func TestBucketStart(t *testing.T) {
	ts := time.Date(2024, 1, 2, 10, 7, 30, 0, time.UTC).UnixMilli()
	want := time.Date(2024, 1, 2, 10, 5, 0, 0, time.UTC).UnixMilli()
	if got := BucketStart(ts, 5*time.Minute); got != want {
		t.Errorf("BucketStart = %d, want %d", got, want)
	}
}

func TestValidateCandle(t *testing.T) {
	good := models.MCandle{Symbol: "EURUSD", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}
	if err := ValidateCandle(good); err != nil {
		t.Fatalf("valid candle rejected: %v", err)
	}

	bad := []models.MCandle{
		{Open: 1, High: 2, Low: 0.5, Close: 1.5},
		{Symbol: "X", Open: 1, High: 0.5, Low: 2, Close: 1},
		{Symbol: "X", Open: 3, High: 2, Low: 0.5, Close: 1},
		{Symbol: "X", Open: 1, High: 2, Low: 0.5, Close: 1, Volume: -1},
		{Symbol: "X", Open: math.NaN(), High: 2, Low: 0.5, Close: 1},
	}
	for i, c := range bad {
		if err := ValidateCandle(c); err == nil {
			t.Errorf("case %d: expected rejection of %+v", i, c)
		}
	}
}

func TestValidateCandleNamesFirstNonFiniteField(t *testing.T) {
	c := models.MCandle{Symbol: "X", Open: math.NaN(), High: math.Inf(1), Low: 0.5, Close: math.NaN(), Volume: math.NaN()}
	for i := 0; i < 20; i++ {
		err := ValidateCandle(c)
		if err == nil || err.Error() != "candle open is not finite" {
			t.Fatalf("run %d: got %v", i, err)
		}
	}
}

func TestFold(t *testing.T) {
	acc := models.MCandle{Open: 1, High: 2, Low: 1, Close: 1.5, Volume: 3}
	Fold(&acc, models.MCandle{Open: 1.5, High: 2.5, Low: 0.8, Close: 2.2, Volume: 4})

	want := models.MCandle{Open: 1, High: 2.5, Low: 0.8, Close: 2.2, Volume: 7}
	if acc != want {
		t.Errorf("Fold = %+v, want %+v", acc, want)
	}
}
