package analysis

import (
	"testing"

	"market-structure/src/models"
)

func TestGapDetectorBullishGap(t *testing.T) {
	g := NewGapDetector()

	if gap := g.OnClosedCandle(bar(0, 1.1, 2, 1, 1.9)); gap != nil {
		t.Fatal("gap with one candle")
	}
	if gap := g.OnClosedCandle(bar(1, 3.1, 4, 3, 3.9)); gap != nil {
		t.Fatal("gap with two candles")
	}

	gap := g.OnClosedCandle(bar(2, 5.1, 6, 5, 5.9))
	if gap == nil {
		t.Fatal("expected a fair value gap on the third candle")
	}
	if gap.Kind != models.FairValueGap || gap.Direction != models.Bullish {
		t.Errorf("gap = %+v", gap)
	}
	if gap.Low != 2 || gap.High != 5 || gap.Timestamp != 2 {
		t.Errorf("gap range = [%v, %v] at %d, want [2, 5] at 2", gap.Low, gap.High, gap.Timestamp)
	}

	if again := g.OnClosedCandle(bar(3, 5.95, 6.1, 5.8, 6.05)); again != nil {
		t.Errorf("fourth candle re-emitted a gap: %+v", again)
	}
}

func TestGapDetectorBearishGap(t *testing.T) {
	g := NewGapDetector()
	g.OnClosedCandle(bar(0, 9.9, 10, 9, 9.1))
	g.OnClosedCandle(bar(1, 7.9, 8, 7, 7.1))

	gap := g.OnClosedCandle(bar(2, 5.9, 6, 5, 5.1))
	if gap == nil || gap.Direction != models.Bearish {
		t.Fatalf("expected bearish gap, got %+v", gap)
	}
	if gap.Low != 6 || gap.High != 9 {
		t.Errorf("gap range = [%v, %v], want [6, 9]", gap.Low, gap.High)
	}
}

func TestGapDetectorDirectionRules(t *testing.T) {
	tests := []struct {
		name    string
		candles []models.MCandle
		want    bool
	}{
		{
			name: "mixed directions",
			candles: []models.MCandle{
				bar(0, 1.1, 2, 1, 1.9), bar(1, 3.9, 4, 3, 3.1), bar(2, 5.1, 6, 5, 5.9),
			},
		},
		{
			name: "doji in the middle is ignored",
			candles: []models.MCandle{
				bar(0, 1.1, 2, 1, 1.9), bar(1, 3.5, 4, 3, 3.5), bar(2, 5.1, 6, 5, 5.9),
			},
			want: true,
		},
		{
			name: "all doji",
			candles: []models.MCandle{
				bar(0, 1.5, 2, 1, 1.5), bar(1, 3.5, 4, 3, 3.5), bar(2, 5.5, 6, 5, 5.5),
			},
		},
		{
			name: "no gap when ranges overlap",
			candles: []models.MCandle{
				bar(0, 1.1, 2, 1, 1.9), bar(1, 1.9, 3, 1.8, 2.9), bar(2, 2.9, 4, 1.95, 3.9),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGapDetector()
			var gap *models.MTwoDStructure
			for _, c := range tt.candles {
				gap = g.OnClosedCandle(c)
			}
			if (gap != nil) != tt.want {
				t.Fatalf("gap = %+v, want gap: %v", gap, tt.want)
			}
		})
	}
}
