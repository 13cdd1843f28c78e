package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"market-structure/src/logger"
)

type fakeCleaner struct {
	before []time.Time
	err    error
}

func (f *fakeCleaner) CleanupOldData(_ context.Context, before time.Time) error {
	f.before = append(f.before, before)
	return f.err
}

func TestRunRetentionUsesCutoff(t *testing.T) {
	ms := NewMarketScheduler(nil, "xnys", logger.Nop())
	ms.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }

	cleaner := &fakeCleaner{}
	ms.RunRetention(context.Background(), 7, cleaner)

	want := time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)
	if len(cleaner.before) != 1 || !cleaner.before[0].Equal(want) {
		t.Fatalf("cutoffs = %v, want [%v]", cleaner.before, want)
	}

	cleaner.err = errors.New("locked")
	ms.RunRetention(context.Background(), 7, cleaner)
	if len(cleaner.before) != 2 {
		t.Fatalf("failing cleanup should still be attempted")
	}
}

func TestScheduleRetentionRejectsBadSpec(t *testing.T) {
	ms := NewMarketScheduler(nil, "xnys", logger.Nop())

	if err := ms.ScheduleRetention("not a cron", 7, &fakeCleaner{}); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
	if err := ms.ScheduleRetention("not a cron", 0, &fakeCleaner{}); err != nil {
		t.Fatalf("disabled retention should not parse the spec: %v", err)
	}
}

func TestMICForSymbol(t *testing.T) {
	tests := map[string]string{
		"VOD.L":  "xlon",
		"7203.T": "xtks",
		"AAPL":   "xnys",
		"BRK.B":  "xnys",
	}
	for symbol, want := range tests {
		if got := MICForSymbol(symbol, "XNYS"); got != want {
			t.Errorf("MICForSymbol(%q) = %q, want %q", symbol, got, want)
		}
	}
}

func TestIsOpenUnknownSymbol(t *testing.T) {
	ms := NewMarketScheduler([]string{"AAPL"}, "xnys", logger.Nop())
	if !ms.IsOpen("EURUSD", time.Now()) {
		t.Fatal("unmapped symbols are always open")
	}
}
