package datasource

import (
	"context"
	"errors"
	"sync"
	"testing"

	"market-structure/src/interfaces"
	"market-structure/src/logger"
	"market-structure/src/models"
)

// tickSource pushes one candle per symbol then waits for cancellation
type tickSource struct {
	name     string
	symbols  []string
	startErr error

	mu      sync.Mutex
	cancel  context.CancelFunc
	started int
	updated []string
}

func (s *tickSource) Name() string      { return s.name }
func (s *tickSource) Symbols() []string { return s.symbols }

func (s *tickSource) Start(ctx context.Context, out chan<- models.MCandle, wg *sync.WaitGroup) error {
	if s.startErr != nil {
		return s.startErr
	}
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.started++
	s.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i, sym := range s.symbols {
			select {
			case out <- models.MCandle{Symbol: sym, Timestamp: int64(i) * 60_000}:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return nil
}

func (s *tickSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return errors.New("not running")
	}
	s.cancel()
	s.cancel = nil
	return nil
}

func (s *tickSource) UpdateSymbols(symbols []string) { s.updated = symbols }

func TestStartFansInAndStopDrains(t *testing.T) {
	a := &tickSource{name: "a", symbols: []string{"EURUSD", "GBPUSD"}}
	b := &tickSource{name: "b", symbols: []string{"AAPL"}}
	m := NewMultiSourceManager([]interfaces.IDataSource{a, b}, logger.Nop())

	out := make(chan models.MCandle, 8)
	var wg sync.WaitGroup
	if err := m.Start(context.Background(), out, &wg); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(context.Background(), out, &wg); err == nil {
		t.Error("second Start should fail")
	}

	got := map[string]bool{}
	for i := 0; i < 3; i++ {
		got[(<-out).Symbol] = true
	}
	if len(got) != 3 {
		t.Errorf("symbols = %v", got)
	}

	if err := m.Stop(); err != nil {
		t.Fatal(err)
	}
	wg.Wait()
}

func TestAddSourceWhileRunning(t *testing.T) {
	m := NewMultiSourceManager(nil, logger.Nop())
	out := make(chan models.MCandle, 4)
	var wg sync.WaitGroup
	if err := m.Start(context.Background(), out, &wg); err != nil {
		t.Fatal(err)
	}

	c := &tickSource{name: "c", symbols: []string{"BTC-USD"}}
	if err := m.AddSource(c); err != nil {
		t.Fatal(err)
	}
	if err := m.AddSource(c); err == nil {
		t.Error("duplicate AddSource should fail")
	}
	if s := (<-out).Symbol; s != "BTC-USD" {
		t.Errorf("symbol = %s", s)
	}

	if err := m.RemoveSource("c"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetSource("c"); err == nil {
		t.Error("removed source still listed")
	}
	m.Stop()
	wg.Wait()
}

func TestStartFailureResetsManager(t *testing.T) {
	bad := &tickSource{name: "bad", startErr: errors.New("no file")}
	m := NewMultiSourceManager([]interfaces.IDataSource{bad}, logger.Nop())
	var wg sync.WaitGroup
	if err := m.Start(context.Background(), make(chan models.MCandle), &wg); err == nil {
		t.Fatal("expected start error")
	}
	if err := m.StartSource("bad"); err == nil {
		t.Error("StartSource should fail when the manager is not running")
	}
}

func TestSymbolsAndUpdate(t *testing.T) {
	a := &tickSource{name: "a", symbols: []string{"EURUSD", "AAPL"}}
	b := &tickSource{name: "b", symbols: []string{"AAPL", "BTC-USD"}}
	m := NewMultiSourceManager([]interfaces.IDataSource{b, a}, logger.Nop())

	syms := m.Symbols()
	if len(syms) != 3 || syms[0] != "AAPL" || syms[2] != "EURUSD" {
		t.Errorf("symbols = %v", syms)
	}
	if all := m.GetAllSources(); all[0].Name() != "a" {
		t.Errorf("sources not sorted: %s first", all[0].Name())
	}

	if err := m.UpdateSymbols("a", []string{"MSFT"}); err != nil {
		t.Fatal(err)
	}
	if len(a.updated) != 1 || a.updated[0] != "MSFT" {
		t.Errorf("updated = %v", a.updated)
	}
	if err := m.UpdateSymbols("zzz", nil); err == nil {
		t.Error("unknown source should fail")
	}
}
