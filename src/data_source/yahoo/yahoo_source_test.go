package yahoo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"market-structure/src/logger"
	"market-structure/src/models"
)

type fakeNetwork struct {
	mu    sync.Mutex
	calls []string
	body  func(url string) ([]byte, error)
}

func (f *fakeNetwork) Get(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if params["interval"] != "1m" {
		return nil, fmt.Errorf("unexpected interval %q", params["interval"])
	}
	return f.body(url)
}

var testNow = time.Date(2024, 1, 8, 10, 0, 30, 0, time.UTC)

// chartJSON returns four 1m bars ending at the in-progress 10:00 bar; the
// 09:58 close is null
func chartJSON() []byte {
	base := time.Date(2024, 1, 8, 9, 57, 0, 0, time.UTC).Unix()
	return []byte(fmt.Sprintf(`{"chart":{"result":[{"meta":{"symbol":"EURUSD=X"},
"timestamp":[%d,%d,%d,%d],
"indicators":{"quote":[{
"open":[1.10,1.11,1.12,1.13],
"high":[1.12,1.13,1.14,1.15],
"low":[1.09,1.10,1.11,1.12],
"close":[1.11,null,1.13,1.14],
"volume":[10,20,30,40]}]}}],"error":null}}`, base, base+60, base+120, base+180))
}

func newTestSource(net *fakeNetwork, symbols ...string) *YahooFinanceSource {
	cfg := &models.MConfig{DataSource: models.MDataSourceConfig{UpdateIntervalSeconds: 3600}}
	s := NewYahooFinanceSource(cfg, models.MSourceConfig{Name: "yahoo", Type: "yahoo", Symbols: symbols}, net, logger.Nop())
	s.now = func() time.Time { return testNow }
	return s
}

func TestParseChartResponse(t *testing.T) {
	candles, err := ParseChartResponse("EURUSD=X", chartJSON())
	if err != nil {
		t.Fatal(err)
	}
	if len(candles) != 3 {
		t.Fatalf("got %d candles, want 3", len(candles))
	}
	first := candles[0]
	if first.Timestamp != time.Date(2024, 1, 8, 9, 57, 0, 0, time.UTC).UnixMilli() {
		t.Errorf("timestamp = %d", first.Timestamp)
	}
	if first.Open != 1.10 || first.Close != 1.11 || first.Volume != 10 || first.Symbol != "EURUSD=X" {
		t.Errorf("candle = %+v", first)
	}
}

func TestParseChartResponseErrors(t *testing.T) {
	cases := map[string]string{
		"api error":  `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`,
		"empty":      `{"chart":{"result":[],"error":null}}`,
		"misaligned": `{"chart":{"result":[{"timestamp":[1,2],"indicators":{"quote":[{"open":[1],"high":[1],"low":[1],"close":[1],"volume":[1]}]}}]}}`,
		"bad json":   `{"chart":`,
	}
	for name, body := range cases {
		if _, err := ParseChartResponse("X", []byte(body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestPollEmitsCompletedBarsOnce(t *testing.T) {
	net := &fakeNetwork{body: func(string) ([]byte, error) { return chartJSON(), nil }}
	s := newTestSource(net, "EURUSD=X")
	out := make(chan models.MCandle, 10)

	if err := s.poll(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("first poll pushed %d candles, want 2", len(out))
	}
	a, b := <-out, <-out
	if a.Timestamp >= b.Timestamp {
		t.Errorf("out of order: %d then %d", a.Timestamp, b.Timestamp)
	}

	if err := s.poll(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("second poll pushed %d duplicate candles", len(out))
	}

	// the 10:00 bar closes once the clock passes 10:01
	s.now = func() time.Time { return testNow.Add(time.Minute) }
	if err := s.poll(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("third poll pushed %d candles, want 1", len(out))
	}
	if c := <-out; c.Close != 1.14 {
		t.Errorf("close = %v", c.Close)
	}
}

func TestFetchUpdateDataPartialFailure(t *testing.T) {
	net := &fakeNetwork{body: func(url string) ([]byte, error) {
		if strings.Contains(url, "BTC-USD") {
			return nil, errors.New("boom")
		}
		return chartJSON(), nil
	}}
	s := newTestSource(net, "EURUSD=X", "BTC-USD")

	data, err := s.FetchUpdateData(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 1 || len(data["EURUSD=X"]) != 3 {
		t.Errorf("data = %v", data)
	}
}

func TestFetchUpdateDataAllFailed(t *testing.T) {
	net := &fakeNetwork{body: func(string) ([]byte, error) { return nil, errors.New("down") }}
	s := newTestSource(net, "EURUSD=X")

	if _, err := s.FetchUpdateData(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestFetchUpdateDataSkipsClosedMarkets(t *testing.T) {
	net := &fakeNetwork{body: func(string) ([]byte, error) { return chartJSON(), nil }}
	s := newTestSource(net, "AAPL")
	// Saturday
	s.now = func() time.Time { return time.Date(2024, 1, 13, 15, 0, 0, 0, time.UTC) }

	data, err := s.FetchUpdateData(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 || len(net.calls) != 0 {
		t.Errorf("closed market was polled: %v", net.calls)
	}
}

func TestStartStop(t *testing.T) {
	net := &fakeNetwork{body: func(string) ([]byte, error) { return chartJSON(), nil }}
	s := newTestSource(net, "EURUSD=X")
	out := make(chan models.MCandle, 10)
	var wg sync.WaitGroup

	if err := s.Start(context.Background(), out, &wg); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background(), out, &wg); err == nil {
		t.Error("second Start should fail")
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	wg.Wait()
	if err := s.Stop(); err == nil {
		t.Error("second Stop should fail")
	}
}

func TestUpdateSymbols(t *testing.T) {
	s := newTestSource(&fakeNetwork{}, "EURUSD=X")
	s.UpdateSymbols([]string{"AAPL", "BTC-USD"})
	if got := s.Symbols(); len(got) != 2 || got[0] != "AAPL" {
		t.Errorf("symbols = %v", got)
	}
	if _, ok := s.MarketScheduler.Calendars["AAPL"]; !ok {
		t.Error("AAPL not mapped to a calendar")
	}
	if _, ok := s.MarketScheduler.Calendars["BTC-USD"]; ok {
		t.Error("crypto symbol should not be mapped")
	}
}
