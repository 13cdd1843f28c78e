package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"market-structure/src/logger"
	"market-structure/src/models"

	"github.com/gorilla/websocket"
)

type fakeView struct {
	trends []models.MTrend
}

func (f *fakeView) Resolutions() []models.MResolution {
	return []models.MResolution{{Label: "5m", Duration: 5 * time.Minute}, {Label: "1h", Duration: time.Hour}}
}

func (f *fakeView) Trend(key models.Key) (models.MTrend, bool) {
	for _, t := range f.trends {
		if t.Symbol == key.Symbol && t.Resolution == key.Resolution {
			return t, true
		}
	}
	return models.MTrend{}, false
}

func (f *fakeView) LiveTrends() []models.MTrend { return f.trends }
func (f *fakeView) Keys() []models.Key          { return nil }
func (f *fakeView) Stats() models.MEngineStats  { return models.MEngineStats{Ingested: 7} }

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	view := &fakeView{trends: []models.MTrend{
		{Symbol: "EURUSD", Resolution: "5m", Direction: models.Bullish, StartTime: 0},
		{Symbol: "GBPUSD", Resolution: "1h", Direction: models.Bearish, StartTime: 0},
	}}
	s := NewServer(&models.MConfig{}, view, logger.Nop())
	s.startHub()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Stop(context.Background())
		ts.Close()
	})
	return s, ts
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func TestRESTRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	var res struct{ Timeframes []string }
	if code := getJSON(t, ts.URL+"/api/resolutions", &res); code != http.StatusOK {
		t.Fatalf("resolutions status %d", code)
	}
	if strings.Join(res.Timeframes, ",") != "5m,1h" {
		t.Errorf("timeframes = %v", res.Timeframes)
	}

	var trends []models.MTrend
	getJSON(t, ts.URL+"/api/trends?symbol=GBPUSD", &trends)
	if len(trends) != 1 || trends[0].Direction != models.Bearish {
		t.Errorf("filtered trends = %+v", trends)
	}

	var trend models.MTrend
	if code := getJSON(t, ts.URL+"/api/trends/EURUSD/5m", &trend); code != http.StatusOK || trend.Direction != models.Bullish {
		t.Errorf("trend = %d %+v", code, trend)
	}
	if code := getJSON(t, ts.URL+"/api/trends/EURUSD/1h", nil); code != http.StatusNotFound {
		t.Errorf("missing trend status = %d", code)
	}

	var health map[string]interface{}
	getJSON(t, ts.URL+"/api/health", &health)
	if health["status"] != "ok" {
		t.Errorf("health = %v", health)
	}
}

func waitDrained(t *testing.T, s *Server) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(s.broadcast) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("hub did not drain broadcast queue")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) models.MEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env models.MEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func candleEnvelope(symbol, res string, ts int64) models.MEnvelope {
	return models.MEnvelope{
		Type:       models.EventCandle,
		Symbol:     symbol,
		Resolution: res,
		Value:      models.MCandle{Symbol: symbol, Resolution: res, Timestamp: ts},
	}
}

func TestWebsocketSnapshotAndSubscribe(t *testing.T) {
	s, ts := newTestServer(t)
	ctx := context.Background()

	if err := s.Publish(ctx, candleEnvelope("GBPUSD", "5m", 1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Publish(ctx, candleEnvelope("EURUSD", "5m", 1)); err != nil {
		t.Fatal(err)
	}
	waitDrained(t, s)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// snapshot comes ordered by symbol
	if env := readEnvelope(t, conn); env.Symbol != "EURUSD" || env.Type != "candle" {
		t.Fatalf("first snapshot = %+v", env)
	}
	if env := readEnvelope(t, conn); env.Symbol != "GBPUSD" {
		t.Fatalf("second snapshot = %+v", env)
	}

	if err := conn.WriteJSON(models.MSubscribeCommand{Command: "subscribe", Symbols: []string{"GBPUSD"}, Timeframe: "5m"}); err != nil {
		t.Fatal(err)
	}
	// resync replays only the subscribed key
	if env := readEnvelope(t, conn); env.Symbol != "GBPUSD" || env.Resolution != "5m" {
		t.Fatalf("resync = %+v", env)
	}

	s.Publish(ctx, candleEnvelope("EURUSD", "5m", 2))
	s.Publish(ctx, candleEnvelope("GBPUSD", "1h", 2))
	s.Publish(ctx, models.MEnvelope{Type: models.EventSession, Symbol: "GBPUSD", Value: models.MSession{Label: "London"}})

	env := readEnvelope(t, conn)
	if env.Type != models.EventSession || env.Symbol != "GBPUSD" {
		t.Fatalf("filtered broadcast = %+v", env)
	}
}

func TestPublishAfterStop(t *testing.T) {
	s, _ := newTestServer(t)
	s.Stop(context.Background())

	if err := s.Publish(context.Background(), candleEnvelope("EURUSD", "5m", 1)); err == nil {
		t.Fatal("expected error after stop")
	}
}

func TestClientFilter(t *testing.T) {
	c := &Client{}
	if !c.accepts(candleEnvelope("EURUSD", "5m", 0)) {
		t.Fatal("empty filter must accept everything")
	}
	c.subscribe(models.MSubscribeCommand{Symbols: []string{"EURUSD"}, Timeframe: "1h"})
	if c.accepts(candleEnvelope("EURUSD", "5m", 0)) {
		t.Error("timeframe filter ignored")
	}
	if c.accepts(candleEnvelope("GBPUSD", "1h", 0)) {
		t.Error("symbol filter ignored")
	}
	if !c.accepts(models.MEnvelope{Type: models.EventSession, Symbol: "EURUSD"}) {
		t.Error("session envelopes carry no timeframe and should pass")
	}
}
