package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"market-structure/src/helpers"
	"market-structure/src/interfaces"
	"market-structure/src/logger"
	"market-structure/src/models"
	"market-structure/src/utils"

	"golang.org/x/sync/errgroup"
)

const (
	chartURL       = "https://query1.finance.yahoo.com/v8/finance/chart/%s"
	barInterval    = time.Minute
	maxConcurrency = 4
)

// -----------------------------------------------------------------------------

// YahooFinanceSource polls the chart API for 1m bars of each symbol and
// pushes only completed bars newer than the last one sent.
type YahooFinanceSource struct {
	Config          *models.MConfig
	SourceConfig    models.MSourceConfig
	symbols         atomic.Value // []string
	Network         interfaces.INetworkManager
	Logger          *logger.Logger
	MarketScheduler *utils.MarketScheduler
	LastTimestamps  map[string]int64
	lastMu          sync.Mutex
	cancelFunc      context.CancelFunc
	isRunning       atomic.Bool
	mu              sync.Mutex
	now             func() time.Time
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(cfg *models.MConfig, sourceCfg models.MSourceConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *YahooFinanceSource {
	var exchangeListed []string
	for _, sym := range sourceCfg.Symbols {
		if !roundTheClock(sym) {
			exchangeListed = append(exchangeListed, sym)
		}
	}

	s := &YahooFinanceSource{
		Config:          cfg,
		SourceConfig:    sourceCfg,
		Network:         netMgr,
		Logger:          log,
		MarketScheduler: utils.NewMarketScheduler(exchangeListed, cfg.Session.MIC, log.With("MarketScheduler-"+sourceCfg.Name)),
		LastTimestamps:  make(map[string]int64),
		now:             time.Now,
	}
	s.symbols.Store(append([]string(nil), sourceCfg.Symbols...))
	return s
}

// roundTheClock is true for forex ("EURUSD=X") and crypto ("BTC-USD") tickers,
// which have no exchange calendar
func roundTheClock(symbol string) bool {
	return strings.HasSuffix(symbol, "=X") || strings.HasSuffix(symbol, "-USD")
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Name() string {
	return s.SourceConfig.Name
}

func (s *YahooFinanceSource) Symbols() []string {
	return s.symbols.Load().([]string)
}

// -----------------------------------------------------------------------------

// FetchUpdateData fetches the recent bars of every open market concurrently.
// A failing symbol is logged and left out.
func (s *YahooFinanceSource) FetchUpdateData(ctx context.Context) (map[string][]models.MCandle, error) {
	now := s.now()
	var symbols []string
	for _, sym := range s.Symbols() {
		if s.MarketScheduler.IsOpen(sym, now) {
			symbols = append(symbols, sym)
		}
	}
	if len(symbols) == 0 {
		return map[string][]models.MCandle{}, nil
	}

	results := make(map[string][]models.MCandle, len(symbols))
	var mu sync.Mutex
	var failures atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)
	for _, symbol := range symbols {
		g.Go(func() error {
			candles, err := s.fetchSymbolData(gctx, symbol)
			if err != nil {
				failures.Add(1)
				s.Logger.Info("Error fetching symbol %s: %v", symbol, err)
				return nil
			}
			mu.Lock()
			results[symbol] = candles
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if len(results) == 0 && failures.Load() > 0 {
		return nil, helpers.NewDataSourceError(s.Name(), fmt.Errorf("all %d fetches failed", failures.Load()))
	}
	return results, nil
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) fetchSymbolData(ctx context.Context, symbol string) ([]models.MCandle, error) {
	params := map[string]string{
		"interval":       "1m",
		"range":          "1d",
		"includePrePost": "false",
	}

	body, err := s.Network.Get(ctx, fmt.Sprintf(chartURL, symbol), params)
	if err != nil {
		return nil, fmt.Errorf("network error for %s: %w", symbol, err)
	}
	return ParseChartResponse(symbol, body)
}

// -----------------------------------------------------------------------------

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string `json:"symbol"`
				ExchangeName         string `json:"exchangeName"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
				DataGranularity      string `json:"dataGranularity"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					High   []*float64 `json:"high"` // null for missing bars
					Low    []*float64 `json:"low"`
					Open   []*float64 `json:"open"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

// ParseChartResponse converts a chart payload to base candles sorted by time.
// Bars with a null field are dropped.
func ParseChartResponse(symbol string, data []byte) ([]models.MCandle, error) {
	var resp YahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s - %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no result in response for %s", symbol)
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data in response for %s", symbol)
	}
	quote := result.Indicators.Quote[0]

	n := len(result.Timestamp)
	if len(quote.Open) != n || len(quote.High) != n || len(quote.Low) != n || len(quote.Close) != n || len(quote.Volume) != n {
		return nil, fmt.Errorf("data alignment error for %s", symbol)
	}

	candles := make([]models.MCandle, 0, n)
	for i, ts := range result.Timestamp {
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil || quote.Volume[i] == nil {
			continue
		}
		candles = append(candles, models.MCandle{
			Symbol:    symbol,
			Timestamp: ts * 1000,
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     *quote.Close[i],
			Volume:    *quote.Volume[i],
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})
	return candles, nil
}

// -----------------------------------------------------------------------------

// Start begins the polling loop
func (s *YahooFinanceSource) Start(parentCtx context.Context, outputChan chan<- models.MCandle, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning.Load() {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel
	s.isRunning.Store(true)

	wg.Add(1)
	go s.runLoop(ctx, outputChan, wg)
	s.Logger.Info("Started YahooFinanceSource: %s", s.Name())
	return nil
}

// -----------------------------------------------------------------------------

// Stop signals the run loop to exit
func (s *YahooFinanceSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.Load() {
		return fmt.Errorf("source %s is not running", s.Name())
	}

	s.cancelFunc()
	s.isRunning.Store(false)
	s.Logger.Info("Stopped YahooFinanceSource: %s", s.Name())
	return nil
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) runLoop(ctx context.Context, outputChan chan<- models.MCandle, wg *sync.WaitGroup) {
	defer wg.Done()

	interval := time.Duration(s.Config.DataSource.UpdateIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = barInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.poll(ctx, outputChan); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.Logger.Info("Error fetching updates: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// -----------------------------------------------------------------------------

// poll fetches once and pushes the fresh completed bars, symbol by symbol
func (s *YahooFinanceSource) poll(ctx context.Context, outputChan chan<- models.MCandle) error {
	data, err := s.FetchUpdateData(ctx)
	if err != nil {
		return err
	}

	symbols := make([]string, 0, len(data))
	for sym := range data {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		for _, c := range s.fresh(sym, data[sym]) {
			select {
			case outputChan <- c:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// fresh keeps completed bars newer than the last one pushed for symbol, and
// advances the marker. The in-progress bar is held back until it closes.
func (s *YahooFinanceSource) fresh(symbol string, candles []models.MCandle) []models.MCandle {
	cutoff := s.now().Add(-barInterval).UnixMilli()

	s.lastMu.Lock()
	defer s.lastMu.Unlock()

	last := s.LastTimestamps[symbol]
	var out []models.MCandle
	for _, c := range candles {
		if c.Timestamp <= last || c.Timestamp > cutoff {
			continue
		}
		out = append(out, c)
		last = c.Timestamp
	}
	s.LastTimestamps[symbol] = last
	return out
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) UpdateSymbols(symbols []string) {
	s.symbols.Store(append([]string(nil), symbols...))

	var exchangeListed []string
	for _, sym := range symbols {
		if !roundTheClock(sym) {
			exchangeListed = append(exchangeListed, sym)
		}
	}
	s.MarketScheduler.MapSymbolsToCalendars(exchangeListed, s.Config.Session.MIC)
	s.Logger.Info("Updated symbol list. New count: %d", len(symbols))
}
