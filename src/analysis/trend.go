package analysis

import (
	"market-structure/src/helpers"
	"market-structure/src/interfaces"
	"market-structure/src/models"

	"github.com/google/uuid"
)

// Reprocess asks the caller to replay queued history after From, starting
// with Origin, the candle that opened the confirmed counter-move.
type Reprocess struct {
	From   int64
	Origin models.MCandle
}

// -----------------------------------------------------------------------------

// TrendMachine tracks the live trend and subtrend of one key.
//
//	no trend        -> non-doji candle seeds a trend
//	trend           -> counter candle opens a subtrend
//	trend+subtrend  -> continuation past the subtrend extreme: break of structure
//	                -> counter close past the trend extreme: change of character
type TrendMachine struct {
	key      models.Key
	trend    *models.MTrend
	subtrend *models.MSubtrend
}

// -----------------------------------------------------------------------------

func NewTrendMachine(key models.Key) *TrendMachine {
	return &TrendMachine{key: key}
}

// -----------------------------------------------------------------------------

// Trend returns a copy of the live trend
func (m *TrendMachine) Trend() (models.MTrend, bool) {
	if m.trend == nil {
		return models.MTrend{}, false
	}
	return *m.trend, true
}

// -----------------------------------------------------------------------------

// Subtrend returns a copy of the live subtrend
func (m *TrendMachine) Subtrend() (models.MSubtrend, bool) {
	if m.subtrend == nil {
		return models.MSubtrend{}, false
	}
	return *m.subtrend, true
}

// -----------------------------------------------------------------------------

// OnClosedCandle advances the machine by one closed candle
func (m *TrendMachine) OnClosedCandle(c models.MCandle, emit interfaces.IEmitter) (*Reprocess, error) {
	if err := m.checkInvariants(); err != nil {
		return nil, err
	}

	dir := c.Direction()

	if m.trend == nil {
		if dir == models.Doji {
			return nil, nil
		}
		m.seed(c)
		m.persistTrend(emit, false)
		return nil, nil
	}

	t := m.trend
	t.EndTime = c.Timestamp

	switch {
	case dir == models.Doji:
		m.widenTrend(c)
		if m.subtrend != nil {
			m.extendSubtrend(c)
		}

	case dir == t.Direction:
		if m.subtrend == nil {
			m.widenTrend(c)
			break
		}
		if m.breaksStructure(c) {
			m.breakOfStructure(c, emit)
		} else {
			m.extendSubtrend(c)
		}

	default:
		if m.subtrend == nil {
			m.openSubtrend(c)
			break
		}
		if m.changesCharacter(c) {
			return m.changeOfCharacter(c, emit), nil
		}
		m.extendSubtrend(c)
	}

	m.persistTrend(emit, false)
	return nil, nil
}

// -----------------------------------------------------------------------------

func (m *TrendMachine) checkInvariants() error {
	if m.subtrend == nil {
		return nil
	}
	if m.trend == nil {
		return helpers.NewInvariantError("%s: subtrend without trend", m.key)
	}
	if m.subtrend.Direction != m.trend.Direction.Opposite() {
		return helpers.NewInvariantError("%s: subtrend %s inside %s trend", m.key, m.subtrend.Direction, m.trend.Direction)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (m *TrendMachine) seed(c models.MCandle) {
	m.trend = &models.MTrend{
		Symbol:       m.key.Symbol,
		Resolution:   m.key.Resolution,
		StartTime:    c.Timestamp,
		EndTime:      c.Timestamp,
		Direction:    c.Direction(),
		High:         c.High,
		Low:          c.Low,
		HighTime:     c.Timestamp,
		LowTime:      c.Timestamp,
		RelativeHigh: c.High,
		RelativeLow:  c.Low,
	}
	m.subtrend = nil
}

// -----------------------------------------------------------------------------

func (m *TrendMachine) openSubtrend(c models.MCandle) {
	m.subtrend = &models.MSubtrend{
		StartTime: c.Timestamp,
		Direction: c.Direction(),
		High:      c.High,
		Low:       c.Low,
		HighTime:  c.Timestamp,
		LowTime:   c.Timestamp,
		Origin:    c,
	}
}

// -----------------------------------------------------------------------------

// widenTrend folds the candle extremes into the trend
func (m *TrendMachine) widenTrend(c models.MCandle) {
	t := m.trend
	if c.High > t.High {
		t.High, t.HighTime = c.High, c.Timestamp
	}
	if c.Low < t.Low {
		t.Low, t.LowTime = c.Low, c.Timestamp
	}
}

// -----------------------------------------------------------------------------

// extendSubtrend pushes the subtrend extreme in its own direction
func (m *TrendMachine) extendSubtrend(c models.MCandle) {
	st := m.subtrend
	if st.Direction == models.Bullish && c.High > st.High {
		st.High, st.HighTime = c.High, c.Timestamp
	}
	if st.Direction == models.Bearish && c.Low < st.Low {
		st.Low, st.LowTime = c.Low, c.Timestamp
	}
}

// -----------------------------------------------------------------------------

func (m *TrendMachine) breaksStructure(c models.MCandle) bool {
	if m.trend.Direction == models.Bullish {
		return c.Close > m.subtrend.High
	}
	return c.Close < m.subtrend.Low
}

// -----------------------------------------------------------------------------

func (m *TrendMachine) changesCharacter(c models.MCandle) bool {
	if m.trend.Direction == models.Bullish {
		return c.Close < m.trend.Low
	}
	return c.Close > m.trend.High
}

// -----------------------------------------------------------------------------

// breakOfStructure confirms the trend. The pullback extremes become the new
// relative levels and the pullback's far side becomes the trend's counter
// extreme.
func (m *TrendMachine) breakOfStructure(c models.MCandle, emit interfaces.IEmitter) {
	t, st := m.trend, m.subtrend

	price := st.Low
	if t.Direction == models.Bullish {
		price = st.High
	}

	m.emitOneD(emit, models.BreakOfStructure, c.Timestamp, price, t.Direction)
	m.emitOneD(emit, models.RelativeHigh, st.HighTime, st.High, t.Direction)
	m.emitOneD(emit, models.RelativeLow, st.LowTime, st.Low, t.Direction)

	if t.Direction == models.Bullish {
		t.RelativeHigh = max(t.RelativeHigh, st.High)
		t.RelativeLow = max(t.RelativeLow, st.Low)
		t.Low, t.LowTime = st.Low, st.LowTime
		if c.High > t.High {
			t.High, t.HighTime = c.High, c.Timestamp
		}
	} else {
		t.RelativeHigh = min(t.RelativeHigh, st.High)
		t.RelativeLow = min(t.RelativeLow, st.Low)
		t.High, t.HighTime = st.High, st.HighTime
		if c.Low < t.Low {
			t.Low, t.LowTime = c.Low, c.Timestamp
		}
	}

	m.subtrend = nil
}

// -----------------------------------------------------------------------------

// changeOfCharacter retires the trend. The subtrend origin becomes the seed
// of the next trend once the caller replays history.
func (m *TrendMachine) changeOfCharacter(c models.MCandle, emit interfaces.IEmitter) *Reprocess {
	t, st := m.trend, m.subtrend

	price := t.RelativeHigh
	if t.Direction == models.Bullish {
		price = t.RelativeLow
	}

	emit.Emit(models.MEvent{
		Type: string(models.OrderBlock),
		Key:  m.key,
		Entity: models.MTwoDStructure{
			ID:         uuid.NewString(),
			Symbol:     m.key.Symbol,
			Resolution: m.key.Resolution,
			Kind:       models.OrderBlock,
			Timestamp:  st.Origin.Timestamp,
			High:       st.Origin.High,
			Low:        st.Origin.Low,
			Direction:  st.Direction,
		},
		Publish: true,
	})
	m.emitOneD(emit, models.ChangeOfCharacter, c.Timestamp, price, st.Direction)
	m.persistTrend(emit, true)

	rep := &Reprocess{From: st.StartTime, Origin: st.Origin}
	m.trend, m.subtrend = nil, nil
	return rep
}

// -----------------------------------------------------------------------------

func (m *TrendMachine) emitOneD(emit interfaces.IEmitter, kind models.StructureKind, ts int64, price float64, dir models.Direction) {
	emit.Emit(models.MEvent{
		Type: string(kind),
		Key:  m.key,
		Entity: models.MOneDStructure{
			ID:         uuid.NewString(),
			Symbol:     m.key.Symbol,
			Resolution: m.key.Resolution,
			Kind:       kind,
			Timestamp:  ts,
			Price:      price,
			Direction:  dir,
		},
		Publish: true,
	})
}

// -----------------------------------------------------------------------------

// persistTrend stores a snapshot; retired trends are also broadcast
func (m *TrendMachine) persistTrend(emit interfaces.IEmitter, retired bool) {
	emit.Emit(models.MEvent{
		Type:    models.EventTrend,
		Key:     m.key,
		Entity:  *m.trend,
		Publish: retired,
	})
}
