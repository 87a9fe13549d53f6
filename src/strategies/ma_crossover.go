package strategies

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/montanaflynn/stats"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

// TransactionSink receives every position change the engine makes.
type TransactionSink interface {
	RecordTransaction(record datamodels.TransactionRecord) error
}

/*
MaCrossover is a dual moving average crossover over the last `slow` prices.

	FLAT  -> LONG   when fastMa > slowMa, entry at price
	FLAT  -> SHORT  when fastMa < slowMa, entry at price
	LONG  -> FLAT   when fastMa < slowMa, pnl += price - entry
	SHORT -> FLAT   when fastMa > slowMa, pnl += entry - price

Averages are compared strictly, equal averages never trade. Not safe for
concurrent use; feed prices from a single goroutine in arrival order.
*/
type MaCrossover struct {
	fast  int
	slow  int
	state datamodels.StrategyState
	sink  TransactionSink
	now   func() time.Time
}

func NewMaCrossover(fast int, slow int) (*MaCrossover, error) {
	if fast < 1 {
		return nil, errors.Newf("fast window must be at least 1, got %d", fast)
	}
	if fast >= slow {
		return nil, errors.Newf("fast window (%d) must be less than slow window (%d)", fast, slow)
	}
	return &MaCrossover{
		fast: fast,
		slow: slow,
		state: datamodels.StrategyState{
			Position: datamodels.PositionFlat,
			Window:   make([]float64, 0, slow+1),
		},
		now: time.Now,
	}, nil
}

func (m *MaCrossover) WithTransactionSink(sink TransactionSink) *MaCrossover {
	m.sink = sink
	return m
}

func (m *MaCrossover) WithClock(now func() time.Time) *MaCrossover {
	m.now = now
	return m
}

func (m *MaCrossover) GetName() string {
	return fmt.Sprintf("ma_crossover_%d_%d", m.fast, m.slow)
}

// State returns a copy of the current strategy state.
func (m *MaCrossover) State() datamodels.StrategyState {
	return m.state.Copy()
}

// OnPrice buffers price and, once the slow window is full, evaluates the
// transition table. ok is false while the window is still filling.
func (m *MaCrossover) OnPrice(price float64) (result datamodels.SignalResult, ok bool) {
	m.state.Window = append(m.state.Window, price)
	if len(m.state.Window) > m.slow {
		m.state.Window = m.state.Window[1:]
	}
	if len(m.state.Window) < m.slow {
		return datamodels.SignalResult{}, false
	}

	fastMa, _ := stats.Mean(m.state.Window[len(m.state.Window)-m.fast:])
	slowMa, _ := stats.Mean(m.state.Window)

	switch m.state.Position {
	case datamodels.PositionFlat:
		if fastMa > slowMa {
			m.open(datamodels.PositionLong, price)
		} else if fastMa < slowMa {
			m.open(datamodels.PositionShort, price)
		}
	case datamodels.PositionLong:
		if fastMa < slowMa {
			m.close(price, price-m.state.EntryPrice)
		}
	case datamodels.PositionShort:
		if fastMa > slowMa {
			m.close(price, m.state.EntryPrice-price)
		}
	}

	return datamodels.SignalResult{
		Price:       price,
		FastMa:      fastMa,
		SlowMa:      slowMa,
		Position:    m.state.Position,
		RealizedPnl: m.state.RealizedPnl,
	}, true
}

func (m *MaCrossover) open(position datamodels.Position, price float64) {
	m.state.Position = position
	m.state.EntryPrice = price
	m.emit(datamodels.TransactionRecord{
		Timestamp: m.now(),
		Price:     price,
		Position:  position,
		Kind:      datamodels.TransactionKindEntry,
	})
}

func (m *MaCrossover) close(price float64, pnl float64) {
	closed := m.state.Position
	m.state.RealizedPnl += pnl
	m.state.Position = datamodels.PositionFlat
	m.state.EntryPrice = 0
	m.emit(datamodels.TransactionRecord{
		Timestamp: m.now(),
		Price:     price,
		Position:  closed,
		Pnl:       pnl,
		Kind:      datamodels.TransactionKindExit,
	})
}

func (m *MaCrossover) emit(record datamodels.TransactionRecord) {
	slog.Info(fmt.Sprintf("%s %s %s at %v", m.GetName(), record.Kind, record.Position, record.Price),
		"pnl", record.Pnl, "realized_pnl", m.state.RealizedPnl)
	if m.sink == nil {
		return
	}
	if err := m.sink.RecordTransaction(record); err != nil {
		slog.Error("Failed to record transaction", "strategy", m.GetName(), "kind", record.Kind, "error", err)
	}
}
