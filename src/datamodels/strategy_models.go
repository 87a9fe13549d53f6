package datamodels

import "time"

// Position is the simulated exposure; the integer values are what the state snapshot publishes.
type Position int

const (
	PositionShort Position = -1
	PositionFlat  Position = 0
	PositionLong  Position = 1
)

func (p Position) String() string {
	switch p {
	case PositionShort:
		return "SHORT"
	case PositionFlat:
		return "FLAT"
	case PositionLong:
		return "LONG"
	default:
		return "UNKNOWN"
	}
}

func (p Position) Valid() bool {
	return p == PositionShort || p == PositionFlat || p == PositionLong
}

type StrategyState struct {
	Position    Position
	EntryPrice  float64
	RealizedPnl float64
	Window      []float64
}

func (s *StrategyState) Copy() StrategyState {
	window := make([]float64, len(s.Window))
	copy(window, s.Window)
	return StrategyState{
		Position:    s.Position,
		EntryPrice:  s.EntryPrice,
		RealizedPnl: s.RealizedPnl,
		Window:      window,
	}
}

// SignalResult is produced for every price once the slow window is full.
type SignalResult struct {
	Price       float64
	FastMa      float64
	SlowMa      float64
	Position    Position
	RealizedPnl float64
}

type TransactionKind string

const (
	TransactionKindEntry TransactionKind = "ENTRY"
	TransactionKindExit  TransactionKind = "EXIT"
)

// TransactionRecord is written once per position change and never mutated.
// Position is the side that was opened (ENTRY) or closed (EXIT); Pnl is the
// PnL realized by this transaction, so it is zero for entries.
type TransactionRecord struct {
	Timestamp time.Time
	Price     float64
	Position  Position
	Pnl       float64
	Kind      TransactionKind
}

// StateSnapshot is the immutable view of the latest signal handed to renderers.
type StateSnapshot struct {
	RunId     string    `json:"run_id"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Ready     bool      `json:"ready"`
	Price     float64   `json:"price"`
	FastMa    float64   `json:"fast_ma"`
	SlowMa    float64   `json:"slow_ma"`
	Position  int       `json:"position"`
	Pnl       float64   `json:"pnl"`
}

func NewStateSnapshot(runId string, symbol string, timestamp time.Time, result SignalResult) StateSnapshot {
	return StateSnapshot{
		RunId:     runId,
		Symbol:    symbol,
		Timestamp: timestamp,
		Ready:     true,
		Price:     result.Price,
		FastMa:    result.FastMa,
		SlowMa:    result.SlowMa,
		Position:  int(result.Position),
		Pnl:       result.RealizedPnl,
	}
}
