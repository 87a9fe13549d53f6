package metrics

import (
	"context"
	"sync/atomic"

	"crossbot/src/datamodels"
)

// LatestStateStore holds the most recent snapshot. Readers get a value copy
// of a snapshot that is never modified after it is stored.
type LatestStateStore struct {
	latest atomic.Pointer[datamodels.StateSnapshot]
}

func NewLatestStateStore(runId string, symbol string) *LatestStateStore {
	store := &LatestStateStore{}
	store.latest.Store(&datamodels.StateSnapshot{RunId: runId, Symbol: symbol, Ready: false})
	return store
}

func (s *LatestStateStore) Write(ctx context.Context, snapshot datamodels.StateSnapshot) error {
	s.latest.Store(&snapshot)
	return nil
}

func (s *LatestStateStore) Latest() datamodels.StateSnapshot {
	if snapshot := s.latest.Load(); snapshot != nil {
		return *snapshot
	}
	return datamodels.StateSnapshot{}
}

func (s *LatestStateStore) Close() error {
	return nil
}
