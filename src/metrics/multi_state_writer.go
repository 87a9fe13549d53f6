package metrics

import (
	"context"
	"sync"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

// MultiStateWriter fans a snapshot out to every destination. A failing
// destination never keeps the snapshot from the ones after it.
type MultiStateWriter struct {
	writers []StateWriter
	mu      sync.RWMutex
}

func NewMultiStateWriter(writers ...StateWriter) *MultiStateWriter {
	return &MultiStateWriter{
		writers: writers,
	}
}

func (w *MultiStateWriter) AddWriter(writer StateWriter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writers = append(w.writers, writer)
}

// Write returns every destination's failure joined, or nil.
func (w *MultiStateWriter) Write(ctx context.Context, snapshot datamodels.StateSnapshot) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var failures []error
	for _, writer := range w.writers {
		if err := writer.Write(ctx, snapshot); err != nil {
			failures = append(failures, errors.Wrapf(err, "writing state to %s", destinationName(writer)))
		}
	}
	return errors.Join(failures...)
}

// Close closes every destination once and forgets them.
func (w *MultiStateWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var failures []error
	for _, writer := range w.writers {
		if err := writer.Close(); err != nil {
			failures = append(failures, errors.Wrapf(err, "closing state destination %s", destinationName(writer)))
		}
	}
	w.writers = nil
	return errors.Join(failures...)
}

func destinationName(writer StateWriter) string {
	switch writer.(type) {
	case *LatestStateStore:
		return "latest_state"
	case *WebsocketStateWriter:
		return "websocket"
	default:
		return "custom"
	}
}
