package metrics

import (
	"context"

	"crossbot/src/datamodels"
)

// StateWriter publishes the latest strategy state to a consumer.
type StateWriter interface {
	Write(ctx context.Context, snapshot datamodels.StateSnapshot) error
	// Close cleans up any resources
	Close() error
}
