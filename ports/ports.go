// Package ports defines interfaces (contracts) between layers.
// Implementations live in adapters/.
package ports

import (
	"context"

	"github.com/artpar/reshape/domain/bridge"
)

// BridgeStore persists bridge definitions.
type BridgeStore interface {
	Get(ctx context.Context, id string) (bridge.Bridge, error)
	List(ctx context.Context) ([]bridge.Bridge, error)
	ListEnabled(ctx context.Context) ([]bridge.Bridge, error)
	Create(ctx context.Context, b bridge.Bridge) error
	Update(ctx context.Context, b bridge.Bridge) error
	Delete(ctx context.Context, id string) error
}
