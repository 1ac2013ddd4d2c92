package scenario

import (
	"sync"

	"github.com/google/uuid"

	"chaintwin/graph"
	"chaintwin/logger"
)

// Builder collects declared disruptions into a pending batch before a
// simulation run. Mutation happens on the command loop, but the stats
// ticker reads Pending from its own goroutine, so the lock covers both.
type Builder struct {
	mu      sync.Mutex
	pending []Config
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Add constructs a Config from the target node and parameters, assigns a
// fresh id and appends it to the pending list. A nil target or nil params
// is a silent no-op, mirroring the disabled-button UI contract.
func (b *Builder) Add(target *graph.Node, params Params) *Config {
	if target == nil || params == nil {
		return nil
	}

	cfg := Config{
		ID:             uuid.NewString(),
		TargetNodeID:   target.ID,
		TargetNodeName: target.Name,
		Description:    params.Describe(target.Name),
		Params:         params,
	}

	b.mu.Lock()
	b.pending = append(b.pending, cfg)
	b.mu.Unlock()
	logger.Info(logger.StatusScen, "Scenario added: %s", cfg.Description)
	return &cfg
}

// Remove drops the pending scenario with the given id. Unknown ids are
// ignored.
func (b *Builder) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.pending {
		if b.pending[i].ID == id {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return
		}
	}
}

// Clear empties the pending list (after a run, or explicitly).
func (b *Builder) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
}

// Pending returns a copy of the pending batch in insertion order.
func (b *Builder) Pending() []Config {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Config, len(b.pending))
	copy(out, b.pending)
	return out
}
