package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
)

// History is an in-process repositories.OrderHistory used when MongoDB is
// not configured.
type History struct {
	mu      sync.RWMutex
	entries map[string][]models.StatusChange
}

var _ repositories.OrderHistory = (*History)(nil)

func NewHistory() *History {
	return &History{entries: map[string][]models.StatusChange{}}
}

func (h *History) Record(_ context.Context, c models.StatusChange) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[c.OrderID] = append(h.entries[c.OrderID], c)
	return nil
}

// List returns the changes for orderID, oldest first.
func (h *History) List(_ context.Context, orderID string) ([]models.StatusChange, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := slices.Clone(h.entries[orderID])
	slices.SortStableFunc(out, func(a, b models.StatusChange) int { return a.At.Compare(b.At) })
	return out, nil
}
