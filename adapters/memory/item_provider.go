// Package memory provides in-memory implementations of the storage ports.
// They back tests and the simulation harness, and document the port
// contracts the postgres adapters must match.
package memory

import (
	"context"
	"sync"

	"adaptiq/domain/catalog"
	"adaptiq/domain/core"
	"adaptiq/ports"
)

// ItemProvider is an in-memory item pool
type ItemProvider struct {
	mu         sync.RWMutex
	items      map[core.ItemID]catalog.Item
	order      []core.ItemID
	seenByUser map[core.UserID]map[core.ItemID]bool
}

// NewItemProvider creates a provider over a fixed item bank
func NewItemProvider(items []catalog.Item) *ItemProvider {
	p := &ItemProvider{
		items:      make(map[core.ItemID]catalog.Item, len(items)),
		order:      make([]core.ItemID, 0, len(items)),
		seenByUser: make(map[core.UserID]map[core.ItemID]bool),
	}
	for _, it := range items {
		if _, exists := p.items[it.ID]; exists {
			continue
		}
		p.items[it.ID] = it
		p.order = append(p.order, it.ID)
	}
	return p
}

// ListEligibleForUser implements ports.ItemProviderPort
func (p *ItemProvider) ListEligibleForUser(ctx context.Context, userID core.UserID) ([]catalog.Item, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := p.seenByUser[userID]
	eligible := make([]catalog.Item, 0, len(p.order))
	for _, id := range p.order {
		it := p.items[id]
		if !it.Selectable() {
			continue
		}
		if seen != nil && seen[id] {
			continue
		}
		eligible = append(eligible, it)
	}
	return eligible, nil
}

// GetByID implements ports.ItemProviderPort
func (p *ItemProvider) GetByID(ctx context.Context, itemID core.ItemID) (catalog.Item, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	it, ok := p.items[itemID]
	if !ok {
		return catalog.Item{}, core.NewNotFoundError("item", itemID.String())
	}
	return it, nil
}

// ListCalibrated implements ports.ItemProviderPort
func (p *ItemProvider) ListCalibrated(ctx context.Context) ([]catalog.Item, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	calibrated := make([]catalog.Item, 0, len(p.order))
	for _, id := range p.order {
		it := p.items[id]
		if it.SEDiscrim != nil && it.SEDifficulty != nil {
			calibrated = append(calibrated, it)
		}
	}
	return calibrated, nil
}

// MarkSeen records that a user has been served an item in some session
func (p *ItemProvider) MarkSeen(userID core.UserID, itemID core.ItemID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.seenByUser[userID] == nil {
		p.seenByUser[userID] = make(map[core.ItemID]bool)
	}
	p.seenByUser[userID][itemID] = true
}

// Remove deletes an item from the pool. Used by replay tests to model an
// item retired after administration.
func (p *ItemProvider) Remove(itemID core.ItemID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.items, itemID)
	for i, id := range p.order {
		if id == itemID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

var _ ports.ItemProviderPort = (*ItemProvider)(nil)
