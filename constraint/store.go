package constraint

import (
	"encoding/json"
	"os"
	"sync"

	"chaintwin/logger"
)

// Store maps rule categories to their items. It is owned by the
// application controller; the lock covers the websocket broadcaster
// reading snapshots while the controller writes.
type Store struct {
	mu         sync.RWMutex
	categories []Category
}

// NewStore creates a store seeded with the given categories.
func NewStore(categories ...Category) *Store {
	s := &Store{}
	s.categories = append(s.categories, categories...)
	return s
}

// Upsert inserts or replaces an item by id. If the id exists anywhere in
// the store the existing item is replaced in place, preserving its
// category and position. Otherwise the item is appended to the reserved
// custom category, creating it on first use. Idempotent under identical
// input.
func (s *Store) Upsert(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ci := range s.categories {
		for ii := range s.categories[ci].Items {
			if s.categories[ci].Items[ii].ID == item.ID {
				s.categories[ci].Items[ii] = item
				logger.Info(logger.StatusRule, "Rule updated: %s (%s)", item.Label, item.ID)
				return
			}
		}
	}

	custom := -1
	for ci := range s.categories {
		if s.categories[ci].ID == CustomCategoryID {
			custom = ci
			break
		}
	}
	if custom == -1 {
		s.categories = append(s.categories, Category{
			ID:   CustomCategoryID,
			Name: CustomCategoryName,
		})
		custom = len(s.categories) - 1
	}
	s.categories[custom].Items = append(s.categories[custom].Items, item)
	logger.Info(logger.StatusRule, "Rule added: %s (%s)", item.Label, item.ID)
}

// Toggle flips Enabled on exactly one matching item. Unknown ids are a
// no-op. Returns the new enabled state and whether the item was found.
func (s *Store) Toggle(categoryID, itemID string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ci := range s.categories {
		if s.categories[ci].ID != categoryID {
			continue
		}
		for ii := range s.categories[ci].Items {
			if s.categories[ci].Items[ii].ID == itemID {
				s.categories[ci].Items[ii].Enabled = !s.categories[ci].Items[ii].Enabled
				return s.categories[ci].Items[ii].Enabled, true
			}
		}
	}
	return false, false
}

// Categories returns a deep copy preserving category order and the
// insertion order of items within each category.
func (s *Store) Categories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Category, len(s.categories))
	for i, c := range s.categories {
		cc := c
		cc.Items = append([]Item(nil), c.Items...)
		out[i] = cc
	}
	return out
}

// Find returns a copy of the item with the given id, if present.
func (s *Store) Find(itemID string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ci := range s.categories {
		for _, it := range s.categories[ci].Items {
			if it.ID == itemID {
				return it, true
			}
		}
	}
	return Item{}, false
}

// Count returns the total number of items across all categories.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for ci := range s.categories {
		n += len(s.categories[ci].Items)
	}
	return n
}

// Save writes the store to a JSON file.
func (s *Store) Save(filename string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s.categories, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// LoadStore reads a store from a JSON file.
func LoadStore(filename string) (*Store, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var categories []Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, err
	}
	return NewStore(categories...), nil
}

// SeedCategories returns the built-in rule groupings a fresh session
// starts with.
func SeedCategories() []Category {
	return []Category{
		{
			ID:   "capacity",
			Name: "产能约束",
			Items: []Item{
				{
					ID:          "cap-1",
					Label:       "基地产能上限",
					Description: "单基地周产能不超过额定产能的 95%",
					Enabled:     true,
					ImpactLevel: ImpactHigh,
					Formula:     "weekly_output <= rated_capacity * 0.95",
					Source:      SourceManual,
				},
			},
		},
		{
			ID:   "logistics",
			Name: "物流约束",
			Items: []Item{
				{
					ID:          "log-1",
					Label:       "跨区运输周期",
					Description: "跨基地调拨运输周期不少于 3 天",
					Enabled:     true,
					ImpactLevel: ImpactMedium,
					Formula:     "transfer_lead_time >= 3",
					Source:      SourceManual,
				},
			},
		},
	}
}
