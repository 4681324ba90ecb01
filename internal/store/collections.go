package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/franckalain/nutriledger/internal/models"
)

// Collections layers typed accessors over the raw blob store. Each
// load returns the zero value when the collection was never written.
type Collections struct {
	store Store
}

// NewCollections wraps the given store.
func NewCollections(s Store) *Collections {
	return &Collections{store: s}
}

func load[T any](ctx context.Context, s Store, key string, out *T) error {
	blob, ok, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(blob, out); err != nil {
		return fmt.Errorf("error decoding %s: %w", key, err)
	}
	return nil
}

func save(ctx context.Context, s Store, key string, value any) error {
	blob, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", key, err)
	}
	return s.Set(ctx, key, blob)
}

// LoadProfile returns the stored user profile, or nil when none exists.
func (c *Collections) LoadProfile(ctx context.Context) (*models.UserProfile, error) {
	var profile *models.UserProfile
	if err := load(ctx, c.store, KeyUserProfile, &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SaveProfile stores the user profile.
func (c *Collections) SaveProfile(ctx context.Context, profile models.UserProfile) error {
	return save(ctx, c.store, KeyUserProfile, profile)
}

// LoadBudgetEntries returns the stored budget log.
func (c *Collections) LoadBudgetEntries(ctx context.Context) ([]models.BudgetEntry, error) {
	var entries []models.BudgetEntry
	if err := load(ctx, c.store, KeyBudgetEntries, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveBudgetEntries stores the budget log.
func (c *Collections) SaveBudgetEntries(ctx context.Context, entries []models.BudgetEntry) error {
	return save(ctx, c.store, KeyBudgetEntries, entries)
}

// LoadInventory returns the stored grocery inventory.
func (c *Collections) LoadInventory(ctx context.Context) ([]models.GroceryItem, error) {
	var items []models.GroceryItem
	if err := load(ctx, c.store, KeyGroceryInventory, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SaveInventory stores the grocery inventory.
func (c *Collections) SaveInventory(ctx context.Context, items []models.GroceryItem) error {
	return save(ctx, c.store, KeyGroceryInventory, items)
}

// LoadMealPlans returns the stored daily meal plans.
func (c *Collections) LoadMealPlans(ctx context.Context) ([]models.DailyMealPlan, error) {
	var plans []models.DailyMealPlan
	if err := load(ctx, c.store, KeyMealPlans, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// SaveMealPlans stores the daily meal plans.
func (c *Collections) SaveMealPlans(ctx context.Context, plans []models.DailyMealPlan) error {
	return save(ctx, c.store, KeyMealPlans, plans)
}

// LoadHealthScore returns the latest stored assessment, or nil when no
// assessment has ever run.
func (c *Collections) LoadHealthScore(ctx context.Context) (*models.HealthScoreRecord, error) {
	var record *models.HealthScoreRecord
	if err := load(ctx, c.store, KeyHealthScore, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// LoadHealthScoreHistory returns every stored assessment snapshot in
// insertion order.
func (c *Collections) LoadHealthScoreHistory(ctx context.Context) ([]models.HealthScoreRecord, error) {
	var history []models.HealthScoreRecord
	if err := load(ctx, c.store, KeyHealthScoreHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// SaveHealthScore stores the record as the latest assessment and
// appends it to the history log.
func (c *Collections) SaveHealthScore(ctx context.Context, record models.HealthScoreRecord) error {
	if err := save(ctx, c.store, KeyHealthScore, record); err != nil {
		return err
	}
	history, err := c.LoadHealthScoreHistory(ctx)
	if err != nil {
		return err
	}
	history = append(history, record)
	return save(ctx, c.store, KeyHealthScoreHistory, history)
}

// LoadWeightHistory returns the stored weight log.
func (c *Collections) LoadWeightHistory(ctx context.Context) ([]models.WeightEntry, error) {
	var entries []models.WeightEntry
	if err := load(ctx, c.store, KeyWeightHistory, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveWeightHistory stores the weight log.
func (c *Collections) SaveWeightHistory(ctx context.Context, entries []models.WeightEntry) error {
	return save(ctx, c.store, KeyWeightHistory, entries)
}
