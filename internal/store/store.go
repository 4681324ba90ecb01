// Package store is the durable storage boundary: JSON blobs addressed
// by a stable key per collection. Absence of a key means an empty
// collection, not an error.
package store

import (
	"context"
)

// Collection keys. One key per persisted entity set.
const (
	KeyUserProfile        = "userProfile"
	KeyBudgetEntries      = "budgetEntries"
	KeyGroceryInventory   = "groceryInventory"
	KeyMealPlans          = "mealPlans"
	KeyHealthScore        = "healthScore"
	KeyHealthScoreHistory = "healthScoreHistory"
	KeyWeightHistory      = "weightHistory"
)

// Store is the durable key-value blob interface.
type Store interface {
	// Get returns the blob stored under key, with ok=false when the key
	// has never been written.
	Get(ctx context.Context, key string) (blob []byte, ok bool, err error)
	// Set writes the blob under key, replacing any previous value.
	Set(ctx context.Context, key string, blob []byte) error
	Close() error
}
