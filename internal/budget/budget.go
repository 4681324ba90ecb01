// Package budget tracks purchases against the weekly grocery budget.
// The log is append-only; entries leave only through explicit deletion.
package budget

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/franckalain/nutriledger/internal/fault"
	"github.com/franckalain/nutriledger/internal/models"
)

// FallbackPrice is used when a purchase arrives without a usable price.
const FallbackPrice = 5.0

// Tracker owns the budget entry log.
type Tracker struct {
	mu      sync.Mutex
	entries []models.BudgetEntry
	now     func() time.Time
}

// NewTracker creates a tracker seeded with previously stored entries.
func NewTracker(seed []models.BudgetEntry) *Tracker {
	entries := make([]models.BudgetEntry, len(seed))
	copy(entries, seed)
	return &Tracker{entries: entries, now: time.Now}
}

// AddInput is the caller-supplied part of a budget entry.
type AddInput struct {
	ProductCode string
	ProductName string
	Price       float64
	Quantity    float64
	ServingSize string
	Nutrition   *models.NutritionFacts
}

// Add appends a new entry with a fresh id and timestamp. A zero price
// falls back to the fixed default; a negative or non-finite price is
// rejected.
func (t *Tracker) Add(input AddInput) (models.BudgetEntry, error) {
	if math.IsNaN(input.Price) || math.IsInf(input.Price, 0) {
		return models.BudgetEntry{}, fault.Validation("price is not finite")
	}
	if input.Price < 0 {
		return models.BudgetEntry{}, fault.Validation("price is negative")
	}
	price := input.Price
	if price == 0 {
		price = FallbackPrice
	}

	entry := models.BudgetEntry{
		ID:          uuid.New().String(),
		ProductCode: input.ProductCode,
		ProductName: input.ProductName,
		Price:       price,
		Date:        t.now(),
		Quantity:    input.Quantity,
		ServingSize: input.ServingSize,
		Nutrition:   input.Nutrition,
	}

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	t.mu.Unlock()
	return entry, nil
}

// Remove deletes one entry by id. Unknown ids are a no-op.
func (t *Tracker) Remove(entryID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.entries[:0]
	for _, e := range t.entries {
		if e.ID != entryID {
			kept = append(kept, e)
		}
	}
	t.entries = kept
}

// Clear drops every entry.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}

// Entries returns a snapshot of the log in insertion order.
func (t *Tracker) Entries() []models.BudgetEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.BudgetEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// WeeklySpent sums the prices of entries dated in the current week,
// starting on Sunday.
func (t *Tracker) WeeklySpent() float64 {
	now := t.now()
	weekStart := now.AddDate(0, 0, -int(now.Weekday()))
	weekStart = time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, weekStart.Location())

	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0.0
	for _, e := range t.entries {
		if !e.Date.Before(weekStart) {
			total += e.Price
		}
	}
	return total
}
