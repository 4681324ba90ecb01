// Package inventory owns the grocery ledger: the set of purchased items
// with depletable serving counts.
package inventory

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/franckalain/nutriledger/internal/fault"
	"github.com/franckalain/nutriledger/internal/models"
)

// Ledger is the single writer for grocery items. Every mutation runs
// under one mutex so a meal's deductions apply as a unit.
type Ledger struct {
	mu     sync.Mutex
	items  []models.GroceryItem
	logger *logrus.Logger
}

// AddItemInput is the purchase info required to create a new item.
type AddItemInput struct {
	Name                 string
	Brand                string
	TotalQuantity        float64
	ServingSize          string
	ServingsPerContainer float64
	Nutrition            models.NutritionFacts // per serving
	Ingredients          string                // free-text ingredient statement
	Price                float64
}

// Deduction names one item and how many servings a meal takes from it.
type Deduction struct {
	ItemID   string
	Servings float64
}

// NewLedger creates a ledger seeded with previously stored items.
func NewLedger(logger *logrus.Logger, seed []models.GroceryItem) *Ledger {
	if logger == nil {
		logger = logrus.New()
	}
	items := make([]models.GroceryItem, len(seed))
	copy(items, seed)
	return &Ledger{items: items, logger: logger}
}

// AddItem creates a new item with a fresh identity and a full remaining
// count. Negative or non-finite quantity or price is rejected.
func (l *Ledger) AddItem(input AddItemInput) (models.GroceryItem, error) {
	if err := validateInput(input); err != nil {
		return models.GroceryItem{}, err
	}

	item := models.GroceryItem{
		ID:                   uuid.New().String(),
		Name:                 input.Name,
		Brand:                input.Brand,
		TotalQuantity:        input.TotalQuantity,
		RemainingQuantity:    input.TotalQuantity,
		ServingSize:          input.ServingSize,
		ServingsPerContainer: input.ServingsPerContainer,
		Nutrition:            input.Nutrition,
		Ingredients:          input.Ingredients,
		Price:                input.Price,
		DateAdded:            time.Now(),
	}

	l.mu.Lock()
	l.items = append(l.items, item)
	l.mu.Unlock()

	l.logger.WithFields(logrus.Fields{
		"item":     item.Name,
		"servings": item.TotalQuantity,
	}).Debug("Added grocery item")
	return item, nil
}

// Deplete subtracts servings from one item, clamping at zero. Unknown
// ids are a no-op: consumption requests may reference ingredients that
// never resolved to an inventory row. Items reaching zero are pruned.
func (l *Ledger) Deplete(itemID string, servings float64) {
	l.DepleteAll([]Deduction{{ItemID: itemID, Servings: servings}})
}

// DepleteAll applies a batch of deductions in one critical section, so
// a concurrent reader never sees a meal's deductions half-applied.
func (l *Ledger) DepleteAll(deductions []Deduction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, d := range deductions {
		if d.Servings <= 0 || math.IsNaN(d.Servings) || math.IsInf(d.Servings, 0) {
			continue
		}
		for i := range l.items {
			if l.items[i].ID == d.ItemID {
				l.items[i].RemainingQuantity = math.Max(0, l.items[i].RemainingQuantity-d.Servings)
				break
			}
		}
	}

	// Prune emptied items as a direct consequence of depletion.
	active := l.items[:0]
	for _, item := range l.items {
		if item.RemainingQuantity > 0 {
			active = append(active, item)
		}
	}
	l.items = active
}

// ListActive returns the items with servings left, in insertion order.
// This is the only valid input surface for meal generation and risk
// aggregation.
func (l *Ledger) ListActive() []models.GroceryItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.GroceryItem, 0, len(l.items))
	for _, item := range l.items {
		if item.RemainingQuantity > 0 {
			out = append(out, item)
		}
	}
	return out
}

// FindByName resolves an ingredient name to an active item by
// case-insensitive substring match. Best effort: the first match wins.
func (l *Ledger) FindByName(name string) (models.GroceryItem, bool) {
	if name == "" {
		return models.GroceryItem{}, false
	}
	lowered := strings.ToLower(name)

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, item := range l.items {
		if item.RemainingQuantity > 0 && strings.Contains(strings.ToLower(item.Name), lowered) {
			return item, true
		}
	}
	return models.GroceryItem{}, false
}

func validateInput(input AddItemInput) error {
	var result *multierror.Error
	if math.IsNaN(input.TotalQuantity) || math.IsInf(input.TotalQuantity, 0) {
		result = multierror.Append(result, fault.Validation("total quantity is not finite"))
	} else if input.TotalQuantity < 0 {
		result = multierror.Append(result, fault.Validation("total quantity is negative"))
	}
	if math.IsNaN(input.Price) || math.IsInf(input.Price, 0) {
		result = multierror.Append(result, fault.Validation("price is not finite"))
	} else if input.Price < 0 {
		result = multierror.Append(result, fault.Validation("price is negative"))
	}
	return result.ErrorOrNil()
}
