// Package mealplan holds the daily meal plans and the meal consumption
// state machine. A meal only ever moves from pending to consumed; the
// transition deducts its resolved ingredients from the inventory ledger
// as one unit.
package mealplan

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/franckalain/nutriledger/internal/inventory"
	"github.com/franckalain/nutriledger/internal/models"
)

// ErrEmptyInventory is returned when plan generation is requested with
// nothing in the ledger. This is a user-facing condition, not a service
// failure: the fix is adding groceries first.
var ErrEmptyInventory = errors.New("no groceries in inventory; add items to your budget first")

// ErrUnknownMeal is returned when a consumption request names a meal id
// that no plan contains.
var ErrUnknownMeal = errors.New("unknown meal")

// Planner owns the meal plans and coordinates consumption against the
// inventory ledger.
type Planner struct {
	mu     sync.Mutex
	plans  []models.DailyMealPlan
	ledger *inventory.Ledger
	logger *logrus.Logger
}

// NewPlanner creates a planner seeded with previously stored plans.
func NewPlanner(logger *logrus.Logger, ledger *inventory.Ledger, seed []models.DailyMealPlan) *Planner {
	if logger == nil {
		logger = logrus.New()
	}
	plans := make([]models.DailyMealPlan, len(seed))
	copy(plans, seed)
	return &Planner{plans: plans, ledger: ledger, logger: logger}
}

// Plans returns a snapshot of all daily plans.
func (p *Planner) Plans() []models.DailyMealPlan {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.DailyMealPlan, len(p.plans))
	copy(out, p.plans)
	return out
}

// SetPlans replaces the stored plans, e.g. after generation.
func (p *Planner) SetPlans(plans []models.DailyMealPlan) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plans = plans
}

// Consume transitions a meal to consumed, deducting every resolved
// ingredient from the ledger first. Idempotent: consuming an already
// consumed meal is a no-op and never double-deducts. Ingredients with
// no resolved inventory reference skip deduction silently.
func (p *Planner) Consume(mealID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for pi := range p.plans {
		for mi := range p.plans[pi].Meals {
			meal := &p.plans[pi].Meals[mi]
			if meal.ID != mealID {
				continue
			}
			if meal.IsConsumed {
				return nil
			}

			var deductions []inventory.Deduction
			unresolved := 0
			for _, ing := range meal.Ingredients {
				if ing.GroceryItemID == "" {
					unresolved++
					continue
				}
				deductions = append(deductions, inventory.Deduction{
					ItemID:   ing.GroceryItemID,
					Servings: ing.Servings,
				})
			}

			// All deductions land in one ledger critical section before
			// the flag flips, so no reader observes a consumed meal with
			// partially applied inventory.
			p.ledger.DepleteAll(deductions)
			meal.IsConsumed = true

			if unresolved > 0 {
				p.logger.WithFields(logrus.Fields{
					"meal":       meal.Name,
					"unresolved": unresolved,
				}).Debug("Consumed meal with unresolved ingredients")
			}
			return nil
		}
	}
	return ErrUnknownMeal
}
