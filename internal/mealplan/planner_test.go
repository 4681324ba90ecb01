package mealplan

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckalain/nutriledger/internal/ai"
	"github.com/franckalain/nutriledger/internal/fault"
	"github.com/franckalain/nutriledger/internal/inventory"
	"github.com/franckalain/nutriledger/internal/models"
)

func seededLedger(t *testing.T) (*inventory.Ledger, models.GroceryItem) {
	t.Helper()
	ledger := inventory.NewLedger(nil, nil)
	item, err := ledger.AddItem(inventory.AddItemInput{
		Name:          "Organic Eggs",
		TotalQuantity: 4,
		Price:         5.99,
		Nutrition:     models.NutritionFacts{Calories: 70, Protein: 6},
	})
	require.NoError(t, err)
	return ledger, item
}

func planWithMeal(mealID, itemID string, servings float64) []models.DailyMealPlan {
	return []models.DailyMealPlan{{
		Date: "2026-08-31",
		Meals: []models.Meal{{
			ID:   mealID,
			Name: "Scrambled Eggs",
			Type: models.MealBreakfast,
			Ingredients: []models.MealIngredient{{
				GroceryItemID: itemID,
				Name:          "Eggs",
				Servings:      servings,
				Nutrition:     models.NutritionFacts{Calories: 70, Protein: 6},
			}},
			TotalNutrition: models.NutritionFacts{Calories: 140, Protein: 12},
			Date:           "2026-08-31",
		}},
	}}
}

func TestConsumeDeductsAndFlips(t *testing.T) {
	ledger, item := seededLedger(t)
	p := NewPlanner(nil, ledger, planWithMeal("meal-1", item.ID, 1.5))

	require.NoError(t, p.Consume("meal-1"))

	active := ledger.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, 2.5, active[0].RemainingQuantity)
	assert.True(t, p.Plans()[0].Meals[0].IsConsumed)
}

func TestConsumeIsIdempotent(t *testing.T) {
	ledger, item := seededLedger(t)
	p := NewPlanner(nil, ledger, planWithMeal("meal-1", item.ID, 1.5))

	require.NoError(t, p.Consume("meal-1"))
	require.NoError(t, p.Consume("meal-1"))

	active := ledger.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, 2.5, active[0].RemainingQuantity)
}

func TestConsumeToZeroPrunesItem(t *testing.T) {
	ledger, item := seededLedger(t)
	plans := planWithMeal("meal-1", item.ID, 1.5)
	plans[0].Meals = append(plans[0].Meals, models.Meal{
		ID:   "meal-2",
		Name: "Egg Salad",
		Type: models.MealLunch,
		Ingredients: []models.MealIngredient{{
			GroceryItemID: item.ID,
			Name:          "Eggs",
			Servings:      3,
		}},
		Date: "2026-08-31",
	})
	p := NewPlanner(nil, ledger, plans)

	require.NoError(t, p.Consume("meal-1"))
	require.NoError(t, p.Consume("meal-2"))
	assert.Empty(t, ledger.ListActive())
}

func TestConsumeUnresolvedIngredientSkips(t *testing.T) {
	ledger, _ := seededLedger(t)
	plans := []models.DailyMealPlan{{
		Date: "2026-08-31",
		Meals: []models.Meal{{
			ID:   "meal-1",
			Name: "Mystery Bowl",
			Ingredients: []models.MealIngredient{
				{GroceryItemID: "", Name: "Unknown Grain", Servings: 2},
			},
			Date: "2026-08-31",
		}},
	}}
	p := NewPlanner(nil, ledger, plans)

	require.NoError(t, p.Consume("meal-1"))
	assert.True(t, p.Plans()[0].Meals[0].IsConsumed)
	// Nothing resolved, nothing deducted.
	assert.Equal(t, 4.0, ledger.ListActive()[0].RemainingQuantity)
}

func TestConsumeUnknownMeal(t *testing.T) {
	ledger, _ := seededLedger(t)
	p := NewPlanner(nil, ledger, nil)
	assert.ErrorIs(t, p.Consume("nope"), ErrUnknownMeal)
}

func TestConcurrentConsumeSameItem(t *testing.T) {
	ledger := inventory.NewLedger(nil, nil)
	item, err := ledger.AddItem(inventory.AddItemInput{Name: "Butter", TotalQuantity: 1, Price: 2})
	require.NoError(t, err)

	plans := planWithMeal("meal-1", item.ID, 1)
	plans[0].Meals = append(plans[0].Meals, models.Meal{
		ID:          "meal-2",
		Name:        "Toast",
		Ingredients: []models.MealIngredient{{GroceryItemID: item.ID, Name: "Butter", Servings: 1}},
		Date:        "2026-08-31",
	})
	p := NewPlanner(nil, ledger, plans)

	var wg sync.WaitGroup
	for _, id := range []string{"meal-1", "meal-2"} {
		wg.Add(1)
		go func(mealID string) {
			defer wg.Done()
			_ = p.Consume(mealID)
		}(id)
	}
	wg.Wait()

	// Two meals raced for one remaining serving; the item bottoms out
	// at zero and is pruned, never negative.
	assert.Empty(t, ledger.ListActive())
}

func TestGeneratePlansEmptyInventory(t *testing.T) {
	ledger := inventory.NewLedger(nil, nil)
	p := NewPlanner(nil, ledger, nil)

	_, err := p.GeneratePlans(context.Background(), ai.NewCannedGenerator("[]"), models.UserProfile{}, 3)
	assert.ErrorIs(t, err, ErrEmptyInventory)
}

func TestGeneratePlansResolvesAndFills(t *testing.T) {
	ledger, _ := seededLedger(t)
	p := NewPlanner(nil, ledger, nil)

	response := `[{"date": "ignored", "meals": [{
		"name": "Scrambled Eggs",
		"type": "breakfast",
		"ingredients": [{"name": "Eggs", "servings": 2, "nutrition": {"calories": 140, "protein": 12}}],
		"instructions": ["Beat eggs", "Cook in pan"],
		"totalNutrition": {"calories": 140, "protein": 12}
	}]}]`
	gen := ai.NewCannedGenerator(response)

	profile := models.UserProfile{DailyCalorieGoal: 2000}
	plans, err := p.GeneratePlans(context.Background(), gen, profile, 3)
	require.NoError(t, err)
	require.Len(t, plans, 3)

	// Day one came from the model, with its ingredient resolved to the
	// inventory row by substring match.
	first := plans[0]
	require.Len(t, first.Meals, 1)
	assert.NotEmpty(t, first.Meals[0].ID)
	assert.False(t, first.Meals[0].IsConsumed)
	require.Len(t, first.Meals[0].Ingredients, 1)
	assert.NotEmpty(t, first.Meals[0].Ingredients[0].GroceryItemID)
	assert.Equal(t, 140.0, first.TotalNutrition.Calories)
	assert.Equal(t, 1860.0, first.RemainingCalories)

	// Days two and three were filled locally with three simple meals.
	for _, plan := range plans[1:] {
		require.Len(t, plan.Meals, 3)
		assert.Equal(t, 2000.0, plan.CalorieGoal)
	}
}

func TestGeneratePlansMalformedResponse(t *testing.T) {
	ledger, _ := seededLedger(t)
	p := NewPlanner(nil, ledger, nil)

	gen := ai.NewCannedGenerator("I refuse to answer in JSON")
	_, err := p.GeneratePlans(context.Background(), gen, models.UserProfile{}, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrDependencyDegraded))
}

func TestGeneratePlansSanitizesNegatives(t *testing.T) {
	ledger, _ := seededLedger(t)
	p := NewPlanner(nil, ledger, nil)

	response := `[{"meals": [{
		"name": "Broken Meal",
		"type": "dinner",
		"ingredients": [],
		"instructions": [],
		"totalNutrition": {"calories": -500, "protein": 10}
	}]}]`
	plans, err := p.GeneratePlans(context.Background(), ai.NewCannedGenerator(response), models.UserProfile{DailyCalorieGoal: 1800}, 1)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, 0.0, plans[0].Meals[0].TotalNutrition.Calories)
	assert.Equal(t, 10.0, plans[0].Meals[0].TotalNutrition.Protein)
}
