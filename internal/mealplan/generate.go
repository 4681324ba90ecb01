package mealplan

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/franckalain/nutriledger/internal/ai"
	"github.com/franckalain/nutriledger/internal/fault"
	"github.com/franckalain/nutriledger/internal/models"
)

// generationCallOptions allow the model more time than a quick lookup;
// a full multi-day plan is the largest response the engine requests.
var generationCallOptions = ai.CallOptions{
	Timeout: 30 * time.Second,
	Retries: 1,
	Backoff: 500 * time.Millisecond,
}

// generatedPlan is the wire shape the service returns per day. Ids and
// consumption flags are assigned locally afterwards.
type generatedPlan struct {
	Date  string `json:"date"`
	Meals []struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Ingredients []struct {
			Name      string                `json:"name"`
			Servings  float64               `json:"servings"`
			Nutrition models.NutritionFacts `json:"nutrition"`
		} `json:"ingredients"`
		Instructions   []string              `json:"instructions"`
		TotalNutrition models.NutritionFacts `json:"totalNutrition"`
	} `json:"meals"`
}

// GeneratePlans asks the text-generation service for a multi-day meal
// plan built from the active inventory, sanitizes the response, fills
// any days the model skipped, resolves ingredients to inventory rows,
// and stores the result.
func (p *Planner) GeneratePlans(ctx context.Context, generator ai.Generator, profile models.UserProfile, days int) ([]models.DailyMealPlan, error) {
	if days <= 0 {
		days = 7
	}

	active := p.ledger.ListActive()
	if len(active) == 0 {
		return nil, ErrEmptyInventory
	}

	dates := make([]string, days)
	today := time.Now()
	for i := range dates {
		dates[i] = today.AddDate(0, 0, i).Format("2006-01-02")
	}

	prompt := buildPlanPrompt(active, profile, dates)
	response, err := ai.Generate(ctx, generator, ai.UserMessage(prompt), generationCallOptions)
	if err != nil {
		return nil, err
	}

	span, ok := ai.ExtractJSONArray(response)
	if !ok {
		return nil, fault.Degraded("meal plan generation", fmt.Errorf("no JSON array in response"))
	}
	var generated []generatedPlan
	if err := json.Unmarshal([]byte(span), &generated); err != nil {
		return nil, fault.Degraded("meal plan generation", err)
	}

	plans := make([]models.DailyMealPlan, 0, days)
	for i, g := range generated {
		if i >= days {
			break
		}
		plans = append(plans, p.buildPlan(g, dates[i], profile))
	}

	// The model sometimes returns fewer days than asked. Fill the rest
	// with deterministic simple meals sized from the calorie goal.
	for len(plans) < days {
		plans = append(plans, simpleDayPlan(dates[len(plans)], profile))
	}

	p.SetPlans(plans)
	p.logger.WithField("days", len(plans)).Info("Generated meal plans")
	return plans, nil
}

func (p *Planner) buildPlan(g generatedPlan, date string, profile models.UserProfile) models.DailyMealPlan {
	plan := models.DailyMealPlan{
		Date:        date,
		CalorieGoal: profile.DailyCalorieGoal,
	}

	for _, gm := range g.Meals {
		meal := models.Meal{
			ID:             uuid.New().String(),
			Name:           gm.Name,
			Type:           parseMealType(gm.Type),
			Instructions:   gm.Instructions,
			TotalNutrition: sanitizeFacts(gm.TotalNutrition),
			Date:           date,
			IsConsumed:     false,
		}
		for _, gi := range gm.Ingredients {
			ing := models.MealIngredient{
				Name:      gi.Name,
				Servings:  math.Max(0, gi.Servings),
				Nutrition: sanitizeFacts(gi.Nutrition),
			}
			// Best-effort resolution to an inventory row; unresolved
			// ingredients keep an empty id and skip deduction later.
			if item, ok := p.ledger.FindByName(gi.Name); ok {
				ing.GroceryItemID = item.ID
			}
			meal.Ingredients = append(meal.Ingredients, ing)
		}
		plan.Meals = append(plan.Meals, meal)
	}

	for _, meal := range plan.Meals {
		plan.TotalNutrition = plan.TotalNutrition.Add(meal.TotalNutrition)
	}
	plan.RemainingCalories = plan.CalorieGoal - plan.TotalNutrition.Calories
	return plan
}

// simpleDayPlan is the local fallback for a day the model failed to
// cover: three plain meals at a 25/35/40 calorie split.
func simpleDayPlan(date string, profile models.UserProfile) models.DailyMealPlan {
	goal := profile.DailyCalorieGoal
	if goal <= 0 {
		goal = 2000
	}

	slots := []struct {
		name     string
		mealType models.MealType
		share    float64
		facts    models.NutritionFacts
	}{
		{"Simple Breakfast", models.MealBreakfast, 0.25,
			models.NutritionFacts{Protein: 15, Carbs: 40, Fat: 10, Fiber: 5, Sugar: 5, Sodium: 200, SaturatedFat: 3}},
		{"Simple Lunch", models.MealLunch, 0.35,
			models.NutritionFacts{Protein: 25, Carbs: 50, Fat: 15, Fiber: 8, Sugar: 8, Sodium: 300, SaturatedFat: 5}},
		{"Simple Dinner", models.MealDinner, 0.40,
			models.NutritionFacts{Protein: 30, Carbs: 60, Fat: 18, Fiber: 10, Sugar: 10, Sodium: 400, SaturatedFat: 6}},
	}

	plan := models.DailyMealPlan{Date: date, CalorieGoal: goal}
	for _, slot := range slots {
		facts := slot.facts
		facts.Calories = math.Floor(goal * slot.share)
		plan.Meals = append(plan.Meals, models.Meal{
			ID:             uuid.New().String(),
			Name:           slot.name,
			Type:           slot.mealType,
			Instructions:   []string{"Prepare a simple meal with available items"},
			TotalNutrition: facts,
			Date:           date,
			IsConsumed:     false,
		})
		plan.TotalNutrition = plan.TotalNutrition.Add(facts)
	}
	plan.RemainingCalories = goal - plan.TotalNutrition.Calories
	return plan
}

func buildPlanPrompt(active []models.GroceryItem, profile models.UserProfile, dates []string) string {
	type promptItem struct {
		Name        string                `json:"name"`
		Brand       string                `json:"brand"`
		Remaining   float64               `json:"remaining"`
		ServingSize string                `json:"servingSize"`
		Nutrition   models.NutritionFacts `json:"nutrition"`
	}
	items := make([]promptItem, 0, len(active))
	for _, item := range active {
		items = append(items, promptItem{
			Name:        item.Name,
			Brand:       item.Brand,
			Remaining:   item.RemainingQuantity,
			ServingSize: item.ServingSize,
			Nutrition:   item.Nutrition,
		})
	}
	inventoryJSON, _ := json.MarshalIndent(items, "", "  ")

	restrictions := strings.Join(profile.DietaryPreferences, ", ")
	if restrictions == "" {
		restrictions = "none"
	}
	conditions := strings.Join(profile.HealthConditions, ", ")
	if conditions == "" {
		conditions = "none"
	}

	return fmt.Sprintf(`You are a meal planning expert. Create a COMPLETE %d-day meal plan using ONLY these available groceries:

%s

User Profile:
- Dietary restrictions: %s
- Health conditions: %s
- Daily calorie goal: %.0f calories

REQUIREMENTS:
1. Create 3 meals per day (breakfast, lunch, dinner) for ALL %d days
2. Add snacks ONLY if needed to meet calorie goals
3. Calculate nutrition PER SERVING from the provided nutrition data
4. Track inventory - don't use more servings than available
5. Honor ALL dietary restrictions strictly and account for health conditions
6. Provide simple cooking instructions (1-3 steps)
7. If ingredients are limited, create simpler meals

DATES YOU MUST USE (in order): %s

Return ONLY a valid JSON array with EXACTLY %d daily plans, each shaped like:
{"date": "%s", "meals": [{"name": "...", "type": "breakfast", "ingredients": [{"name": "...", "servings": 2, "nutrition": {"calories": 140, "protein": 12, "carbs": 2, "fat": 10, "fiber": 0, "sugar": 0, "sodium": 140, "saturatedFat": 3}}], "instructions": ["..."], "totalNutrition": {"calories": 140, "protein": 12, "carbs": 2, "fat": 10, "fiber": 0, "sugar": 0, "sodium": 140, "saturatedFat": 3}}]}
Return ONLY the JSON array, nothing else.`,
		len(dates), inventoryJSON, restrictions, conditions, profile.DailyCalorieGoal,
		len(dates), strings.Join(dates, ", "), len(dates), dates[0])
}

func parseMealType(raw string) models.MealType {
	switch models.MealType(strings.ToLower(raw)) {
	case models.MealBreakfast, models.MealLunch, models.MealDinner, models.MealSnack:
		return models.MealType(strings.ToLower(raw))
	default:
		return models.MealSnack
	}
}

// sanitizeFacts clamps service-supplied nutrient values: every numeric
// nutrition field must be non-negative and finite.
func sanitizeFacts(facts models.NutritionFacts) models.NutritionFacts {
	clamp := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0
		}
		return v
	}
	return models.NutritionFacts{
		Calories:     clamp(facts.Calories),
		Protein:      clamp(facts.Protein),
		Carbs:        clamp(facts.Carbs),
		Fat:          clamp(facts.Fat),
		Fiber:        clamp(facts.Fiber),
		Sugar:        clamp(facts.Sugar),
		Sodium:       clamp(facts.Sodium),
		SaturatedFat: clamp(facts.SaturatedFat),
	}
}
