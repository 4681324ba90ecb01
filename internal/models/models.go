package models

import (
	"time"
)

// NutritionFacts holds the nutrient values of one reference serving.
// Whether a record is per 100g or per item is decided by the caller and
// must stay consistent within that record.
type NutritionFacts struct {
	Calories     float64 `json:"calories"` // kcal
	Protein      float64 `json:"protein"`  // grams
	Carbs        float64 `json:"carbs"`    // grams
	Fat          float64 `json:"fat"`      // grams
	Fiber        float64 `json:"fiber"`    // grams
	Sugar        float64 `json:"sugar"`    // grams
	Sodium       float64 `json:"sodium"`   // milligrams
	SaturatedFat float64 `json:"saturatedFat"`
}

// Add returns the field-wise sum of two nutrition records.
func (n NutritionFacts) Add(other NutritionFacts) NutritionFacts {
	return NutritionFacts{
		Calories:     n.Calories + other.Calories,
		Protein:      n.Protein + other.Protein,
		Carbs:        n.Carbs + other.Carbs,
		Fat:          n.Fat + other.Fat,
		Fiber:        n.Fiber + other.Fiber,
		Sugar:        n.Sugar + other.Sugar,
		Sodium:       n.Sodium + other.Sodium,
		SaturatedFat: n.SaturatedFat + other.SaturatedFat,
	}
}

// Scale returns the record multiplied by the given serving count.
func (n NutritionFacts) Scale(servings float64) NutritionFacts {
	return NutritionFacts{
		Calories:     n.Calories * servings,
		Protein:      n.Protein * servings,
		Carbs:        n.Carbs * servings,
		Fat:          n.Fat * servings,
		Fiber:        n.Fiber * servings,
		Sugar:        n.Sugar * servings,
		Sodium:       n.Sodium * servings,
		SaturatedFat: n.SaturatedFat * servings,
	}
}

// GroceryItem is a purchased product tracked as a depletable serving count.
// Owned exclusively by the inventory ledger: remainingQuantity is mutated
// only through consumption and the item is dropped once it reaches zero.
type GroceryItem struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Brand                string         `json:"brand,omitempty"`
	TotalQuantity        float64        `json:"totalQuantity"`
	RemainingQuantity    float64        `json:"remainingQuantity"`
	ServingSize          string         `json:"servingSize"`
	ServingsPerContainer float64        `json:"servingsPerContainer"`
	Nutrition            NutritionFacts `json:"nutrition"` // per serving
	Ingredients          string         `json:"ingredients,omitempty"`
	Price                float64        `json:"price"`
	DateAdded            time.Time      `json:"dateAdded"`
}

// MealIngredient snapshots one ingredient of a meal. GroceryItemID is a
// weak reference into the inventory; it may be empty when a generated
// ingredient could not be matched to an inventory row. Nutrition is a
// copy taken at meal-creation time so later inventory changes never
// rewrite historical meals.
type MealIngredient struct {
	GroceryItemID string         `json:"groceryItemId"`
	Name          string         `json:"name"`
	Servings      float64        `json:"servings"`
	Nutrition     NutritionFacts `json:"nutrition"`
}

// MealType is the slot a meal occupies within a day.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// Meal is one planned meal. IsConsumed transitions false to true exactly
// once and never reverses.
type Meal struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Type           MealType         `json:"type"`
	Ingredients    []MealIngredient `json:"ingredients"`
	Instructions   []string         `json:"instructions"`
	TotalNutrition NutritionFacts   `json:"totalNutrition"`
	Date           string           `json:"date"` // YYYY-MM-DD
	IsConsumed     bool             `json:"isConsumed"`
}

// DailyMealPlan groups the meals of one calendar day. RemainingCalories
// may go negative when the planned meals exceed the goal.
type DailyMealPlan struct {
	Date              string         `json:"date"` // YYYY-MM-DD
	Meals             []Meal         `json:"meals"`
	TotalNutrition    NutritionFacts `json:"totalNutrition"`
	CalorieGoal       float64        `json:"calorieGoal"`
	RemainingCalories float64        `json:"remainingCalories"`
}

// CategoryStatus is the coarse label shown next to a category score.
type CategoryStatus string

const (
	StatusExcellent CategoryStatus = "excellent"
	StatusGood      CategoryStatus = "good"
	StatusFair      CategoryStatus = "fair"
	StatusPoor      CategoryStatus = "poor"
	StatusBad       CategoryStatus = "bad"
)

// StatusForScore maps a 0-100 score onto its status band.
func StatusForScore(score int) CategoryStatus {
	switch {
	case score >= 80:
		return StatusExcellent
	case score >= 60:
		return StatusGood
	case score >= 40:
		return StatusFair
	case score >= 20:
		return StatusPoor
	default:
		return StatusBad
	}
}

// CategoryScore is one scored dimension of a health assessment.
type CategoryScore struct {
	Score   int            `json:"score"`
	Status  CategoryStatus `json:"status"`
	Message string         `json:"message"`
}

// CategoryScores is the fixed set of assessed categories.
type CategoryScores struct {
	Sugar          CategoryScore `json:"sugar"`
	Fat            CategoryScore `json:"fat"`
	SaturatedFat   CategoryScore `json:"saturatedFat"`
	Sodium         CategoryScore `json:"sodium"`
	Fiber          CategoryScore `json:"fiber"`
	ProcessedFoods CategoryScore `json:"processedFoods"`
}

// BadIngredient describes one risky ingredient found across the
// inventory, with every product it was seen in merged into FoundIn.
type BadIngredient struct {
	Name         string   `json:"name"`
	Severity     Severity `json:"severity"`
	Reason       string   `json:"reason"`
	FoundIn      []string `json:"foundIn"`
	HealthImpact string   `json:"healthImpact"`
	Alternatives []string `json:"alternatives"`
}

// HealthScoreRecord is a stored snapshot of an aggregate assessment.
type HealthScoreRecord struct {
	Overall         int             `json:"overall"`
	Categories      CategoryScores  `json:"categories"`
	Recommendations []string        `json:"recommendations"`
	BadIngredients  []BadIngredient `json:"badIngredients"`
	Date            time.Time       `json:"date"`
}

// WeightEntry is one append-only weight log record.
type WeightEntry struct {
	Date   time.Time `json:"date"`
	Weight float64   `json:"weight"`
	Notes  string    `json:"notes,omitempty"`
}

// WeeklyTrend is a derived per-week rollup. Never persisted; recomputed
// on demand from the weight, meal plan, and health score logs.
type WeeklyTrend struct {
	WeekStart          time.Time `json:"weekStart"`
	WeekEnd            time.Time `json:"weekEnd"`
	AverageHealthScore int       `json:"averageHealthScore"`
	AverageWeight      float64   `json:"averageWeight"`
	CaloriesConsumed   float64   `json:"caloriesConsumed"`
	MealsCompleted     int       `json:"mealsCompleted"`
}

// BudgetEntry records one tracked purchase. Append-only except for
// explicit user deletion.
type BudgetEntry struct {
	ID          string          `json:"id"`
	ProductCode string          `json:"productCode"`
	ProductName string          `json:"productName"`
	Price       float64         `json:"price"`
	Date        time.Time       `json:"date"`
	Quantity    float64         `json:"quantity,omitempty"`
	ServingSize string          `json:"servingSize,omitempty"`
	Nutrition   *NutritionFacts `json:"nutrition,omitempty"`
}

// UserProfile carries the preferences that personalize assessments and
// meal plans.
type UserProfile struct {
	Name                string   `json:"name"`
	DietaryPreferences  []string `json:"dietaryPreferences"`
	HealthConditions    []string `json:"healthConditions"`
	Allergens           []string `json:"allergens"`
	DailyCalorieGoal    float64  `json:"dailyCalorieGoal"`
	WeeklyBudget        float64  `json:"weeklyBudget"`
	Weight              float64  `json:"weight,omitempty"` // lbs
	TargetWeight        float64  `json:"targetWeight,omitempty"`
	Height              float64  `json:"height,omitempty"` // inches
	Gender              string   `json:"gender,omitempty"` // "male", "female", "other"
	WeightGoal          string   `json:"weightGoal,omitempty"`
	FavoriteFoods       []string `json:"favoriteFoods"`
	OnboardingCompleted bool     `json:"onboardingCompleted"`
}

// HasCondition reports whether the profile lists the given condition.
func (p UserProfile) HasCondition(condition string) bool {
	for _, c := range p.HealthConditions {
		if c == condition {
			return true
		}
	}
	return false
}

// Product is a looked-up or generated catalog product, already scored.
type Product struct {
	Code           string         `json:"code"`
	Name           string         `json:"name"`
	Brand          string         `json:"brand"`
	Image          string         `json:"image,omitempty"`
	Ingredients    []string       `json:"ingredients"`
	Nutrition      NutritionFacts `json:"nutrition"`
	HealthScore    int            `json:"healthScore"`
	Warnings       []string       `json:"warnings"`
	Benefits       []string       `json:"benefits"`
	EstimatedPrice float64        `json:"estimatedPrice,omitempty"`
}
