// Package health derives an aggregate health assessment from the
// current inventory. All numeric scores are computed locally so they
// are reproducible without the text-generation service; only the
// narrative elaborations are delegated, best effort.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/franckalain/nutriledger/internal/ai"
	"github.com/franckalain/nutriledger/internal/lexicon"
	"github.com/franckalain/nutriledger/internal/models"
)

// ErrEmptyInventory is returned when there is nothing to assess.
var ErrEmptyInventory = errors.New("no groceries in inventory; add items before calculating a health score")

// fairThreshold is the score below which a category earns a
// recommendation.
const fairThreshold = 60

// limits are the personalized daily reference values the categories
// score against.
type limits struct {
	maxSugarGrams        float64
	maxSodiumMg          float64
	maxSaturatedFatGrams float64
	maxFatGrams          float64
	minFiberGrams        float64
	dailyCalorieNeed     float64
}

// Assessor computes health score records.
type Assessor struct {
	generator ai.Generator // optional; nil disables narrative enrichment
	logger    *logrus.Logger
	callOpts  ai.CallOptions
	now       func() time.Time
}

// NewAssessor creates an assessor. A nil generator keeps all narrative
// text local.
func NewAssessor(logger *logrus.Logger, generator ai.Generator) *Assessor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Assessor{
		generator: generator,
		logger:    logger,
		callOpts:  ai.DefaultCallOptions(),
		now:       time.Now,
	}
}

// Assess scores the active inventory against the profile's personalized
// daily limits and returns a stored-form health score record.
func (a *Assessor) Assess(ctx context.Context, profile models.UserProfile, items []models.GroceryItem) (models.HealthScoreRecord, error) {
	if len(items) == 0 {
		return models.HealthScoreRecord{}, ErrEmptyInventory
	}

	lim := personalLimits(profile)
	avg := averageFacts(items)

	record := models.HealthScoreRecord{Date: a.now()}
	record.Categories = models.CategoryScores{
		Sugar:          limitedCategory(avg.Sugar, lim.maxSugarGrams, "sugar", "g"),
		Fat:            limitedCategory(avg.Fat, lim.maxFatGrams, "fat", "g"),
		SaturatedFat:   limitedCategory(avg.SaturatedFat, lim.maxSaturatedFatGrams, "saturated fat", "g"),
		Sodium:         limitedCategory(avg.Sodium, lim.maxSodiumMg, "sodium", "mg"),
		Fiber:          fiberCategory(avg.Fiber, lim.minFiberGrams),
		ProcessedFoods: processedCategory(items),
	}

	record.Overall = clampScore(int(math.Round(
		0.20*float64(record.Categories.Sugar.Score) +
			0.15*float64(record.Categories.Fat.Score) +
			0.15*float64(record.Categories.SaturatedFat.Score) +
			0.20*float64(record.Categories.Sodium.Score) +
			0.15*float64(record.Categories.Fiber.Score) +
			0.15*float64(record.Categories.ProcessedFoods.Score))))

	record.BadIngredients = collectBadIngredients(items)
	record.Recommendations = buildRecommendations(record, lim)

	if a.generator != nil {
		a.enrichNarratives(ctx, &record, profile)
	}
	return record, nil
}

// personalLimits selects daily reference limits from the profile. A
// diabetes condition halves the sugar allowance; hypertension lowers
// the sodium ceiling to the AHA target.
func personalLimits(profile models.UserProfile) limits {
	gender := profile.Gender
	weight := profile.Weight
	if weight == 0 {
		weight = 150
	}
	height := profile.Height
	if height == 0 {
		height = 66
	}
	const age = 30.0

	var bmr float64
	switch gender {
	case "male":
		bmr = 88.362 + 13.397*weight/2.205 + 4.799*height*2.54 - 5.677*age
	case "female":
		bmr = 447.593 + 9.247*weight/2.205 + 3.098*height*2.54 - 4.330*age
	default:
		bmr = 1800
	}
	dailyNeed := math.Round(bmr * 1.55)

	lim := limits{
		maxSodiumMg:          2300,
		maxSaturatedFatGrams: math.Round(dailyNeed * 0.10 / 9),
		maxFatGrams:          math.Round(dailyNeed * 0.30 / 9),
		dailyCalorieNeed:     dailyNeed,
	}
	if gender == "male" {
		lim.maxSugarGrams = 36
		lim.minFiberGrams = 38
	} else {
		lim.maxSugarGrams = 25
		lim.minFiberGrams = 25
	}
	if profile.HasCondition("diabetes") {
		lim.maxSugarGrams /= 2
	}
	if profile.HasCondition("hypertension") {
		lim.maxSodiumMg = 1500
	}
	return lim
}

func averageFacts(items []models.GroceryItem) models.NutritionFacts {
	var sum models.NutritionFacts
	for _, item := range items {
		sum = sum.Add(item.Nutrition)
	}
	return sum.Scale(1 / float64(len(items)))
}

// limitedCategory scores a nutrient where less is better: full marks at
// zero intake, 50 at the limit, bottoming out at double the limit.
func limitedCategory(avg, limit float64, label, unit string) models.CategoryScore {
	score := clampScore(int(math.Round(100 - 50*avg/limit)))
	msg := fmt.Sprintf("Average %.1f%s/day against a %.0f%s limit", avg, unit, limit, unit)
	return models.CategoryScore{Score: score, Status: models.StatusForScore(score), Message: msg}
}

// fiberCategory scores the one nutrient where more is better.
func fiberCategory(avg, minimum float64) models.CategoryScore {
	score := clampScore(int(math.Round(100 * avg / minimum)))
	msg := fmt.Sprintf("Average %.1fg/day against a %.0fg target", avg, minimum)
	return models.CategoryScore{Score: score, Status: models.StatusForScore(score), Message: msg}
}

// processedCategory scores lexicon-penalty density across the whole
// inventory: the more risk points per item, the lower the score.
func processedCategory(items []models.GroceryItem) models.CategoryScore {
	total := 0
	for _, item := range items {
		total += lexicon.Penalty(item.Ingredients)
	}
	density := float64(total) / float64(len(items))
	score := clampScore(100 - int(math.Round(density)))

	msg := "No harmful artificial ingredients detected"
	if total > 0 {
		msg = "Artificial or heavily processed ingredients detected"
	}
	return models.CategoryScore{Score: score, Status: models.StatusForScore(score), Message: msg}
}

// collectBadIngredients re-runs the lexicon over every item and merges
// recurring fragments: one entry per distinct fragment, with every
// product it was found in.
func collectBadIngredients(items []models.GroceryItem) []models.BadIngredient {
	index := map[string]int{}
	var out []models.BadIngredient

	for _, item := range items {
		for _, entry := range lexicon.Match(item.Ingredients) {
			i, ok := index[entry.Fragment]
			if !ok {
				index[entry.Fragment] = len(out)
				out = append(out, models.BadIngredient{
					Name:         entry.Fragment,
					Severity:     entry.Severity,
					Reason:       entry.Reason,
					HealthImpact: entry.Reason,
				})
				i = len(out) - 1
			}
			if !containsString(out[i].FoundIn, item.Name) {
				out[i].FoundIn = append(out[i].FoundIn, item.Name)
			}
		}
	}
	return out
}

func buildRecommendations(record models.HealthScoreRecord, lim limits) []string {
	var recs []string

	low := func(c models.CategoryScore, text string) {
		if c.Score < fairThreshold {
			recs = append(recs, text)
		}
	}
	low(record.Categories.Sugar, fmt.Sprintf("Cut added sugar; aim below %.0fg per day", lim.maxSugarGrams))
	low(record.Categories.Fat, "Choose leaner options to reduce total fat")
	low(record.Categories.SaturatedFat, fmt.Sprintf("Keep saturated fat under %.0fg per day", lim.maxSaturatedFatGrams))
	low(record.Categories.Sodium, fmt.Sprintf("Reduce sodium; stay below %.0fmg per day", lim.maxSodiumMg))
	low(record.Categories.Fiber, fmt.Sprintf("Increase fiber intake toward %.0fg per day", lim.minFiberGrams))
	low(record.Categories.ProcessedFoods, "Swap processed products for whole-food alternatives")

	for _, bad := range record.BadIngredients {
		if bad.Severity == models.SeverityAvoid {
			recs = append(recs, fmt.Sprintf("Avoid products containing %s", bad.Name))
		}
	}
	return recs
}

// enrichNarratives asks the generation service to elaborate the health
// impact and alternatives for each flagged ingredient. Best effort: on
// any failure the local text stands.
func (a *Assessor) enrichNarratives(ctx context.Context, record *models.HealthScoreRecord, profile models.UserProfile) {
	if len(record.BadIngredients) == 0 {
		return
	}

	names := make([]string, len(record.BadIngredients))
	for i, bad := range record.BadIngredients {
		names[i] = bad.Name
	}
	prompt := fmt.Sprintf(`You are a nutrition expert. For each of these ingredients: %v, write a 2-3 sentence health impact specific to a %s user with conditions %v, and suggest 2-3 specific healthier branded products. Return ONLY a JSON object keyed by ingredient name: {"ingredient": {"healthImpact": "...", "alternatives": ["...", "..."]}}`,
		names, profile.Gender, profile.HealthConditions)

	text, err := ai.Generate(ctx, a.generator, ai.UserMessage(prompt), a.callOpts)
	if err != nil {
		a.logger.WithError(err).Debug("Narrative enrichment skipped")
		return
	}
	span, ok := ai.ExtractJSONObject(text)
	if !ok {
		return
	}
	var parsed map[string]struct {
		HealthImpact string   `json:"healthImpact"`
		Alternatives []string `json:"alternatives"`
	}
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return
	}

	for i := range record.BadIngredients {
		if detail, ok := parsed[record.BadIngredients[i].Name]; ok {
			if detail.HealthImpact != "" {
				record.BadIngredients[i].HealthImpact = detail.HealthImpact
			}
			if len(detail.Alternatives) > 0 {
				record.BadIngredients[i].Alternatives = detail.Alternatives
			}
		}
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
