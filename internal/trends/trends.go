// Package trends windows the weight, meal plan, and health score logs
// into rolling per-week summaries. Pure computation: nothing here is
// persisted, trends are recomputed on demand.
package trends

import (
	"time"

	"github.com/franckalain/nutriledger/internal/models"
)

// DefaultWeeks is how far back Weekly looks when no count is given.
const DefaultWeeks = 12

// Weekly computes up to `weeks` rolling 7-day windows ending at `now`.
// Each window is end-of-day inclusive. averageHealthScore is the
// overall score of the latest snapshot whose timestamp falls in the
// window - a single snapshot, not an in-window average; a stricter
// design would average every snapshot per window. Weeks with no weight
// data, no completed meals, and a zero health score are dropped. The
// result is ordered oldest to newest.
func Weekly(
	weights []models.WeightEntry,
	plans []models.DailyMealPlan,
	scores []models.HealthScoreRecord,
	weeks int,
	now time.Time,
) []models.WeeklyTrend {
	if weeks <= 0 {
		weeks = DefaultWeeks
	}

	var result []models.WeeklyTrend
	for offset := 0; offset < weeks; offset++ {
		end := endOfDay(now.AddDate(0, 0, -offset*7))
		start := startOfDay(end.AddDate(0, 0, -6))

		trend := models.WeeklyTrend{WeekStart: start, WeekEnd: end}

		weightCount := 0
		weightSum := 0.0
		for _, entry := range weights {
			if inWindow(entry.Date, start, end) {
				weightCount++
				weightSum += entry.Weight
			}
		}
		if weightCount > 0 {
			trend.AverageWeight = weightSum / float64(weightCount)
		}

		for _, plan := range plans {
			planDate, err := time.ParseInLocation("2006-01-02", plan.Date, now.Location())
			if err != nil || !inWindow(planDate, start, end) {
				continue
			}
			for _, meal := range plan.Meals {
				if meal.IsConsumed {
					trend.MealsCompleted++
					trend.CaloriesConsumed += meal.TotalNutrition.Calories
				}
			}
		}

		var latest *models.HealthScoreRecord
		for i := range scores {
			if !inWindow(scores[i].Date, start, end) {
				continue
			}
			if latest == nil || scores[i].Date.After(latest.Date) {
				latest = &scores[i]
			}
		}
		if latest != nil {
			trend.AverageHealthScore = latest.Overall
		}

		if weightCount > 0 || trend.MealsCompleted > 0 || trend.AverageHealthScore > 0 {
			result = append(result, trend)
		}
	}

	// Windows were walked newest first; callers want oldest first.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
