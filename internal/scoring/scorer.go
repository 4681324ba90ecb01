// Package scoring computes a product's 0-100 health score from its
// nutrition facts and ingredient statement.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/franckalain/nutriledger/internal/ai"
	"github.com/franckalain/nutriledger/internal/fault"
	"github.com/franckalain/nutriledger/internal/lexicon"
	"github.com/franckalain/nutriledger/internal/models"
)

// Daily reference values the base formula scales against.
const (
	refSugar        = 50.0   // grams
	refSodium       = 2300.0 // milligrams
	refSaturatedFat = 20.0   // grams
	refFat          = 78.0   // grams
	refFiber        = 30.0   // grams
	refProtein      = 50.0   // grams
)

// Result is a product risk evaluation. Immutable once computed.
type Result struct {
	Score        int      `json:"score"`
	Warnings     []string `json:"warnings"`
	Benefits     []string `json:"benefits"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// Scorer evaluates products. The generator is optional; when present,
// low-scoring products get a best-effort alternatives lookup.
type Scorer struct {
	generator ai.Generator
	callOpts  ai.CallOptions
}

// NewScorer creates a scorer. Pass a nil generator to disable the
// alternatives enrichment entirely.
func NewScorer(generator ai.Generator) *Scorer {
	return &Scorer{
		generator: generator,
		callOpts:  ai.DefaultCallOptions(),
	}
}

// Score computes the deterministic part of a product evaluation. Pure:
// same inputs, same result, no side effects.
func Score(facts models.NutritionFacts, ingredientStatement string) (Result, error) {
	if err := validateFacts(facts); err != nil {
		return Result{}, err
	}

	base := 100 -
		(facts.Sugar/refSugar)*20 -
		(facts.Sodium/refSodium)*20 -
		(facts.SaturatedFat/refSaturatedFat)*15 -
		(facts.Fat/refFat)*10 +
		(facts.Fiber/refFiber)*15 +
		(facts.Protein/refProtein)*10
	base = math.Max(0, math.Min(100, base))

	matched := lexicon.Match(ingredientStatement)
	penalty := 0
	for _, e := range matched {
		penalty += e.Points
	}

	score := int(math.Round(math.Max(0, base-float64(penalty))))
	if score > 100 {
		score = 100
	}

	warnings := newOrderedSet()
	if facts.Sugar > 15 {
		warnings.add("High in sugar")
	}
	if facts.Sodium > 400 {
		warnings.add("High in sodium")
	}
	if facts.SaturatedFat > 5 {
		warnings.add("High in saturated fat")
	}
	if len(matched) > 0 {
		names := make([]string, 0, 2)
		for _, e := range matched {
			names = append(names, e.Fragment)
			if len(names) == 2 {
				break
			}
		}
		warnings.add("Contains: " + strings.Join(names, ", "))
	}

	benefits := newOrderedSet()
	if facts.Protein > 10 {
		benefits.add("Good protein source")
	}
	if facts.Fiber > 5 {
		benefits.add("High fiber")
	}
	if len(matched) == 0 && !strings.Contains(strings.ToLower(ingredientStatement), "artificial") {
		benefits.add("No artificial ingredients")
	}

	return Result{
		Score:    score,
		Warnings: warnings.values(),
		Benefits: benefits.values(),
	}, nil
}

// ScoreProduct computes the core result and, for products scoring below
// 60, asks the generation service for healthier alternatives. The
// enrichment is best-effort: any failure leaves Alternatives empty and
// never fails the scoring itself.
func (s *Scorer) ScoreProduct(ctx context.Context, name, brand string, facts models.NutritionFacts, ingredientStatement string) (Result, error) {
	result, err := Score(facts, ingredientStatement)
	if err != nil {
		return Result{}, err
	}

	if result.Score < 60 && s.generator != nil {
		if alts := s.fetchAlternatives(ctx, name, brand); len(alts) > 0 {
			result.Alternatives = alts
		}
	}
	return result, nil
}

func (s *Scorer) fetchAlternatives(ctx context.Context, name, brand string) []string {
	prompt := fmt.Sprintf(`For this product: "%s %s", suggest 2-3 healthier brand alternatives available in US grocery stores. Return as a simple JSON array of strings. For example: ["Brand A Product", "Brand B Product"]`, brand, name)

	text, err := ai.Generate(ctx, s.generator, ai.UserMessage(prompt), s.callOpts)
	if err != nil {
		return nil
	}
	span, ok := ai.ExtractJSONArray(text)
	if !ok {
		return nil
	}
	var alternatives []string
	if err := json.Unmarshal([]byte(span), &alternatives); err != nil {
		return nil
	}
	return alternatives
}

func validateFacts(facts models.NutritionFacts) error {
	var result *multierror.Error
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"calories", facts.Calories},
		{"protein", facts.Protein},
		{"carbs", facts.Carbs},
		{"fat", facts.Fat},
		{"fiber", facts.Fiber},
		{"sugar", facts.Sugar},
		{"sodium", facts.Sodium},
		{"saturatedFat", facts.SaturatedFat},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			result = multierror.Append(result, fault.Validation("%s is not finite", f.name))
		} else if f.value < 0 {
			result = multierror.Append(result, fault.Validation("%s is negative", f.name))
		}
	}
	return result.ErrorOrNil()
}

// orderedSet keeps first-insertion order with set semantics.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}}
}

func (s *orderedSet) add(item string) {
	if _, ok := s.seen[item]; ok {
		return
	}
	s.seen[item] = struct{}{}
	s.items = append(s.items, item)
}

func (s *orderedSet) values() []string {
	return s.items
}
