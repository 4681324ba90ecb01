package product

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/franckalain/nutriledger/internal/ai"
	"github.com/franckalain/nutriledger/internal/models"
)

// ServingEstimate is the generator's guess at package sizing.
type ServingEstimate struct {
	ServingsPerContainer float64 `json:"servingsPerContainer"`
	ServingSize          string  `json:"servingSize"`
}

func defaultServingEstimate() ServingEstimate {
	return ServingEstimate{ServingsPerContainer: 1, ServingSize: "1 serving"}
}

// estimatePrice asks the generator for a unit price. Anything that is
// not a positive number under 100 falls back to the fixed default.
func (s *Service) estimatePrice(ctx context.Context, off *offProduct) float64 {
	if s.generator == nil {
		return fallbackPrice
	}

	quantity := off.Quantity
	if quantity == "" {
		quantity = off.QuantityUnit
	}
	info := fmt.Sprintf(
		"Product: %s\nBrand: %s\nQuantity: %s\nServing Size: %s\nPackage Size: %s %s",
		orUnknown(off.ProductName), orUnknown(off.Brands), orUnknown(quantity),
		orUnknown(off.ServingSize), orUnknown(off.ProductQuantity), off.QuantityUnit,
	)
	prompt := "Based on this product information, estimate the price for ONE UNIT " +
		"(one bar, one bottle, one serving, etc.) of this product in USD. " +
		"Return ONLY a number between 0.50 and 20.00, no currency symbols or explanations.\n\n" + info

	text, err := ai.Generate(ctx, s.generator, ai.UserMessage(prompt), ai.DefaultCallOptions())
	if err != nil {
		s.logger.WithError(err).Warn("Price estimation failed, using default")
		return fallbackPrice
	}

	price, err := strconv.ParseFloat(keepNumeric(text), 64)
	if err != nil || price <= 0 || price >= 100 {
		return fallbackPrice
	}
	return price
}

// EstimateServings asks the generator how a product package divides
// into servings. Degradation or an unparseable answer yields the
// one-serving default.
func (s *Service) EstimateServings(ctx context.Context, product models.Product) ServingEstimate {
	if s.generator == nil {
		return defaultServingEstimate()
	}

	prompt := fmt.Sprintf(`Based on this product information, determine:
1. How many servings are in this package/container?
2. What is a realistic serving size?

Product: %s
Brand: %s

Return ONLY a JSON object:
{
  "servingsPerContainer": 12,
  "servingSize": "1 bar (40g)"
}`, product.Name, product.Brand)

	text, err := ai.Generate(ctx, s.generator, ai.UserMessage(prompt), ai.DefaultCallOptions())
	if err != nil {
		s.logger.WithError(err).Warn("Serving estimation failed, using default")
		return defaultServingEstimate()
	}

	span, ok := ai.ExtractJSONObject(text)
	if !ok {
		return defaultServingEstimate()
	}
	var estimate ServingEstimate
	if err := json.Unmarshal([]byte(span), &estimate); err != nil {
		return defaultServingEstimate()
	}
	if estimate.ServingsPerContainer <= 0 {
		estimate.ServingsPerContainer = 1
	}
	if estimate.ServingSize == "" {
		estimate.ServingSize = "1 serving"
	}
	return estimate
}

// AnalyzeIngredients returns a free-text analysis of an ingredient
// list. The text is shown verbatim, so the error surfaces instead of
// being swallowed.
func (s *Service) AnalyzeIngredients(ctx context.Context, ingredients []string) (string, error) {
	prompt := fmt.Sprintf(`Analyze these food ingredients for harmful or processed chemicals:

%s

For each problematic ingredient, provide:
1. Name of ingredient
2. Why it's concerning (preservative, artificial color, seed oil, etc.)
3. Potential health issues it can cause

Focus on: artificial preservatives, seed oils, artificial colors, high fructose corn syrup, trans fats, sodium nitrite, BHA/BHT, artificial sweeteners, MSG.

Return in this format:
**[Ingredient Name]**
Type: [e.g., Artificial Preservative]
Concerns: [Brief description of health issues]

If no problematic ingredients found, say "No concerning ingredients detected."`,
		strings.Join(ingredients, ", "))

	return ai.Generate(ctx, s.generator, ai.UserMessage(prompt), ai.DefaultCallOptions())
}

func orUnknown(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}

// keepNumeric strips everything but digits and dots, matching how the
// app parsed price answers that arrive with currency noise.
func keepNumeric(text string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
