// Package product looks up scanned barcodes against OpenFoodFacts and
// fills the gaps the catalog leaves open (unit price, serving counts)
// with best-effort text generation.
package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/franckalain/nutriledger/internal/ai"
	"github.com/franckalain/nutriledger/internal/fault"
	"github.com/franckalain/nutriledger/internal/models"
)

const (
	// DefaultBaseURL is the public OpenFoodFacts API.
	DefaultBaseURL = "https://world.openfoodfacts.org"

	userAgent     = "NutriLedger/1.0"
	lookupTimeout = 15 * time.Second
	lookupRetries = 2
	lookupBackoff = time.Second
	neutralScore  = 50
	fallbackPrice = 3.50
)

// ErrNotFound means the catalog has no product for the scanned code.
var ErrNotFound = errors.New("product not found")

// Service resolves barcodes into scored products.
type Service struct {
	baseURL    string
	httpClient *http.Client
	generator  ai.Generator
	logger     *logrus.Logger
}

// NewService creates a lookup service. The generator may be nil, in
// which case price and serving estimation use their fixed fallbacks.
func NewService(baseURL string, generator ai.Generator, logger *logrus.Logger) *Service {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: lookupTimeout},
		generator:  generator,
		logger:     logger,
	}
}

// offResponse is the subset of the OpenFoodFacts payload we read.
type offResponse struct {
	Status  int         `json:"status"`
	Product *offProduct `json:"product"`
}

type offProduct struct {
	Code            string             `json:"code"`
	ProductName     string             `json:"product_name"`
	Brands          string             `json:"brands"`
	ImageURL        string             `json:"image_url"`
	IngredientsText string             `json:"ingredients_text"`
	Quantity        string             `json:"quantity"`
	ServingSize     string             `json:"serving_size"`
	ProductQuantity string             `json:"product_quantity"`
	QuantityUnit    string             `json:"product_quantity_unit"`
	NutriscoreGrade string             `json:"nutriscore_grade"`
	Nutriments      map[string]float64 `json:"nutriments"`
}

// Lookup fetches the product for a barcode and returns it scored, with
// a unit price estimated by the generator when one is configured.
func (s *Service) Lookup(ctx context.Context, code string) (models.Product, error) {
	off, err := s.fetch(ctx, code)
	if err != nil {
		return models.Product{}, err
	}

	product := buildProduct(code, off)
	product.EstimatedPrice = s.estimatePrice(ctx, off)
	return product, nil
}

func (s *Service) fetch(ctx context.Context, code string) (*offProduct, error) {
	url := fmt.Sprintf("%s/api/v2/product/%s.json", s.baseURL, code)

	var lastErr error
	for attempt := 0; attempt <= lookupRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fault.Degraded("product lookup", ctx.Err())
			case <-time.After(lookupBackoff):
			}
		}

		off, retryable, err := s.fetchOnce(ctx, url)
		if err == nil {
			return off, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, lastErr
}

func (s *Service) fetchOnce(ctx context.Context, url string) (*offProduct, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, true, fault.Degraded("product lookup", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, fault.Degraded("product lookup",
			fmt.Errorf("server returned %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("product lookup: status %d", resp.StatusCode)
	}

	var payload offResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fault.Degraded("product lookup",
			fmt.Errorf("error decoding response: %w", err))
	}
	if payload.Status == 0 || payload.Product == nil {
		return nil, false, ErrNotFound
	}
	return payload.Product, false, nil
}

func buildProduct(code string, off *offProduct) models.Product {
	nutriments := off.Nutriments
	if nutriments == nil {
		nutriments = map[string]float64{}
	}

	product := models.Product{
		Code:  off.Code,
		Name:  off.ProductName,
		Brand: off.Brands,
		Image: off.ImageURL,
		Nutrition: models.NutritionFacts{
			Calories:     nutriments["energy-kcal_100g"],
			Protein:      nutriments["proteins_100g"],
			Carbs:        nutriments["carbohydrates_100g"],
			Fat:          nutriments["fat_100g"],
			Fiber:        nutriments["fiber_100g"],
			Sugar:        nutriments["sugars_100g"],
			Sodium:       nutriments["sodium_100g"],
			SaturatedFat: nutriments["saturated-fat_100g"],
		},
		HealthScore: nutriscoreToScore(off.NutriscoreGrade),
		Warnings:    []string{},
		Benefits:    []string{},
	}
	if product.Code == "" {
		product.Code = code
	}
	if product.Name == "" {
		product.Name = "Unknown Product"
	}
	if product.Brand == "" {
		product.Brand = "Unknown Brand"
	}

	if off.IngredientsText != "" {
		for _, part := range strings.Split(off.IngredientsText, ",") {
			product.Ingredients = append(product.Ingredients, strings.TrimSpace(part))
		}
	} else {
		product.Ingredients = []string{}
	}

	// OpenFoodFacts reports per-100g values; sodium is in grams here.
	if nutriments["sugars_100g"] > 15 {
		product.Warnings = append(product.Warnings, "High in sugar")
	}
	if nutriments["sodium_100g"] > 1 {
		product.Warnings = append(product.Warnings, "High in sodium")
	}
	if nutriments["saturated-fat_100g"] > 5 {
		product.Warnings = append(product.Warnings, "High in saturated fat")
	}

	if nutriments["fiber_100g"] > 3 {
		product.Benefits = append(product.Benefits, "Good source of fiber")
	}
	if nutriments["proteins_100g"] > 10 {
		product.Benefits = append(product.Benefits, "High in protein")
	}

	return product
}

// nutriscoreToScore maps the a..e Nutri-Score grade onto 0-100, with a
// neutral midpoint when no grade is published.
func nutriscoreToScore(grade string) int {
	idx := strings.Index("abcde", strings.ToLower(grade))
	if grade == "" || idx < 0 {
		return neutralScore
	}
	return (5 - idx) * 20
}
