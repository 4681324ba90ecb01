package product

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckalain/nutriledger/internal/ai"
	"github.com/franckalain/nutriledger/internal/models"
)

const sampleResponse = `{
	"status": 1,
	"product": {
		"code": "737628064502",
		"product_name": "Rice Noodles",
		"brands": "Thai Kitchen",
		"image_url": "https://images.example/rice-noodles.jpg",
		"ingredients_text": "rice noodles, seasoning, high fructose corn syrup",
		"quantity": "155 g",
		"serving_size": "1 box",
		"nutriscore_grade": "c",
		"nutriments": {
			"energy-kcal_100g": 385,
			"proteins_100g": 12,
			"carbohydrates_100g": 72,
			"fat_100g": 6,
			"fiber_100g": 4,
			"sugars_100g": 18,
			"sodium_100g": 1.4,
			"saturated-fat_100g": 2
		}
	}
}`

func TestLookupMapsProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/product/737628064502.json", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	svc := NewService(srv.URL, nil, nil)
	got, err := svc.Lookup(context.Background(), "737628064502")
	require.NoError(t, err)

	assert.Equal(t, "Rice Noodles", got.Name)
	assert.Equal(t, "Thai Kitchen", got.Brand)
	assert.Equal(t, []string{"rice noodles", "seasoning", "high fructose corn syrup"}, got.Ingredients)
	assert.Equal(t, 385.0, got.Nutrition.Calories)
	assert.Equal(t, 12.0, got.Nutrition.Protein)

	// nutriscore c: (5-2)*20
	assert.Equal(t, 60, got.HealthScore)

	assert.ElementsMatch(t, []string{"High in sugar", "High in sodium"}, got.Warnings)
	assert.ElementsMatch(t, []string{"Good source of fiber", "High in protein"}, got.Benefits)

	// no generator configured
	assert.Equal(t, fallbackPrice, got.EstimatedPrice)
}

func TestLookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": 0}`))
	}))
	defer srv.Close()

	svc := NewService(srv.URL, nil, nil)
	_, err := svc.Lookup(context.Background(), "000")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLookupRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	svc := NewService(srv.URL, nil, nil)
	got, err := svc.Lookup(context.Background(), "737628064502")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "Rice Noodles", got.Name)
}

func TestNutriscoreToScore(t *testing.T) {
	tests := []struct {
		grade string
		want  int
	}{
		{"a", 100},
		{"B", 80},
		{"c", 60},
		{"d", 40},
		{"e", 20},
		{"", neutralScore},
		{"z", neutralScore},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nutriscoreToScore(tt.grade), "grade %q", tt.grade)
	}
}

func TestEstimatePriceFromGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	gen := ai.NewCannedGenerator("", "$4.25")
	svc := NewService(srv.URL, gen, nil)

	got, err := svc.Lookup(context.Background(), "737628064502")
	require.NoError(t, err)
	assert.Equal(t, 4.25, got.EstimatedPrice)
}

func TestEstimatePriceRejectsOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	for _, answer := range []string{"250.00", "0", "-3", "around five dollars"} {
		gen := ai.NewCannedGenerator(answer)
		svc := NewService(srv.URL, gen, nil)

		got, err := svc.Lookup(context.Background(), "737628064502")
		require.NoError(t, err)
		assert.Equal(t, fallbackPrice, got.EstimatedPrice, "answer %q", answer)
	}
}

func TestEstimateServings(t *testing.T) {
	gen := ai.NewCannedGenerator("",
		`Here you go: {"servingsPerContainer": 12, "servingSize": "1 bar (40g)"}`)
	svc := NewService("", gen, nil)

	estimate := svc.EstimateServings(context.Background(), models.Product{
		Name: "Granola Bars", Brand: "Nature Valley",
	})
	assert.Equal(t, 12.0, estimate.ServingsPerContainer)
	assert.Equal(t, "1 bar (40g)", estimate.ServingSize)
}

func TestEstimateServingsFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{"no json", "I could not determine the serving size."},
		{"zero servings", `{"servingsPerContainer": 0, "servingSize": ""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := ai.NewCannedGenerator(tt.answer)
			svc := NewService("", gen, nil)

			estimate := svc.EstimateServings(context.Background(), models.Product{Name: "Mystery"})
			assert.Equal(t, 1.0, estimate.ServingsPerContainer)
			assert.Equal(t, "1 serving", estimate.ServingSize)
		})
	}
}
