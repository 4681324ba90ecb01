package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckalain/nutriledger/internal/ai"
	"github.com/franckalain/nutriledger/internal/budget"
	"github.com/franckalain/nutriledger/internal/favorites"
	"github.com/franckalain/nutriledger/internal/health"
	"github.com/franckalain/nutriledger/internal/inventory"
	"github.com/franckalain/nutriledger/internal/mealplan"
	"github.com/franckalain/nutriledger/internal/models"
	"github.com/franckalain/nutriledger/internal/scoring"
	"github.com/franckalain/nutriledger/internal/store"
)

type reply struct {
	Type    string          `json:"type"`
	Source  string          `json:"source"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	srv    *Server
	conn   *websocket.Conn
	ledger *inventory.Ledger
	cols   *store.Collections
}

func newTestEnv(t *testing.T, favoritesURL string) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cols := store.NewCollections(db)

	gen := ai.NewCannedGenerator("[]")
	ledger := inventory.NewLedger(logger, nil)
	planner := mealplan.NewPlanner(logger, ledger, nil)

	var favClient *favorites.Client
	if favoritesURL != "" {
		favClient = favorites.NewClient(favoritesURL, logger)
	}

	srv := New(Deps{
		Logger:      logger,
		Scorer:      scoring.NewScorer(nil),
		Ledger:      ledger,
		Planner:     planner,
		Assessor:    health.NewAssessor(logger, nil),
		Tracker:     budget.NewTracker(nil),
		Collections: cols,
		Favorites:   favClient,
		Generator:   gen,
	})

	httpSrv := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	t.Cleanup(httpSrv.Close)

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &testEnv{srv: srv, conn: conn, ledger: ledger, cols: cols}
}

func (e *testEnv) roundTrip(t *testing.T, messageType string, data any) reply {
	t.Helper()
	require.NoError(t, e.conn.WriteJSON(map[string]any{"type": messageType, "data": data}))

	e.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var r reply
	require.NoError(t, e.conn.ReadJSON(&r))
	return r
}

func TestScoreProductRoundTrip(t *testing.T) {
	env := newTestEnv(t, "")

	r := env.roundTrip(t, "score_product", map[string]any{
		"name":        "Candy Bar",
		"nutrition":   models.NutritionFacts{Sugar: 30, SaturatedFat: 8},
		"ingredients": "sugar, palm oil, red 40",
	})
	require.Equal(t, "product_scored", r.Type)

	var result scoring.Result
	require.NoError(t, json.Unmarshal(r.Data, &result))
	assert.Less(t, result.Score, 60)
	assert.Contains(t, result.Warnings, "High in sugar")
}

func TestAddGroceryPersistsInventory(t *testing.T) {
	env := newTestEnv(t, "")

	r := env.roundTrip(t, "add_grocery", map[string]any{
		"name":          "Oatmeal",
		"totalQuantity": 10,
		"price":         4.99,
	})
	require.Equal(t, "grocery_added", r.Type)

	var item models.GroceryItem
	require.NoError(t, json.Unmarshal(r.Data, &item))
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, 10.0, item.RemainingQuantity)

	stored, err := env.cols.LoadInventory(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Oatmeal", stored[0].Name)
}

func TestAddGroceryValidationError(t *testing.T) {
	env := newTestEnv(t, "")

	r := env.roundTrip(t, "add_grocery", map[string]any{
		"name":          "Broken",
		"totalQuantity": -2,
	})
	assert.Equal(t, "error", r.Type)
	assert.Equal(t, "add_grocery", r.Source)
}

func TestConsumeMealDepletesAndPersists(t *testing.T) {
	env := newTestEnv(t, "")

	item, err := env.ledger.AddItem(inventory.AddItemInput{Name: "Eggs", TotalQuantity: 12})
	require.NoError(t, err)

	env.srv.planner.SetPlans([]models.DailyMealPlan{{
		Date: "2026-08-31",
		Meals: []models.Meal{{
			ID:   "meal-1",
			Name: "Scrambled Eggs",
			Type: models.MealBreakfast,
			Ingredients: []models.MealIngredient{
				{GroceryItemID: item.ID, Name: "Eggs", Servings: 2},
			},
		}},
	}})

	r := env.roundTrip(t, "consume_meal", map[string]any{"mealId": "meal-1"})
	require.Equal(t, "meal_consumed", r.Type)

	active := env.ledger.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, 10.0, active[0].RemainingQuantity)

	plans, err := env.cols.LoadMealPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.True(t, plans[0].Meals[0].IsConsumed)
}

func TestCalculateHealthSavesRecord(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.ledger.AddItem(inventory.AddItemInput{
		Name:          "Lentils",
		TotalQuantity: 4,
		Nutrition:     models.NutritionFacts{Fiber: 8, Protein: 9},
	})
	require.NoError(t, err)

	r := env.roundTrip(t, "calculate_health", nil)
	require.Equal(t, "health_score", r.Type)

	var record models.HealthScoreRecord
	require.NoError(t, json.Unmarshal(r.Data, &record))
	assert.GreaterOrEqual(t, record.Overall, 0)
	assert.LessOrEqual(t, record.Overall, 100)

	latest, err := env.cols.LoadHealthScore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, record.Overall, latest.Overall)
}

func TestCalculateHealthEmptyInventory(t *testing.T) {
	env := newTestEnv(t, "")

	r := env.roundTrip(t, "calculate_health", nil)
	assert.Equal(t, "error", r.Type)
	assert.Equal(t, "calculate_health", r.Source)
}

func TestFavoritesPassthrough(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"favorites": []favorites.Favorite{{ID: "f1", Name: "Oat Milk", Price: 4.99}},
		})
	}))
	defer remote.Close()

	env := newTestEnv(t, remote.URL)

	r := env.roundTrip(t, "list_favorites", nil)
	require.Equal(t, "favorites", r.Type)

	var favs []favorites.Favorite
	require.NoError(t, json.Unmarshal(r.Data, &favs))
	require.Len(t, favs, 1)
	assert.Equal(t, "Oat Milk", favs[0].Name)
}

func TestFavoritesNotConfigured(t *testing.T) {
	env := newTestEnv(t, "")

	r := env.roundTrip(t, "merge_previous_week", nil)
	assert.Equal(t, "error", r.Type)
	assert.Equal(t, "merge_previous_week", r.Source)
}

func TestUnknownMessageType(t *testing.T) {
	env := newTestEnv(t, "")

	r := env.roundTrip(t, "does_not_exist", nil)
	assert.Equal(t, "error", r.Type)
	assert.Equal(t, "Unknown message type", r.Message)
}

func TestProfileDefaultsThenUpdate(t *testing.T) {
	env := newTestEnv(t, "")

	r := env.roundTrip(t, "get_profile", nil)
	require.Equal(t, "profile", r.Type)

	var profile models.UserProfile
	require.NoError(t, json.Unmarshal(r.Data, &profile))
	assert.Equal(t, 2000.0, profile.DailyCalorieGoal)
	assert.False(t, profile.OnboardingCompleted)

	r = env.roundTrip(t, "update_profile", map[string]any{
		"name":                "Sam",
		"onboardingCompleted": true,
	})
	require.Equal(t, "profile", r.Type)

	stored, err := env.cols.LoadProfile(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Sam", stored.Name)
	assert.True(t, stored.OnboardingCompleted)
}
