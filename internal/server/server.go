// Package server exposes the engine over a websocket message surface.
// Messages are {"type": ..., "data": {...}} in both directions; errors
// go back as {"type": "error", "message": ...}.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/franckalain/nutriledger/internal/ai"
	"github.com/franckalain/nutriledger/internal/budget"
	"github.com/franckalain/nutriledger/internal/favorites"
	"github.com/franckalain/nutriledger/internal/health"
	"github.com/franckalain/nutriledger/internal/inventory"
	"github.com/franckalain/nutriledger/internal/mealplan"
	"github.com/franckalain/nutriledger/internal/models"
	"github.com/franckalain/nutriledger/internal/product"
	"github.com/franckalain/nutriledger/internal/scoring"
	"github.com/franckalain/nutriledger/internal/store"
	"github.com/franckalain/nutriledger/internal/trends"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, this should be more restrictive
	},
}

// Deps are the engine components the server wires together.
type Deps struct {
	Logger      *logrus.Logger
	Scorer      *scoring.Scorer
	Ledger      *inventory.Ledger
	Planner     *mealplan.Planner
	Assessor    *health.Assessor
	Tracker     *budget.Tracker
	Collections *store.Collections
	Products    *product.Service
	Favorites   *favorites.Client
	Generator   ai.Generator
}

type Server struct {
	logger      *logrus.Logger
	scorer      *scoring.Scorer
	ledger      *inventory.Ledger
	planner     *mealplan.Planner
	assessor    *health.Assessor
	tracker     *budget.Tracker
	collections *store.Collections
	products    *product.Service
	favorites   *favorites.Client
	generator   ai.Generator
	clients     sync.Map
}

// client is one websocket connection. Writes are serialized through mu;
// lookupGen numbers product lookups so a reply from a superseded lookup
// can be recognized and dropped.
type client struct {
	conn      *websocket.Conn
	mu        sync.Mutex
	lookupGen atomic.Int64
}

func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{
		logger:      logger,
		scorer:      deps.Scorer,
		ledger:      deps.Ledger,
		planner:     deps.Planner,
		assessor:    deps.Assessor,
		tracker:     deps.Tracker,
		collections: deps.Collections,
		products:    deps.Products,
		favorites:   deps.Favorites,
		generator:   deps.Generator,
	}
}

func (s *Server) Start(port string) error {
	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		s.logger.WithField("port", port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Fatal("ListenAndServe failed")
		}
	}()

	<-sigChan
	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	clientID := uuid.New().String()
	s.clients.Store(clientID, c)
	defer s.clients.Delete(clientID)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.logger.WithError(err).Debug("Connection closed")
			break
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.WithError(err).Warn("Error parsing message")
			continue
		}
		s.dispatch(c, msg.Type, msg.Data)
	}
}

func (s *Server) dispatch(c *client, messageType string, data json.RawMessage) {
	if messageType == "" {
		s.sendError(c, "unknown", "Invalid message format")
		return
	}
	messagesHandled.WithLabelValues(messageType).Inc()

	ctx := context.Background()

	switch messageType {
	case "score_product":
		s.handleScoreProduct(ctx, c, data)
	case "lookup_product":
		s.handleLookupProduct(c, data)
	case "add_grocery":
		s.handleAddGrocery(ctx, c, data)
	case "get_inventory":
		s.send(c, "inventory", s.ledger.ListActive())
	case "consume_meal":
		s.handleConsumeMeal(ctx, c, data)
	case "generate_meals":
		s.handleGenerateMeals(ctx, c, data)
	case "get_meal_plans":
		s.send(c, "meal_plans", s.planner.Plans())
	case "calculate_health":
		s.handleCalculateHealth(ctx, c)
	case "get_trends":
		s.handleGetTrends(ctx, c, data)
	case "add_budget_entry":
		s.handleAddBudgetEntry(ctx, c, data)
	case "remove_budget_entry":
		s.handleRemoveBudgetEntry(ctx, c, data)
	case "get_budget":
		s.send(c, "budget", map[string]any{
			"entries":     s.tracker.Entries(),
			"weeklySpent": s.tracker.WeeklySpent(),
		})
	case "get_profile":
		s.handleGetProfile(ctx, c)
	case "update_profile":
		s.handleUpdateProfile(ctx, c, data)
	case "log_weight":
		s.handleLogWeight(ctx, c, data)
	case "list_favorites", "add_favorite", "update_favorite", "remove_favorite", "merge_previous_week":
		if s.favorites == nil {
			s.sendError(c, messageType, "Favorites service not configured")
			return
		}
		switch messageType {
		case "list_favorites":
			s.handleListFavorites(ctx, c)
		case "add_favorite":
			s.handleAddFavorite(ctx, c, data)
		case "update_favorite":
			s.handleUpdateFavorite(ctx, c, data)
		case "remove_favorite":
			s.handleRemoveFavorite(ctx, c, data)
		case "merge_previous_week":
			s.handleMergePreviousWeek(ctx, c)
		}
	default:
		s.sendError(c, messageType, "Unknown message type")
	}
}

func (s *Server) handleScoreProduct(ctx context.Context, c *client, data json.RawMessage) {
	var input struct {
		Name        string                `json:"name"`
		Brand       string                `json:"brand"`
		Nutrition   models.NutritionFacts `json:"nutrition"`
		Ingredients string                `json:"ingredients"`
	}
	if err := json.Unmarshal(data, &input); err != nil {
		s.sendError(c, "score_product", "Invalid product data")
		return
	}

	result, err := s.scorer.ScoreProduct(ctx, input.Name, input.Brand, input.Nutrition, input.Ingredients)
	if err != nil {
		s.logger.WithError(err).Warn("Scoring failed")
		s.sendError(c, "score_product", err.Error())
		return
	}
	s.send(c, "product_scored", result)
}

// handleLookupProduct runs the catalog fetch off the read loop. Each
// lookup bumps the connection's generation counter; a reply only goes
// out if no newer lookup has started since, so a slow response for an
// abandoned barcode never overwrites the one on screen.
func (s *Server) handleLookupProduct(c *client, data json.RawMessage) {
	var input struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &input); err != nil || input.Code == "" {
		s.sendError(c, "lookup_product", "Invalid barcode")
		return
	}

	gen := c.lookupGen.Add(1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		p, err := s.products.Lookup(ctx, input.Code)
		if c.lookupGen.Load() != gen {
			staleLookupsDropped.Inc()
			s.logger.WithField("code", input.Code).Debug("Dropped stale lookup result")
			return
		}
		if err != nil {
			s.logger.WithError(err).WithField("code", input.Code).Warn("Product lookup failed")
			s.sendError(c, "lookup_product", "Product not found")
			return
		}
		s.send(c, "product", p)
	}()
}

func (s *Server) handleAddGrocery(ctx context.Context, c *client, data json.RawMessage) {
	var input struct {
		Name                 string                `json:"name"`
		Brand                string                `json:"brand"`
		TotalQuantity        float64               `json:"totalQuantity"`
		ServingSize          string                `json:"servingSize"`
		ServingsPerContainer float64               `json:"servingsPerContainer"`
		Nutrition            models.NutritionFacts `json:"nutrition"`
		Ingredients          string                `json:"ingredients"`
		Price                float64               `json:"price"`
		TrackInBudget        bool                  `json:"trackInBudget"`
		ProductCode          string                `json:"productCode"`
	}
	if err := json.Unmarshal(data, &input); err != nil {
		s.sendError(c, "add_grocery", "Invalid grocery data")
		return
	}

	item, err := s.ledger.AddItem(inventory.AddItemInput{
		Name:                 input.Name,
		Brand:                input.Brand,
		TotalQuantity:        input.TotalQuantity,
		ServingSize:          input.ServingSize,
		ServingsPerContainer: input.ServingsPerContainer,
		Nutrition:            input.Nutrition,
		Ingredients:          input.Ingredients,
		Price:                input.Price,
	})
	if err != nil {
		s.sendError(c, "add_grocery", err.Error())
		return
	}

	if input.TrackInBudget {
		nutrition := input.Nutrition
		if _, err := s.tracker.Add(budget.AddInput{
			ProductCode: input.ProductCode,
			ProductName: input.Name,
			Price:       input.Price,
			Nutrition:   &nutrition,
		}); err != nil {
			s.logger.WithError(err).Warn("Budget entry rejected")
		} else {
			s.persistBudget(ctx, c)
		}
	}

	s.persistInventory(ctx, c)
	s.send(c, "grocery_added", item)
}

func (s *Server) handleConsumeMeal(ctx context.Context, c *client, data json.RawMessage) {
	var input struct {
		MealID string `json:"mealId"`
	}
	if err := json.Unmarshal(data, &input); err != nil || input.MealID == "" {
		s.sendError(c, "consume_meal", "Invalid meal id")
		return
	}

	if err := s.planner.Consume(input.MealID); err != nil {
		s.sendError(c, "consume_meal", err.Error())
		return
	}

	s.persistInventory(ctx, c)
	s.persistPlans(ctx, c)
	s.send(c, "meal_consumed", map[string]string{"mealId": input.MealID})
}

func (s *Server) handleGenerateMeals(ctx context.Context, c *client, data json.RawMessage) {
	var input struct {
		Days int `json:"days"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &input); err != nil {
			s.sendError(c, "generate_meals", "Invalid request")
			return
		}
	}
	if input.Days <= 0 {
		input.Days = 3
	}

	profile := s.loadProfile(ctx)
	plans, err := s.planner.GeneratePlans(ctx, s.generator, profile, input.Days)
	if err != nil {
		s.logger.WithError(err).Warn("Meal generation failed")
		s.sendError(c, "generate_meals", err.Error())
		return
	}

	s.persistPlans(ctx, c)
	s.send(c, "meals_generated", plans)
}

func (s *Server) handleCalculateHealth(ctx context.Context, c *client) {
	profile := s.loadProfile(ctx)
	record, err := s.assessor.Assess(ctx, profile, s.ledger.ListActive())
	if err != nil {
		s.sendError(c, "calculate_health", err.Error())
		return
	}

	if err := s.collections.SaveHealthScore(ctx, record); err != nil {
		s.logger.WithError(err).Error("Failed to save health score")
		s.sendError(c, "calculate_health", "Failed to save health score; please retry")
		return
	}
	s.send(c, "health_score", record)
}

func (s *Server) handleGetTrends(ctx context.Context, c *client, data json.RawMessage) {
	var input struct {
		Weeks int `json:"weeks"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &input); err != nil {
			s.sendError(c, "get_trends", "Invalid request")
			return
		}
	}

	weights, err := s.collections.LoadWeightHistory(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load weight history")
		s.sendError(c, "get_trends", "Failed to load history; please retry")
		return
	}
	scores, err := s.collections.LoadHealthScoreHistory(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load health score history")
		s.sendError(c, "get_trends", "Failed to load history; please retry")
		return
	}

	weekly := trends.Weekly(weights, s.planner.Plans(), scores, input.Weeks, time.Now())
	s.send(c, "trends", weekly)
}

func (s *Server) handleAddBudgetEntry(ctx context.Context, c *client, data json.RawMessage) {
	var input budget.AddInput
	if err := json.Unmarshal(data, &input); err != nil {
		s.sendError(c, "add_budget_entry", "Invalid budget entry")
		return
	}

	entry, err := s.tracker.Add(input)
	if err != nil {
		s.sendError(c, "add_budget_entry", err.Error())
		return
	}

	// Record the purchase on the remote history service, best effort.
	if s.favorites != nil {
		if _, err := s.favorites.AddHistoryEntry(ctx, favorites.HistoryInput{
			ProductName: entry.ProductName,
			Price:       entry.Price,
			Date:        entry.Date.Format("2006-01-02"),
		}); err != nil {
			s.logger.WithError(err).Warn("Failed to record history entry")
		}
	}

	s.persistBudget(ctx, c)
	s.send(c, "budget_entry_added", entry)
}

func (s *Server) handleRemoveBudgetEntry(ctx context.Context, c *client, data json.RawMessage) {
	var input struct {
		EntryID string `json:"entryId"`
	}
	if err := json.Unmarshal(data, &input); err != nil || input.EntryID == "" {
		s.sendError(c, "remove_budget_entry", "Invalid entry id")
		return
	}

	s.tracker.Remove(input.EntryID)
	s.persistBudget(ctx, c)
	s.send(c, "budget_entry_removed", map[string]string{"entryId": input.EntryID})
}

func (s *Server) handleGetProfile(ctx context.Context, c *client) {
	s.send(c, "profile", s.loadProfile(ctx))
}

func (s *Server) handleUpdateProfile(ctx context.Context, c *client, data json.RawMessage) {
	profile := s.loadProfile(ctx)
	if err := json.Unmarshal(data, &profile); err != nil {
		s.sendError(c, "update_profile", "Invalid profile data")
		return
	}

	if err := s.collections.SaveProfile(ctx, profile); err != nil {
		s.logger.WithError(err).Error("Failed to save profile")
		s.sendError(c, "update_profile", "Failed to save profile; please retry")
		return
	}
	s.send(c, "profile", profile)
}

func (s *Server) handleLogWeight(ctx context.Context, c *client, data json.RawMessage) {
	var input struct {
		Weight float64 `json:"weight"`
		Notes  string  `json:"notes"`
	}
	if err := json.Unmarshal(data, &input); err != nil || input.Weight <= 0 {
		s.sendError(c, "log_weight", "Invalid weight")
		return
	}

	history, err := s.collections.LoadWeightHistory(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load weight history")
		s.sendError(c, "log_weight", "Failed to load history; please retry")
		return
	}
	history = append(history, models.WeightEntry{
		Date:   time.Now(),
		Weight: input.Weight,
		Notes:  input.Notes,
	})
	if err := s.collections.SaveWeightHistory(ctx, history); err != nil {
		s.logger.WithError(err).Error("Failed to save weight history")
		s.sendError(c, "log_weight", "Failed to save weight; please retry")
		return
	}
	s.send(c, "weight_logged", history)
}

func (s *Server) handleListFavorites(ctx context.Context, c *client) {
	favs, err := s.favorites.ListFavorites(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to list favorites")
		s.sendError(c, "list_favorites", "Favorites service unavailable")
		return
	}
	s.send(c, "favorites", favs)
}

func (s *Server) handleAddFavorite(ctx context.Context, c *client, data json.RawMessage) {
	var input favorites.CreateFavoriteInput
	if err := json.Unmarshal(data, &input); err != nil || input.Name == "" {
		s.sendError(c, "add_favorite", "Invalid favorite")
		return
	}

	fav, err := s.favorites.CreateFavorite(ctx, input)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to add favorite")
		s.sendError(c, "add_favorite", "Favorites service unavailable")
		return
	}
	s.send(c, "favorite_added", fav)
}

func (s *Server) handleUpdateFavorite(ctx context.Context, c *client, data json.RawMessage) {
	var input struct {
		ID string `json:"id"`
		favorites.UpdateFavoriteInput
	}
	if err := json.Unmarshal(data, &input); err != nil || input.ID == "" {
		s.sendError(c, "update_favorite", "Invalid favorite update")
		return
	}

	fav, err := s.favorites.UpdateFavorite(ctx, input.ID, input.UpdateFavoriteInput)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to update favorite")
		s.sendError(c, "update_favorite", "Favorites service unavailable")
		return
	}
	s.send(c, "favorite_updated", fav)
}

func (s *Server) handleRemoveFavorite(ctx context.Context, c *client, data json.RawMessage) {
	var input struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &input); err != nil || input.ID == "" {
		s.sendError(c, "remove_favorite", "Invalid favorite id")
		return
	}

	if err := s.favorites.DeleteFavorite(ctx, input.ID); err != nil {
		s.logger.WithError(err).Warn("Failed to remove favorite")
		s.sendError(c, "remove_favorite", "Favorites service unavailable")
		return
	}
	s.send(c, "favorite_removed", map[string]string{"id": input.ID})
}

func (s *Server) handleMergePreviousWeek(ctx context.Context, c *client) {
	added, err := s.favorites.MergePreviousWeek(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to merge previous week")
		s.sendError(c, "merge_previous_week", "Unable to merge previous week right now")
		return
	}
	s.send(c, "previous_week_merged", map[string]int{"added": added})
}

// loadProfile returns the stored profile, or the app defaults when the
// user never completed onboarding.
func (s *Server) loadProfile(ctx context.Context) models.UserProfile {
	profile, err := s.collections.LoadProfile(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load profile, using defaults")
	}
	if profile != nil {
		return *profile
	}
	return models.UserProfile{
		DietaryPreferences: []string{},
		HealthConditions:   []string{},
		Allergens:          []string{},
		DailyCalorieGoal:   2000,
		WeeklyBudget:       100,
		FavoriteFoods:      []string{},
	}
}

func (s *Server) persistInventory(ctx context.Context, c *client) {
	if err := s.collections.SaveInventory(ctx, s.ledger.ListActive()); err != nil {
		s.logger.WithError(err).Error("Failed to persist inventory")
		s.sendError(c, "storage", "Failed to save inventory; please retry")
	}
}

func (s *Server) persistPlans(ctx context.Context, c *client) {
	if err := s.collections.SaveMealPlans(ctx, s.planner.Plans()); err != nil {
		s.logger.WithError(err).Error("Failed to persist meal plans")
		s.sendError(c, "storage", "Failed to save meal plans; please retry")
	}
}

func (s *Server) persistBudget(ctx context.Context, c *client) {
	if err := s.collections.SaveBudgetEntries(ctx, s.tracker.Entries()); err != nil {
		s.logger.WithError(err).Error("Failed to persist budget entries")
		s.sendError(c, "storage", "Failed to save budget; please retry")
	}
}

func (s *Server) send(c *client, messageType string, data any) {
	msg := map[string]any{
		"type": messageType,
		"data": data,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		s.logger.WithError(err).Error("Error sending message")
	}
}

func (s *Server) sendError(c *client, messageType, message string) {
	handlerErrors.WithLabelValues(messageType).Inc()

	msg := map[string]any{
		"type":    "error",
		"source":  messageType,
		"message": message,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		s.logger.WithError(err).Error("Error sending error message")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}
