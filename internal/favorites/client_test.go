package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckalain/nutriledger/internal/fault"
)

func TestListFavorites(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/favorites", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"favorites": []Favorite{
				{ID: "f1", Name: "Oat Milk", Brand: "Oatly", Price: 4.99},
				{ID: "f2", Name: "Almond Butter", Brand: "Justin's", Price: 9.49},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	got, err := client.ListFavorites(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Oat Milk", got[0].Name)
	assert.Equal(t, 9.49, got[1].Price)
}

func TestCreateFavoriteSendsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var input CreateFavoriteInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, "Oat Milk", input.Name)

		json.NewEncoder(w).Encode(map[string]any{
			"favorite": Favorite{ID: "f1", Name: input.Name, Brand: input.Brand, Price: input.Price},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	fav, err := client.CreateFavorite(context.Background(), CreateFavoriteInput{
		Name: "Oat Milk", Brand: "Oatly", Price: 4.99,
	})
	require.NoError(t, err)
	assert.Equal(t, "f1", fav.ID)
	assert.Equal(t, 4.99, fav.Price)
}

func TestUpdateFavoriteOmitsUnsetFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/favorites/f1", r.URL.Path)

		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.NotContains(t, raw, "name")
		assert.NotContains(t, raw, "brand")
		assert.Equal(t, 5.49, raw["price"])

		json.NewEncoder(w).Encode(map[string]any{
			"favorite": Favorite{ID: "f1", Name: "Oat Milk", Brand: "Oatly", Price: 5.49},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	fav, err := client.UpdateFavorite(context.Background(), "f1", UpdateFavoriteInput{Price: 5.49})
	require.NoError(t, err)
	assert.Equal(t, 5.49, fav.Price)
}

func TestDeleteFavorite(t *testing.T) {
	var deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	require.NoError(t, client.DeleteFavorite(context.Background(), "f2"))
	assert.Equal(t, "/api/favorites/f2", deleted)
}

func TestAddHistoryEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/grocery-history", r.URL.Path)

		var input HistoryInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		json.NewEncoder(w).Encode(map[string]any{
			"entry": HistoryEntry{
				ID:          "h1",
				ProductName: input.ProductName,
				Price:       input.Price,
				Date:        input.Date,
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	entry, err := client.AddHistoryEntry(context.Background(), HistoryInput{
		ProductName: "Greek Yogurt", Price: 6.29, Date: "2026-08-30",
	})
	require.NoError(t, err)
	assert.Equal(t, "h1", entry.ID)
	assert.Equal(t, "2026-08-30", entry.Date)
}

func TestMergePreviousWeekIdempotent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/grocery-history/merge-previous-week", r.URL.Path)
		calls++
		added := 0
		if calls == 1 {
			added = 3
		}
		json.NewEncoder(w).Encode(map[string]any{"added": added})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	added, err := client.MergePreviousWeek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	added, err = client.MergePreviousWeek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}

func TestListRetriesOnServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"favorites": []Favorite{{ID: "f1"}}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	got, err := client.ListFavorites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, got, 1)
}

func TestCreateDoesNotRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.CreateFavorite(context.Background(), CreateFavoriteInput{Name: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrDependencyDegraded))
	assert.Equal(t, 1, calls)
}

func TestClientErrorIsNotDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	err := client.DeleteFavorite(context.Background(), "missing")
	require.Error(t, err)
	assert.False(t, errors.Is(err, fault.ErrDependencyDegraded))
}
