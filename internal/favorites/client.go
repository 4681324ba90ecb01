// Package favorites is the client for the remote favorites and grocery
// history service. The service owns its own storage; this client only
// shapes requests and guards against transient failures.
package favorites

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/franckalain/nutriledger/internal/fault"
)

const (
	defaultTimeout = 10 * time.Second
	retryBackoff   = 500 * time.Millisecond
)

// Favorite is one saved product on the remote service.
type Favorite struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Brand string  `json:"brand"`
	Price float64 `json:"price"`
}

// HistoryEntry is one grocery purchase recorded on the remote service.
// MergedIntoWeeks lists the ISO week tags this entry has already been
// merged into, which is what makes merge-previous-week idempotent.
type HistoryEntry struct {
	ID              string   `json:"id"`
	ProductName     string   `json:"productName"`
	Price           float64  `json:"price"`
	Date            string   `json:"date"` // YYYY-MM-DD
	MergedIntoWeeks []string `json:"mergedIntoWeeks,omitempty"`
}

// CreateFavoriteInput is the payload for creating a favorite.
type CreateFavoriteInput struct {
	Name  string  `json:"name"`
	Brand string  `json:"brand"`
	Price float64 `json:"price"`
}

// UpdateFavoriteInput is the partial payload for updating a favorite.
// Nil fields are left untouched by the service.
type UpdateFavoriteInput struct {
	Name  *string `json:"name,omitempty"`
	Brand *string `json:"brand,omitempty"`
	Price float64 `json:"price"`
}

// HistoryInput is the payload for recording a grocery history entry.
type HistoryInput struct {
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	Date        string  `json:"date"` // YYYY-MM-DD
}

// Client talks to the favorites service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// ListFavorites fetches every favorite.
func (c *Client) ListFavorites(ctx context.Context) ([]Favorite, error) {
	var resp struct {
		Favorites []Favorite `json:"favorites"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/favorites", nil, &resp, 1); err != nil {
		return nil, err
	}
	return resp.Favorites, nil
}

// CreateFavorite saves a new favorite and returns the stored record.
func (c *Client) CreateFavorite(ctx context.Context, input CreateFavoriteInput) (Favorite, error) {
	var resp struct {
		Favorite Favorite `json:"favorite"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/favorites", input, &resp, 0); err != nil {
		return Favorite{}, err
	}
	return resp.Favorite, nil
}

// UpdateFavorite applies a partial update to the favorite with the
// given id and returns the updated record.
func (c *Client) UpdateFavorite(ctx context.Context, id string, input UpdateFavoriteInput) (Favorite, error) {
	var resp struct {
		Favorite Favorite `json:"favorite"`
	}
	if err := c.do(ctx, http.MethodPatch, "/api/favorites/"+id, input, &resp, 0); err != nil {
		return Favorite{}, err
	}
	return resp.Favorite, nil
}

// DeleteFavorite removes the favorite with the given id.
func (c *Client) DeleteFavorite(ctx context.Context, id string) error {
	var resp struct {
		Success bool `json:"success"`
	}
	return c.do(ctx, http.MethodDelete, "/api/favorites/"+id, nil, &resp, 0)
}

// AddHistoryEntry records one grocery purchase.
func (c *Client) AddHistoryEntry(ctx context.Context, input HistoryInput) (HistoryEntry, error) {
	var resp struct {
		Entry HistoryEntry `json:"entry"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/grocery-history", input, &resp, 0); err != nil {
		return HistoryEntry{}, err
	}
	return resp.Entry, nil
}

// MergePreviousWeek asks the service to copy last ISO week's grocery
// entries into the current week and returns how many were added. The
// service tags source entries with the weeks they were merged into, so
// repeating the call within the same week adds nothing. Safe to retry.
func (c *Client) MergePreviousWeek(ctx context.Context) (int, error) {
	var resp struct {
		Added int `json:"added"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/grocery-history/merge-previous-week", nil, &resp, 1); err != nil {
		return 0, err
	}
	return resp.Added, nil
}

// do issues one request, retrying up to `retries` extra times on
// network errors and 5xx responses. Only idempotent calls pass a
// non-zero retry count.
func (c *Client) do(ctx context.Context, method, path string, body, out any, retries int) error {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fault.Degraded("favorites "+method+" "+path, ctx.Err())
			case <-time.After(retryBackoff):
			}
			c.logger.WithFields(logrus.Fields{
				"path":    path,
				"attempt": attempt + 1,
			}).Warn("Retrying favorites request")
		}

		retryable, err := c.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any) (retryable bool, err error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("error encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fault.Degraded("favorites "+method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return true, fault.Degraded("favorites "+method+" "+path,
			fmt.Errorf("server returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("favorites %s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fault.Degraded("favorites "+method+" "+path,
				fmt.Errorf("error decoding response: %w", err))
		}
	}
	return false, nil
}
