// Package googlebooks provides a thin client for the Google Books volumes
// API, used to look up bibliographic data by ISBN or free-text query.
package googlebooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shelfstream/catalog"
	"github.com/shelfstream/catalog/isbn"
)

const defaultBaseURL = "https://www.googleapis.com/books/v1"

// Volume is the subset of the Google Books volume resource the catalog
// exposes to callers.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

// VolumeInfo carries the bibliographic fields of a volume.
type VolumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
	Description   string   `json:"description"`
	PageCount     int      `json:"pageCount"`
	Categories    []string `json:"categories"`
	Language      string   `json:"language"`
}

type searchResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

// Client calls the Google Books volumes API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     catalog.Logger
}

// NewClient creates a Google Books client. apiKey may be empty; the volumes
// API serves unauthenticated requests with a lower quota.
func NewClient(apiKey string, logger catalog.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint.
// Used in tests to point at an httptest server.
func NewClientWithBaseURL(baseURL, apiKey string, logger catalog.Logger) *Client {
	c := NewClient(apiKey, logger)
	c.baseURL = baseURL
	return c
}

// Search queries volumes by free text. Returns an empty slice when nothing
// matches.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Volume, error) {
	if query == "" {
		return nil, catalog.NewError(catalog.ErrCodeValidation, "search query is required")
	}
	if limit <= 0 || limit > 40 {
		limit = 10
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprintf("%d", limit))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	return c.volumes(ctx, params)
}

// LookupISBN finds the volume registered under the given ISBN.
// Returns ErrNoData when Google Books has no matching volume.
func (c *Client) LookupISBN(ctx context.Context, raw string) (*Volume, error) {
	if err := isbn.Validate(raw); err != nil {
		return nil, catalog.NewErrorWithCause(catalog.ErrCodeValidation, "invalid ISBN", err)
	}

	params := url.Values{}
	params.Set("q", "isbn:"+isbn.Normalize(raw))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	volumes, err := c.volumes(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(volumes) == 0 {
		return nil, catalog.ErrNoData
	}
	return &volumes[0], nil
}

func (c *Client) volumes(ctx context.Context, params url.Values) ([]Volume, error) {
	endpoint := fmt.Sprintf("%s/volumes?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, catalog.NewErrorWithCause(catalog.ErrCodeDelivery, "Google Books request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, catalog.NewError(catalog.ErrCodeDelivery,
			fmt.Sprintf("Google Books returned status %d", resp.StatusCode))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, catalog.NewErrorWithCause(catalog.ErrCodeDeserialization, "failed to decode Google Books response", err)
	}

	c.logger.Debugf("Google Books query returned %d items", result.TotalItems)

	return result.Items, nil
}
