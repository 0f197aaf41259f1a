// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"resolvd/internal/match"
	"resolvd/internal/shared"
	"golang.org/x/oauth2"
)

const defaultCatalogBaseURL = "https://api.spotify.com/v1"

// DefaultSearchLimit is the number of candidates requested per search when
// the caller doesn't specify one.
const DefaultSearchLimit = 5

// SpotifyCatalog implements the [Catalog] interface against the Spotify
// Web API search endpoint.
type SpotifyCatalog struct {
	baseURL     string
	token       *oauth2.Token
	httpClient  *http.Client
	searchLimit int
}

// NewSpotifyCatalog creates a catalog client for the given base URL.
// An empty baseURL selects the public Spotify API; a nil client falls back
// to [http.DefaultClient] until Authenticate installs a token source.
func NewSpotifyCatalog(baseURL string, client *http.Client) *SpotifyCatalog {
	if baseURL == "" {
		baseURL = defaultCatalogBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &SpotifyCatalog{
		baseURL:     baseURL,
		httpClient:  client,
		searchLimit: DefaultSearchLimit,
	}
}

// SetSearchLimit sets how many candidates [SpotifyCatalog.FindTrack]
// requests per search. Non-positive values keep the current limit.
func (s *SpotifyCatalog) SetSearchLimit(limit int) {
	if limit > 0 {
		s.searchLimit = limit
	}
}

// Name returns the catalog provider name.
func (s *SpotifyCatalog) Name() string {
	return "Spotify"
}

// Authenticate stores the bearer credential. Expects an "access_token" in
// credentials; the token is treated as opaque and never refreshed here.
func (s *SpotifyCatalog) Authenticate(ctx context.Context, credentials map[string]string) error {
	accessToken, ok := credentials["access_token"]
	if !ok || accessToken == "" {
		return fmt.Errorf("%w: missing access_token in credentials", shared.ErrMissingCredentials)
	}

	s.token = &oauth2.Token{AccessToken: accessToken}
	s.httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(s.token))
	return nil
}

// doRequest performs an authenticated GET against the catalog API and
// decodes the JSON body into result. A 204 or empty body leaves result
// untouched. Non-2xx responses are classified into a [CatalogError].
func (s *SpotifyCatalog) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := s.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("catalog request failed: %w", ClassifyStatus(resp.StatusCode, resp.Header.Get("Retry-After")))
	}

	if resp.StatusCode == http.StatusNoContent || result == nil {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) == 0 {
		// some gateways return 200 with an empty body for zero results
		return nil
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

type searchResponse struct {
	Tracks struct {
		Items []CatalogTrack `json:"items"`
	} `json:"tracks"`
}

// SearchTracks searches the catalog for candidate tracks matching the
// title and artist, in the provider's ranking order.
func (s *SpotifyCatalog) SearchTracks(ctx context.Context, title, artist string, limit int) ([]CatalogTrack, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > 50 {
		limit = 50
	}

	query := fmt.Sprintf("%s %s", title, artist)
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)

	var response searchResponse
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	return response.Tracks.Items, nil
}

// FindTrack returns the first search candidate whose name matches the title
// and whose credited artists include a match for the artist. Returns nil
// when the provider returns zero candidates or none clear the threshold.
func (s *SpotifyCatalog) FindTrack(ctx context.Context, title, artist string, threshold float64) (*CatalogTrack, error) {
	candidates, err := s.SearchTracks(ctx, title, artist, s.searchLimit)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		c := &candidates[i]
		if match.TrackMatches(title, artist, c.Name, c.ArtistNames(), threshold) {
			return c, nil
		}
	}

	return nil, nil
}
