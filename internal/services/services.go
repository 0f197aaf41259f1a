package services

import (
	"context"
)

// Catalog defines the interface for external track catalogs that can be
// searched by free-text title and artist.
type Catalog interface {
	// Authenticate stores the bearer credential used on subsequent requests.
	// The credential is opaque: it is forwarded as-is and never refreshed.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// SearchTracks returns up to limit candidate tracks for the given
	// title and artist, in the provider's ranking order.
	SearchTracks(ctx context.Context, title, artist string, limit int) ([]CatalogTrack, error)

	// FindTrack returns the first candidate that fuzzy-matches the query,
	// or nil when no candidate clears the threshold. A nil track with a
	// nil error is a valid "no match" outcome, not a failure.
	FindTrack(ctx context.Context, title, artist string, threshold float64) (*CatalogTrack, error)

	// Name returns the name of the catalog provider (e.g., "Spotify")
	Name() string
}

// CatalogTrack represents a track returned by the catalog.
type CatalogTrack struct {
	ID         string          `json:"id"`
	URI        string          `json:"uri"`
	Name       string          `json:"name"`
	Artists    []CatalogArtist `json:"artists"`
	Album      CatalogAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
}

// ArtistNames returns the names of all credited artists in order.
func (t CatalogTrack) ArtistNames() []string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return names
}

// CatalogArtist represents a credited artist on a track.
type CatalogArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CatalogAlbum represents the album a track belongs to.
type CatalogAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []CatalogImage `json:"images"`
}

// CatalogImage represents an image resource.
type CatalogImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}
