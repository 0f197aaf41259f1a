package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"resolvd/internal/match"
	"resolvd/internal/services"
)

const matchCacheSchema = `
CREATE TABLE IF NOT EXISTS match_cache (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query_key TEXT NOT NULL UNIQUE,
	track_id TEXT NOT NULL,
	track_uri TEXT NOT NULL,
	track_name TEXT NOT NULL,
	artists TEXT NOT NULL,
	album_name TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_match_cache_track_id ON match_cache(track_id);
`

// MatchCache persists resolved (title, artist) -> track mappings in SQLite.
type MatchCache struct {
	db *sql.DB
}

// NewMatchCache creates a MatchCache backed by the given database.
func NewMatchCache(db *sql.DB) *MatchCache {
	return &MatchCache{db: db}
}

// Init creates the cache table if it doesn't exist.
func (c *MatchCache) Init() error {
	if _, err := c.db.Exec(matchCacheSchema); err != nil {
		return fmt.Errorf("failed to create match_cache table: %w", err)
	}
	return nil
}

// QueryKey builds the canonical cache key for a query. Two descriptions
// that normalize identically share one cache entry.
func QueryKey(title, artist string) string {
	return match.Normalize(title) + "|" + match.Normalize(artist)
}

// Get looks up a cached match. Returns (nil, nil) on a miss.
func (c *MatchCache) Get(title, artist string) (*services.CatalogTrack, error) {
	row := c.db.QueryRow(
		`SELECT track_id, track_uri, track_name, artists, album_name, duration_ms
		 FROM match_cache WHERE query_key = ?`,
		QueryKey(title, artist),
	)

	var track services.CatalogTrack
	var artistsJSON string
	err := row.Scan(&track.ID, &track.URI, &track.Name, &artistsJSON, &track.Album.Name, &track.DurationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read match cache: %w", err)
	}

	if err := json.Unmarshal([]byte(artistsJSON), &track.Artists); err != nil {
		return nil, fmt.Errorf("corrupt artists column for %q: %w", QueryKey(title, artist), err)
	}

	return &track, nil
}

// Put stores a resolved match. Duplicate keys are silently ignored so
// concurrent workers resolving the same description don't race.
func (c *MatchCache) Put(title, artist string, track services.CatalogTrack) error {
	artistsJSON, err := json.Marshal(track.Artists)
	if err != nil {
		return fmt.Errorf("failed to marshal artists: %w", err)
	}

	_, err = c.db.Exec(
		`INSERT INTO match_cache (query_key, track_id, track_uri, track_name, artists, album_name, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		QueryKey(title, artist), track.ID, track.URI, track.Name, string(artistsJSON), track.Album.Name, track.DurationMS,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache match: %w", err)
	}

	return nil
}

// CacheStats summarizes the cache contents.
type CacheStats struct {
	Entries     int       `json:"entries"`
	OldestEntry time.Time `json:"oldest_entry,omitzero"`
	NewestEntry time.Time `json:"newest_entry,omitzero"`
}

// Stats returns entry count and age bounds for the cache.
func (c *MatchCache) Stats() (*CacheStats, error) {
	var stats CacheStats
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM match_cache`).Scan(&stats.Entries); err != nil {
		return nil, fmt.Errorf("failed to count cache entries: %w", err)
	}

	if stats.Entries > 0 {
		row := c.db.QueryRow(`SELECT MIN(created_at), MAX(created_at) FROM match_cache`)
		var oldest, newest string
		if err := row.Scan(&oldest, &newest); err != nil {
			return nil, fmt.Errorf("failed to read cache age bounds: %w", err)
		}
		if t, err := time.Parse("2006-01-02 15:04:05", oldest); err == nil {
			stats.OldestEntry = t
		}
		if t, err := time.Parse("2006-01-02 15:04:05", newest); err == nil {
			stats.NewestEntry = t
		}
	}

	return &stats, nil
}

// Clear removes all cached matches and returns how many were deleted.
func (c *MatchCache) Clear() (int64, error) {
	res, err := c.db.Exec(`DELETE FROM match_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear match cache: %w", err)
	}
	return res.RowsAffected()
}
