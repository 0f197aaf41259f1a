package repositories

import (
	"testing"

	"resolvd/internal/services"
	"resolvd/internal/shared"
)

func newTestCache(t *testing.T) *MatchCache {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cache := NewMatchCache(db)
	if err := cache.Init(); err != nil {
		t.Fatalf("failed to init cache: %v", err)
	}
	return cache
}

func sampleTrack() services.CatalogTrack {
	return services.CatalogTrack{
		ID:   "4uLU6hMCjMI75M1A2tKUQC",
		URI:  "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
		Name: "Never Gonna Give You Up",
		Artists: []services.CatalogArtist{
			{ID: "0gxyHStUsqpMadRV0Di1Qt", Name: "Rick Astley"},
		},
		Album:      services.CatalogAlbum{Name: "Whenever You Need Somebody"},
		DurationMS: 213573,
	}
}

func TestMatchCache(t *testing.T) {
	t.Run("Miss Returns Nil", func(t *testing.T) {
		cache := newTestCache(t)

		track, err := cache.Get("Unknown Song", "Unknown Artist")
		if err != nil {
			t.Fatalf("expected no error on miss, got %v", err)
		}
		if track != nil {
			t.Errorf("expected nil on miss, got %+v", track)
		}
	})

	t.Run("Roundtrip", func(t *testing.T) {
		cache := newTestCache(t)
		want := sampleTrack()

		if err := cache.Put("Never Gonna Give You Up", "Rick Astley", want); err != nil {
			t.Fatalf("failed to put: %v", err)
		}

		got, err := cache.Get("Never Gonna Give You Up", "Rick Astley")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got == nil {
			t.Fatal("expected a hit")
		}
		if got.ID != want.ID || got.URI != want.URI || got.Name != want.Name {
			t.Errorf("roundtrip mismatch: got %+v", got)
		}
		if len(got.Artists) != 1 || got.Artists[0].Name != "Rick Astley" {
			t.Errorf("expected artists to roundtrip, got %+v", got.Artists)
		}
		if got.DurationMS != want.DurationMS {
			t.Errorf("expected duration %d, got %d", want.DurationMS, got.DurationMS)
		}
	})

	t.Run("Key Is Normalized", func(t *testing.T) {
		cache := newTestCache(t)

		if err := cache.Put("Don't Stop Believin'", "Journey", sampleTrack()); err != nil {
			t.Fatalf("failed to put: %v", err)
		}

		got, err := cache.Get("  DONT stop believin ", "journey")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got == nil {
			t.Error("expected normalized key variants to hit the same entry")
		}
	})

	t.Run("Duplicate Put Is Ignored", func(t *testing.T) {
		cache := newTestCache(t)

		if err := cache.Put("Song", "Artist", sampleTrack()); err != nil {
			t.Fatalf("first put failed: %v", err)
		}

		other := sampleTrack()
		other.ID = "different"
		if err := cache.Put("Song", "Artist", other); err != nil {
			t.Fatalf("duplicate put should be silent, got %v", err)
		}

		got, err := cache.Get("Song", "Artist")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got.ID != sampleTrack().ID {
			t.Errorf("expected first entry to win, got %s", got.ID)
		}
	})

	t.Run("Stats And Clear", func(t *testing.T) {
		cache := newTestCache(t)

		stats, err := cache.Stats()
		if err != nil {
			t.Fatalf("failed to read stats: %v", err)
		}
		if stats.Entries != 0 {
			t.Errorf("expected empty cache, got %d entries", stats.Entries)
		}

		cache.Put("A", "B", sampleTrack())
		cache.Put("C", "D", sampleTrack())

		stats, err = cache.Stats()
		if err != nil {
			t.Fatalf("failed to read stats: %v", err)
		}
		if stats.Entries != 2 {
			t.Errorf("expected 2 entries, got %d", stats.Entries)
		}

		deleted, err := cache.Clear()
		if err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if deleted != 2 {
			t.Errorf("expected 2 deleted, got %d", deleted)
		}
	})
}

func TestQueryKey(t *testing.T) {
	tc := []struct {
		name   string
		title  string
		artist string
		want   string
	}{
		{
			name:   "basic normalization",
			title:  "Song Title",
			artist: "Artist Name",
			want:   "song title|artist name",
		},
		{
			name:   "extra whitespace",
			title:  "  Song   Title  ",
			artist: "  Artist   Name  ",
			want:   "song title|artist name",
		},
		{
			name:   "punctuation and apostrophes",
			title:  "Don't Stop!",
			artist: "The Band",
			want:   "dont stop|the band",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := QueryKey(tt.title, tt.artist)
			if got != tt.want {
				t.Errorf("QueryKey() = %v, want %v", got, tt.want)
			}
		})
	}
}
