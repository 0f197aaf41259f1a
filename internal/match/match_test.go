package match

import "testing"

func TestNormalize(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercases and trims",
			input: "  Dont Stop Believin  ",
			want:  "dont stop believin",
		},
		{
			name:  "strips apostrophes",
			input: "Don't Stop Believin'",
			want:  "dont stop believin",
		},
		{
			name:  "strips typographic apostrophes",
			input: "Don’t Stop",
			want:  "dont stop",
		},
		{
			name:  "strips accents",
			input: "Beyoncé",
			want:  "beyonce",
		},
		{
			name:  "punctuation becomes space",
			input: "AC/DC - Back in Black (Remastered)",
			want:  "ac dc back in black remastered",
		},
		{
			name:  "collapses whitespace runs",
			input: "a   b\t\tc",
			want:  "a b c",
		},
		{
			name:  "keeps digits",
			input: "Summer of '69",
			want:  "summer of 69",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only punctuation",
			input: "?!...---",
			want:  "",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	t.Run("idempotent", func(t *testing.T) {
		inputs := []string{"Don't Stop Believin'", "Beyoncé — Halo", "  a  b  ", "", "123 go!"}
		for _, s := range inputs {
			once := Normalize(s)
			twice := Normalize(once)
			if once != twice {
				t.Errorf("Normalize not idempotent for %q: %q != %q", s, once, twice)
			}
		}
	})
}

func TestEditDistance(t *testing.T) {
	tc := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"cat", "bat", 1},
		{"", "abc", 3},
		{"abc", "", 3},
		{"", "", 0},
		{"same", "same", 0},
	}

	for _, tt := range tc {
		if got := EditDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("EditDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	t.Run("identical strings score 1", func(t *testing.T) {
		for _, s := range []string{"a", "hello world", "Don't"} {
			if got := Similarity(s, s); got != 1 {
				t.Errorf("Similarity(%q, %q) = %f, want 1", s, s, got)
			}
		}
	})

	t.Run("empty string scores 0", func(t *testing.T) {
		if got := Similarity("hello", ""); got != 0 {
			t.Errorf("Similarity(hello, \"\") = %f, want 0", got)
		}
		if got := Similarity("", "hello"); got != 0 {
			t.Errorf("Similarity(\"\", hello) = %f, want 0", got)
		}
	})

	t.Run("ratio in bounds", func(t *testing.T) {
		got := Similarity("kitten", "sitting")
		want := 1 - 3.0/7.0
		if got < want-1e-9 || got > want+1e-9 {
			t.Errorf("Similarity(kitten, sitting) = %f, want %f", got, want)
		}
	})

	t.Run("fewer edits score higher", func(t *testing.T) {
		closer := Similarity("cat", "bat")
		farther := Similarity("cat", "big")
		if closer <= farther {
			t.Errorf("expected %f > %f", closer, farther)
		}
	})
}

func TestMatches(t *testing.T) {
	tc := []struct {
		name      string
		query     string
		candidate string
		want      bool
	}{
		{
			name:      "exact after normalization",
			query:     "Dont Stop Believin",
			candidate: "Don't Stop Believin'",
			want:      true,
		},
		{
			name:      "containment",
			query:     "Dream",
			candidate: "Dream On",
			want:      true,
		},
		{
			name:      "containment reversed",
			query:     "Dream On (Live)",
			candidate: "Dream On",
			want:      true,
		},
		{
			name:      "remaster suffix",
			query:     "Back in Black",
			candidate: "Back in Black - Remastered 2003",
			want:      true,
		},
		{
			name:      "no match",
			query:     "Hello",
			candidate: "Goodbye",
			want:      false,
		},
		{
			name:      "close misspelling clears threshold",
			query:     "Bohemian Rapsody",
			candidate: "Bohemian Rhapsody",
			want:      true,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := Matches(tt.query, tt.candidate, DefaultThreshold)
			if got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.query, tt.candidate, got, tt.want)
			}
		})
	}

	t.Run("zero threshold uses default", func(t *testing.T) {
		if Matches("Hello", "Goodbye", 0) {
			t.Error("expected no match with default threshold")
		}
	})
}

func TestTrackMatches(t *testing.T) {
	t.Run("matches any credited artist", func(t *testing.T) {
		artists := []string{"Queen", "David Bowie"}
		if !TrackMatches("Under Pressure", "david bowie", "Under Pressure", artists, DefaultThreshold) {
			t.Error("expected match on second credited artist")
		}
	})

	t.Run("title mismatch fails", func(t *testing.T) {
		if TrackMatches("Under Pressure", "Queen", "Radio Ga Ga", []string{"Queen"}, DefaultThreshold) {
			t.Error("expected title mismatch to fail")
		}
	})

	t.Run("artist mismatch fails", func(t *testing.T) {
		if TrackMatches("Under Pressure", "Nirvana", "Under Pressure", []string{"Queen", "David Bowie"}, DefaultThreshold) {
			t.Error("expected artist mismatch to fail")
		}
	})

	t.Run("no credited artists fails", func(t *testing.T) {
		if TrackMatches("Under Pressure", "Queen", "Under Pressure", nil, DefaultThreshold) {
			t.Error("expected empty artist list to fail")
		}
	})
}
