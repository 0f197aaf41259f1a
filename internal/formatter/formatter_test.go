package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"resolvd/internal/resolver"
	"resolvd/internal/services"
	itesting "resolvd/internal/testing"
)

func sampleResults() []resolver.MatchResult {
	return []resolver.MatchResult{
		{
			Query: resolver.Query{Index: 0, Title: "Song A", Artist: "Artist A"},
			Track: &services.CatalogTrack{
				ID:   "t1",
				URI:  "spotify:track:t1",
				Name: "Song A",
				Artists: []services.CatalogArtist{
					{Name: "Artist A"},
					{Name: "Featured B"},
				},
			},
		},
		{
			Query: resolver.Query{Index: 1, Title: "Song B", Artist: "Artist B"},
		},
		{
			Query: resolver.Query{Index: 2, Title: "Song C", Artist: "Artist C"},
			Err:   errors.New("request failed"),
		},
	}
}

func TestNewReport(t *testing.T) {
	t.Run("Tallies Outcomes", func(t *testing.T) {
		report := NewReport("run-1", sampleResults())

		if report.RunID != "run-1" {
			t.Errorf("expected run ID run-1, got %s", report.RunID)
		}
		if report.Total != 3 || report.Matched != 1 || report.Unmatched != 1 || report.Failed != 1 {
			t.Errorf("unexpected tallies: %+v", report)
		}
		if report.MatchRate < 33.2 || report.MatchRate > 33.4 {
			t.Errorf("expected match rate ~33.3, got %f", report.MatchRate)
		}

		entry := report.Entries[0]
		if entry.Status != StatusMatched {
			t.Errorf("expected matched, got %s", entry.Status)
		}
		if entry.TrackArtists != "Artist A; Featured B" {
			t.Errorf("expected joined artists, got %q", entry.TrackArtists)
		}
		if report.Entries[1].Status != StatusUnmatched {
			t.Errorf("expected unmatched, got %s", report.Entries[1].Status)
		}
		if report.Entries[2].Status != StatusFailed || report.Entries[2].Error == "" {
			t.Errorf("expected failed with error, got %+v", report.Entries[2])
		}
	})

	t.Run("Generates Run ID", func(t *testing.T) {
		report := NewReport("", nil)
		if report.RunID == "" {
			t.Error("expected a generated run ID")
		}
		if report.MatchRate != 0 {
			t.Errorf("expected match rate 0 for empty run, got %f", report.MatchRate)
		}
	})
}

func TestReportFormats(t *testing.T) {
	report := NewReport("run-1", sampleResults())

	t.Run("JSON Roundtrip", func(t *testing.T) {
		data, err := report.ToJSON()
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}

		var decoded Report
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("failed to decode report JSON: %v", err)
		}
		if decoded.RunID != report.RunID || len(decoded.Entries) != 3 {
			t.Errorf("roundtrip mismatch: %+v", decoded)
		}
	})

	t.Run("CSV Structure", func(t *testing.T) {
		data, err := report.ToCSV()
		if err != nil {
			t.Fatalf("ToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("failed to parse CSV: %v", err)
		}
		if len(records) != 4 {
			t.Fatalf("expected header + 3 rows, got %d", len(records))
		}
		if records[0][0] != "Index" || records[0][3] != "Status" {
			t.Errorf("unexpected headers: %v", records[0])
		}
		if records[1][3] != StatusMatched || records[3][3] != StatusFailed {
			t.Errorf("unexpected statuses: %v %v", records[1], records[3])
		}
	})

	t.Run("Text Summary", func(t *testing.T) {
		text := string(report.ToText())
		if !strings.Contains(text, "Run: run-1") {
			t.Errorf("expected run ID in text output, got %q", text)
		}
		if !strings.Contains(text, "Matched: 1") {
			t.Errorf("expected tallies in text output, got %q", text)
		}
	})
}

func TestWriteReport(t *testing.T) {
	t.Run("Writes JSON", func(t *testing.T) {
		report := NewReport("run-1", sampleResults())
		path := filepath.Join(t.TempDir(), "report.json")

		written, err := WriteReport(report, "json", path)
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		itesting.AssertFileExists(t, written)

		content := itesting.MustReadFile(t, written)
		if !strings.Contains(content, `"run_id": "run-1"`) {
			t.Errorf("expected run ID in report, got %q", content)
		}
	})

	t.Run("Writes CSV", func(t *testing.T) {
		report := NewReport("run-1", sampleResults())
		path := filepath.Join(t.TempDir(), "report.csv")

		if _, err := WriteReport(report, "csv", path); err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		itesting.AssertFileExists(t, path)
	})

	t.Run("Default Path Uses Run ID", func(t *testing.T) {
		wd := itesting.MustGetwd(t)
		itesting.MustChdir(t, t.TempDir())
		defer itesting.MustChdir(t, wd)

		report := NewReport("run-1", nil)
		path, err := WriteReport(report, "", "")
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		if path != "resolve_run-1.json" {
			t.Errorf("expected default path resolve_run-1.json, got %s", path)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		if _, err := WriteReport(NewReport("run-1", nil), "yaml", ""); err == nil {
			t.Error("expected error for unsupported format")
		}
	})
}
