// package formatter renders resolution run reports in various formats (JSON, CSV, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"resolvd/internal/resolver"
	"resolvd/internal/shared"
)

// Entry statuses.
const (
	StatusMatched   = "matched"
	StatusUnmatched = "unmatched"
	StatusFailed    = "failed"
)

// ReportEntry is the flattened outcome of one query.
type ReportEntry struct {
	Index        int    `json:"index"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Status       string `json:"status"`
	TrackID      string `json:"track_id,omitempty"`
	TrackURI     string `json:"track_uri,omitempty"`
	TrackName    string `json:"track_name,omitempty"`
	TrackArtists string `json:"track_artists,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Report summarizes a resolution run.
type Report struct {
	RunID     string        `json:"run_id"`
	CreatedAt time.Time     `json:"created_at"`
	Total     int           `json:"total"`
	Matched   int           `json:"matched"`
	Unmatched int           `json:"unmatched"`
	Failed    int           `json:"failed"`
	MatchRate float64       `json:"match_rate"`
	Entries   []ReportEntry `json:"entries"`
}

// NewReport builds a Report from a completed batch. Pass an empty runID to
// have one generated.
func NewReport(runID string, results []resolver.MatchResult) *Report {
	if runID == "" {
		runID = shared.GenerateID()
	}

	report := &Report{
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Total:     len(results),
		Entries:   make([]ReportEntry, 0, len(results)),
	}

	for _, res := range results {
		entry := ReportEntry{
			Index:  res.Query.Index,
			Title:  res.Query.Title,
			Artist: res.Query.Artist,
		}

		switch {
		case res.Err != nil:
			entry.Status = StatusFailed
			entry.Error = res.Err.Error()
			report.Failed++
		case res.Track != nil:
			entry.Status = StatusMatched
			entry.TrackID = res.Track.ID
			entry.TrackURI = res.Track.URI
			entry.TrackName = res.Track.Name
			entry.TrackArtists = strings.Join(res.Track.ArtistNames(), "; ")
			report.Matched++
		default:
			entry.Status = StatusUnmatched
			report.Unmatched++
		}

		report.Entries = append(report.Entries, entry)
	}

	if report.Total > 0 {
		report.MatchRate = 100 * float64(report.Matched) / float64(report.Total)
	}
	return report
}

// ToJSON renders the report as indented JSON.
func (r *Report) ToJSON() ([]byte, error) {
	return shared.MarshalJSON(r, true)
}

// ToCSV renders the report entries as CSV with columns: Index, Title, Artist, Status, TrackID, TrackURI, TrackName, TrackArtists, Error
func (r *Report) ToCSV() ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "Title", "Artist", "Status", "TrackID", "TrackURI", "TrackName", "TrackArtists", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range r.Entries {
		record := []string{
			fmt.Sprintf("%d", entry.Index),
			entry.Title,
			entry.Artist,
			entry.Status,
			entry.TrackID,
			entry.TrackURI,
			entry.TrackName,
			entry.TrackArtists,
			entry.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToText renders the report as plain text for terminal output.
func (r *Report) ToText() []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
	buf.WriteString(fmt.Sprintf("Queries: %d  Matched: %d  Unmatched: %d  Failed: %d  (%.1f%%)\n\n",
		r.Total, r.Matched, r.Unmatched, r.Failed, r.MatchRate))

	for _, entry := range r.Entries {
		switch entry.Status {
		case StatusMatched:
			buf.WriteString(fmt.Sprintf("%d. ✓ %s - %s → %s (%s)\n", entry.Index+1, entry.Artist, entry.Title, entry.TrackName, entry.TrackID))
		case StatusFailed:
			buf.WriteString(fmt.Sprintf("%d. ✗ %s - %s: %s\n", entry.Index+1, entry.Artist, entry.Title, entry.Error))
		default:
			buf.WriteString(fmt.Sprintf("%d. ? %s - %s: no match\n", entry.Index+1, entry.Artist, entry.Title))
		}
	}

	return buf.Bytes()
}

// WriteReport writes the report to disk in the given format (json or csv)
// and returns the path written. An empty path defaults to
// resolve_{runID}.{ext} in the working directory.
func WriteReport(report *Report, format, path string) (string, error) {
	var (
		data []byte
		err  error
		ext  string
	)

	switch format {
	case "csv":
		data, err = report.ToCSV()
		ext = "csv"
	case "json", "":
		data, err = report.ToJSON()
		ext = "json"
	default:
		return "", fmt.Errorf("%w: unsupported report format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	if path == "" {
		path = fmt.Sprintf("resolve_%s.%s", report.RunID, ext)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}
