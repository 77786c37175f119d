package testing

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// SongRecord returns a song file record that matches the play in [NextSongEvent].
func SongRecord() map[string]any {
	return map[string]any{
		"num_songs":        1,
		"artist_id":        "ARD7TVE1187B99BFB1",
		"artist_latitude":  nil,
		"artist_longitude": nil,
		"artist_location":  "California - LA",
		"artist_name":      "Casual",
		"song_id":          "SOMZWCG12A8C13C480",
		"title":            "I Didn't Mean To",
		"duration":         218.93179,
		"year":             0,
	}
}

// NextSongEvent returns a song play log event for [SongRecord].
func NextSongEvent() map[string]any {
	return map[string]any{
		"artist":        "Casual",
		"auth":          "Logged In",
		"firstName":     "Jacob",
		"gender":        "M",
		"itemInSession": 0,
		"lastName":      "Klein",
		"length":        218.93179,
		"level":         "paid",
		"location":      "Tampa-St. Petersburg-Clearwater, FL",
		"method":        "PUT",
		"page":          "NextSong",
		"registration":  1540558108796.0,
		"sessionId":     518,
		"song":          "I Didn't Mean To",
		"status":        200,
		"ts":            1541121934796,
		"userAgent":     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_9_4)",
		"userId":        "73",
	}
}

// HomeEvent returns a page view that is not a song play.
func HomeEvent() map[string]any {
	return map[string]any{
		"artist":    nil,
		"auth":      "Logged In",
		"firstName": "Jacob",
		"lastName":  "Klein",
		"level":     "paid",
		"page":      "Home",
		"sessionId": 518,
		"song":      nil,
		"ts":        1541121930000,
		"userId":    "73",
	}
}

// With returns a copy of record with overrides applied.
func With(record map[string]any, overrides map[string]any) map[string]any {
	out := maps.Clone(record)
	maps.Copy(out, overrides)
	return out
}

// WriteJSONLines writes each record as one JSON line to root/rel, creating parent directories.
func WriteJSONLines(t *testing.T, root, rel string, records ...map[string]any) string {
	t.Helper()

	lines := make([]string, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("Failed to marshal record: %v", err)
		}
		lines = append(lines, string(data))
	}

	return WriteFile(t, root, rel, strings.Join(lines, "\n")+"\n")
}

// WriteFile writes raw content to root/rel, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()

	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}
