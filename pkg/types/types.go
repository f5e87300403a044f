// Package types defines the wire and domain types shared across Sentinel's
// pipeline stages: sources, raw/filtered/ranked events, and the payload
// stored in the vector index.
package types

import "time"

// Source is a persistent, polled news origin stored in the registry.
type Source struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Config    map[string]string `json:"config"`
	IsActive  bool              `json:"is_active"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// PollIntervalSeconds returns config.poll_interval_seconds if it parses to a
// positive integer, and false otherwise.
func (s *Source) PollIntervalSeconds() (int, bool) {
	v, ok := s.Config["poll_interval_seconds"]
	if !ok {
		return 0, false
	}
	n := 0
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, false
	}
	return n, true
}

// URL returns config.url, falling back to the source name.
func (s *Source) URL() string {
	if u, ok := s.Config["url"]; ok && u != "" {
		return u
	}
	return s.Name
}

// NewSource is the lifecycle event emitted when a Source becomes active.
type NewSource struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	ConfigJSON string `json:"config_json"`
	IsActive   bool   `json:"is_active"`
}

// RemovedSource is the lifecycle event emitted when a Source is deleted or
// deactivated.
type RemovedSource struct {
	ID int64 `json:"id"`
}

// PollSource instructs the connector to scrape one source.
type PollSource struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	ConfigJSON string `json:"config_json"`
	IsActive   bool   `json:"is_active"`
}

// RawEvent is a single scraped candidate, not persisted on its own.
type RawEvent struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// FilteredEvent is a RawEvent that the filter worker judged relevant and
// categorized.
type FilteredEvent struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Timestamp  string   `json:"timestamp"`
	Source     string   `json:"source"`
	Categories []string `json:"categories"`
	IsRelevant bool     `json:"is_relevant"`
}

// RankedEvent adds the ranker's three scores to a FilteredEvent.
type RankedEvent struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Timestamp       string   `json:"timestamp"`
	Source          string   `json:"source"`
	Categories      []string `json:"categories"`
	IsRelevant      bool     `json:"is_relevant"`
	ImportanceScore float64  `json:"importance_score"`
	RecencyScore    float64  `json:"recency_score"`
	FinalScore      float64  `json:"final_score"`
}

// StoredEvent is the payload persisted against a deterministic physical key
// in the vector store, one logical record per original_id.
type StoredEvent struct {
	OriginalID      string   `json:"original_id"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Timestamp       string   `json:"timestamp"`
	Source          string   `json:"source"`
	Categories      []string `json:"categories,omitempty"`
	IsRelevant      bool     `json:"is_relevant"`
	ImportanceScore *float64 `json:"importance_score,omitempty"`
	RecencyScore    *float64 `json:"recency_score,omitempty"`
	FinalScore      *float64 `json:"final_score,omitempty"`
	IsAnomaly       bool     `json:"is_anomaly,omitempty"`
}

// IsFiltered reports whether e is relevant but not yet scored.
func (e *StoredEvent) IsFiltered() bool {
	return e.IsRelevant && e.FinalScore == nil
}

// IsRanked reports whether e carries a final score.
func (e *StoredEvent) IsRanked() bool {
	return e.FinalScore != nil
}

// ProcessedItem is the connector's dedup record for (source_id, item_url).
type ProcessedItem struct {
	SourceID  int64     `json:"source_id"`
	ItemURL   string    `json:"item_url"`
	FirstSeen time.Time `json:"first_seen_at"`
}

// Candidate is a scraped (title, href) pair before dedup filtering.
type Candidate struct {
	Title string
	Href  string
}
