// Package retrieval is the read-side HTTP API over the vector store:
// GET /news, /news/filtered, /news/ranked, POST /news/rerank,
// GET /retrieve, and POST /ingest (which enqueues onto raw.events rather
// than touching the store directly, per spec.md §9's resolved Open
// Question).
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/opus-domini/sentinel/pkg/broker"
	"github.com/opus-domini/sentinel/pkg/metrics"
	"github.com/opus-domini/sentinel/pkg/sentinelerr"
	"github.com/opus-domini/sentinel/pkg/types"
	"github.com/opus-domini/sentinel/pkg/vectorstore"
)

const (
	rawEventsStream  = "raw-events-stream"
	rawEventsSubject = "raw.events"

	defaultLimit = 20
)

// Service implements the retrieval and ingest HTTP API.
type Service struct {
	store  *vectorstore.Store
	broker *broker.Broker
}

// New builds a Service.
func New(store *vectorstore.Store, b *broker.Broker) *Service {
	return &Service{store: store, broker: b}
}

// EnsureStreams idempotently creates the stream /ingest produces on.
func (s *Service) EnsureStreams(ctx context.Context) error {
	return s.broker.EnsureStream(ctx, broker.StreamSpec{Name: rawEventsStream, Subject: rawEventsSubject})
}

// Handler registers every retrieval/ingest route on a fresh ServeMux.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/news", s.news)
	mux.HandleFunc("/news/filtered", s.filtered)
	mux.HandleFunc("/news/ranked", s.ranked)
	mux.HandleFunc("/news/rerank", s.rerank)
	mux.HandleFunc("/retrieve", s.retrieve)
	mux.HandleFunc("/ingest", s.ingest)
	return mux
}

func (s *Service) news(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "/news")

	events, err := s.store.RecentEvents(r.Context(), limitParam(r))
	respond(w, "/news", events, err)
}

func (s *Service) filtered(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "/news/filtered")

	events, err := s.store.FilteredEvents(r.Context(), limitParam(r))
	respond(w, "/news/filtered", events, err)
}

func (s *Service) ranked(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "/news/ranked")

	events, err := s.store.RankedEvents(r.Context(), limitParam(r))
	respond(w, "/news/ranked", events, err)
}

type rerankRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Service) rerank(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "/news/rerank")

	if r.Method != http.MethodPost {
		writeError(w, "/news/rerank", http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	var req rerankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "/news/rerank", http.StatusBadRequest, err)
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	events, err := s.store.SearchByKeyword(r.Context(), req.Query, limit)
	respond(w, "/news/rerank", events, err)
}

func (s *Service) retrieve(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "/retrieve")

	batchID := r.URL.Query().Get("batch_id")
	if batchID == "" {
		writeError(w, "/retrieve", http.StatusBadRequest, errors.New("batch_id is required"))
		return
	}

	event, err := s.store.RetrieveByID(r.Context(), batchID)
	if err != nil {
		writeError(w, "/retrieve", statusFor(err), err)
		return
	}
	writeJSON(w, "/retrieve", http.StatusOK, event)
}

type ingestEvent struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ingest accepts an array of events and publishes each on raw.events,
// returning 202 Accepted once every event has been enqueued.
func (s *Service) ingest(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "/ingest")

	if r.Method != http.MethodPost {
		writeError(w, "/ingest", http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	var events []ingestEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		writeError(w, "/ingest", http.StatusBadRequest, err)
		return
	}

	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Timestamp == "" {
			e.Timestamp = time.Now().UTC().Format(time.RFC3339)
		}
		payload, err := json.Marshal(types.RawEvent{
			ID: e.ID, Source: e.Source, Title: e.Title, Content: e.Content, Timestamp: e.Timestamp,
		})
		if err != nil {
			writeError(w, "/ingest", http.StatusInternalServerError, err)
			return
		}
		if err := s.broker.Publish(r.Context(), rawEventsSubject, "RawEvent", payload); err != nil {
			writeError(w, "/ingest", http.StatusServiceUnavailable, err)
			return
		}
	}

	writeJSON(w, "/ingest", http.StatusAccepted, map[string]int{"accepted": len(events)})
}

func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	return n
}

func respond(w http.ResponseWriter, route string, events any, err error) {
	if err != nil {
		writeError(w, route, statusFor(err), err)
		return
	}
	writeJSON(w, route, http.StatusOK, events)
}

func statusFor(err error) int {
	var notFound *sentinelerr.NotFound
	if errors.As(err, &notFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, route string, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
	metrics.APIRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func writeError(w http.ResponseWriter, route string, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	metrics.APIRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
