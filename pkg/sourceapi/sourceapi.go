// Package sourceapi is the Source CRUD HTTP API: a thin wrapper over
// pkg/registrydb that emits new.source/removed.source lifecycle events on
// every mutation that changes a source's active state, per spec.md §4.3.
package sourceapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/opus-domini/sentinel/pkg/broker"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/metrics"
	"github.com/opus-domini/sentinel/pkg/registrydb"
	"github.com/opus-domini/sentinel/pkg/sentinelerr"
	"github.com/opus-domini/sentinel/pkg/types"
)

const (
	newSourceStream      = "new-source-stream"
	newSourceSubject     = "new.source"
	removedSourceStream  = "removed-source-stream"
	removedSourceSubject = "removed.source"
)

// Service implements the Source CRUD HTTP API.
type Service struct {
	registry *registrydb.Registry
	broker   *broker.Broker
}

// New builds a Service.
func New(registry *registrydb.Registry, b *broker.Broker) *Service {
	return &Service{registry: registry, broker: b}
}

// EnsureStreams idempotently creates the lifecycle streams this service
// produces on.
func (s *Service) EnsureStreams(ctx context.Context) error {
	for _, spec := range []broker.StreamSpec{
		{Name: newSourceStream, Subject: newSourceSubject},
		{Name: removedSourceStream, Subject: removedSourceSubject},
	} {
		if err := s.broker.EnsureStream(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// Handler registers the Source CRUD routes on a fresh ServeMux.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sources", s.collectionHandler)
	mux.HandleFunc("/sources/", s.itemHandler)
	return mux
}

type sourceRequest struct {
	Name     *string           `json:"name"`
	Type     *string           `json:"type"`
	Config   map[string]string `json:"config"`
	IsActive *bool             `json:"is_active"`
}

type sourceResponse struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Config    map[string]string `json:"config"`
	IsActive  bool              `json:"is_active"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func toResponse(s types.Source) sourceResponse {
	return sourceResponse{
		ID: s.ID, Name: s.Name, Type: s.Type, Config: s.Config,
		IsActive: s.IsActive, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

func (s *Service) collectionHandler(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "/sources")

	switch r.Method {
	case http.MethodGet:
		s.list(w, r)
	case http.MethodPost:
		s.create(w, r)
	default:
		writeError(w, "/sources", http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

func (s *Service) itemHandler(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "/sources/{id}")

	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/sources/"), 10, 64)
	if err != nil {
		writeError(w, "/sources/{id}", http.StatusNotFound, &sentinelerr.NotFound{Kind: "source", ID: r.URL.Path})
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.get(w, r, id)
	case http.MethodPut:
		s.update(w, r, id)
	case http.MethodDelete:
		s.delete(w, r, id)
	default:
		writeError(w, "/sources/{id}", http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

func (s *Service) list(w http.ResponseWriter, r *http.Request) {
	sources, err := s.registry.List(r.Context())
	if err != nil {
		writeError(w, "/sources", statusFor(err), err)
		return
	}
	responses := make([]sourceResponse, len(sources))
	for i, src := range sources {
		responses[i] = toResponse(src)
	}
	writeJSON(w, "/sources", http.StatusOK, responses)
}

func (s *Service) get(w http.ResponseWriter, r *http.Request, id int64) {
	src, err := s.registry.Get(r.Context(), id)
	if err != nil {
		writeError(w, "/sources/{id}", statusFor(err), err)
		return
	}
	writeJSON(w, "/sources/{id}", http.StatusOK, toResponse(src))
}

func (s *Service) create(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "/sources", http.StatusBadRequest, err)
		return
	}

	src := types.Source{Config: req.Config}
	if req.Name != nil {
		src.Name = *req.Name
	}
	if req.Type != nil {
		src.Type = *req.Type
	}
	if req.IsActive != nil {
		src.IsActive = *req.IsActive
	}

	created, err := s.registry.Create(r.Context(), src)
	if err != nil {
		writeError(w, "/sources", statusFor(err), err)
		return
	}

	s.publishNew(r.Context(), created)
	writeJSON(w, "/sources", http.StatusCreated, toResponse(created))
}

func (s *Service) update(w http.ResponseWriter, r *http.Request, id int64) {
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "/sources/{id}", http.StatusBadRequest, err)
		return
	}

	var patch types.Source
	var fields registrydb.UpdateFields
	if req.Name != nil {
		patch.Name = *req.Name
		fields.Name = true
	}
	if req.Type != nil {
		patch.Type = *req.Type
		fields.Type = true
	}
	if req.Config != nil {
		patch.Config = req.Config
		fields.Config = true
	}
	if req.IsActive != nil {
		patch.IsActive = *req.IsActive
		fields.IsActive = true
	}

	updated, err := s.registry.Update(r.Context(), id, patch, fields)
	if err != nil {
		writeError(w, "/sources/{id}", statusFor(err), err)
		return
	}

	if fields.IsActive {
		s.publishLifecycle(r.Context(), updated)
	}
	writeJSON(w, "/sources/{id}", http.StatusOK, toResponse(updated))
}

func (s *Service) delete(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.registry.Delete(r.Context(), id); err != nil {
		writeError(w, "/sources/{id}", statusFor(err), err)
		return
	}
	s.publishRemoved(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// publishLifecycle emits new.source if src is active, or removed.source
// otherwise, per spec.md §4.3's "update of is_active emits either
// depending on the new state" rule.
func (s *Service) publishLifecycle(ctx context.Context, src types.Source) {
	if src.IsActive {
		s.publishNew(ctx, src)
		return
	}
	s.publishRemoved(ctx, src.ID)
}

// publishNew emits new.source carrying src, whatever its is_active value.
func (s *Service) publishNew(ctx context.Context, src types.Source) {
	configJSON, err := json.Marshal(src.Config)
	if err != nil {
		log.WithComponent("sourceapi").Error().Err(err).Int64("source_id", src.ID).Msg("marshal config for new.source failed")
		return
	}
	payload, err := json.Marshal(types.NewSource{
		ID: src.ID, Name: src.Name, Type: src.Type,
		ConfigJSON: string(configJSON), IsActive: src.IsActive,
	})
	if err != nil {
		log.WithComponent("sourceapi").Error().Err(err).Int64("source_id", src.ID).Msg("marshal new.source failed")
		return
	}
	if err := s.broker.Publish(ctx, newSourceSubject, "NewSource", payload); err != nil {
		log.WithComponent("sourceapi").Warn().Err(err).Int64("source_id", src.ID).Msg("publish new.source failed")
	}
}

func (s *Service) publishRemoved(ctx context.Context, id int64) {
	payload, err := json.Marshal(types.RemovedSource{ID: id})
	if err != nil {
		log.WithComponent("sourceapi").Error().Err(err).Int64("source_id", id).Msg("marshal removed.source failed")
		return
	}
	if err := s.broker.Publish(ctx, removedSourceSubject, "RemovedSource", payload); err != nil {
		log.WithComponent("sourceapi").Warn().Err(err).Int64("source_id", id).Msg("publish removed.source failed")
	}
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
