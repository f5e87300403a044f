package vectorstore

import (
	"context"
	"sort"

	"github.com/qdrant/go-client/qdrant"

	"github.com/opus-domini/sentinel/pkg/metrics"
	"github.com/opus-domini/sentinel/pkg/sentinelerr"
	"github.com/opus-domini/sentinel/pkg/types"
)

const scrollPageSize = 1000

// RecentEvents returns up to limit most recently stored events, newest
// first, for GET /news.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]types.StoredEvent, error) {
	events, err := s.scrollAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp > events[j].Timestamp })
	return truncate(events, limit), nil
}

// FilteredEvents returns relevant events that have not yet been ranked
// (final_score absent), for GET /news/filtered.
func (s *Store) FilteredEvents(ctx context.Context, limit int) ([]types.StoredEvent, error) {
	events, err := s.scrollAll(ctx, &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchBool("is_relevant", true),
		},
	})
	if err != nil {
		return nil, err
	}
	// final_score absence (not yet ranked) has no efficient Qdrant-side
	// filter here, so it's applied client-side.
	filtered := events[:0]
	for _, e := range events {
		if e.IsFiltered() {
			filtered = append(filtered, e)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Timestamp > filtered[j].Timestamp })
	return truncate(filtered, limit), nil
}

// RankedEvents returns ranked events ordered by final_score descending,
// for GET /news/ranked.
func (s *Store) RankedEvents(ctx context.Context, limit int) ([]types.StoredEvent, error) {
	events, err := s.scrollAll(ctx, &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchBool("is_relevant", true),
		},
	})
	if err != nil {
		return nil, err
	}
	ranked := events[:0]
	for _, e := range events {
		if e.IsRanked() {
			ranked = append(ranked, e)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if *ranked[i].FinalScore != *ranked[j].FinalScore {
			return *ranked[i].FinalScore > *ranked[j].FinalScore
		}
		return ranked[i].OriginalID < ranked[j].OriginalID
	})
	return truncate(ranked, limit), nil
}

// SearchByKeyword performs a full-text match against content, semantically
// reranked against the query embedding, for POST /news/rerank. The text
// index's whitespace tokenizer decides what counts as a matching token.
func (s *Store) SearchByKeyword(ctx context.Context, query string, limit int) ([]types.StoredEvent, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.StoreOperationDuration, "search")

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &sentinelerr.DependencyError{Dependency: "embedder", Err: err}
	}

	limit64 := uint64(limit)
	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchText("content", query),
			},
		},
		Limit:       &limit64,
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, &sentinelerr.StoreUnavailable{Op: "search", Err: err}
	}

	events := make([]types.StoredEvent, 0, len(result))
	for _, hit := range result {
		events = append(events, payloadToEvent(hit.GetPayload()))
	}
	return events, nil
}

// DeleteEvents removes the records for the given original ids. Best
// effort: a missing id is not an error, the whole batch goes in one
// delete call.
func (s *Store) DeleteEvents(ctx context.Context, originalIDs []string) error {
	if len(originalIDs) == 0 {
		return nil
	}
	ids := make([]*qdrant.PointId, len(originalIDs))
	for i, oid := range originalIDs {
		ids[i] = qdrant.NewIDUUID(PhysicalKey(oid))
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(ids...),
	})
	if err != nil {
		return &sentinelerr.StoreUnavailable{Op: "delete", Err: err}
	}
	return nil
}

// RetrieveByID returns the stored event for originalID, or NotFound.
func (s *Store) RetrieveByID(ctx context.Context, originalID string) (*types.StoredEvent, error) {
	id := qdrant.NewIDUUID(PhysicalKey(originalID))
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{id},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, &sentinelerr.StoreUnavailable{Op: "retrieve", Err: err}
	}
	if len(points) == 0 {
		return nil, &sentinelerr.NotFound{Kind: "event", ID: originalID}
	}
	event := payloadToEvent(points[0].GetPayload())
	return &event, nil
}

func (s *Store) scrollAll(ctx context.Context, filter *qdrant.Filter) ([]types.StoredEvent, error) {
	var events []types.StoredEvent
	var offset *qdrant.PointId

	for {
		limit := uint32(scrollPageSize)
		req := &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter:         filter,
			Limit:          &limit,
			WithPayload:    qdrant.NewWithPayload(true),
		}
		if offset != nil {
			req.Offset = offset
		}

		points, err := s.client.Scroll(ctx, req)
		if err != nil {
			return nil, &sentinelerr.StoreUnavailable{Op: "scroll", Err: err}
		}
		for _, p := range points {
			events = append(events, payloadToEvent(p.GetPayload()))
		}
		if len(points) < scrollPageSize {
			break
		}
		offset = points[len(points)-1].GetId()
	}
	return events, nil
}

func truncate(events []types.StoredEvent, limit int) []types.StoredEvent {
	if limit <= 0 || limit >= len(events) {
		return events
	}
	return events[:limit]
}

func payloadToEvent(payload map[string]*qdrant.Value) types.StoredEvent {
	e := types.StoredEvent{
		OriginalID: stringField(payload, "original_id"),
		Title:      stringField(payload, "title"),
		Content:    stringField(payload, "content"),
		Timestamp:  stringField(payload, "timestamp"),
		Source:     stringField(payload, "source"),
		IsRelevant: boolField(payload, "is_relevant"),
		IsAnomaly:  boolField(payload, "is_anomaly"),
	}
	if v, ok := payload["categories"]; ok && v.GetListValue() != nil {
		for _, c := range v.GetListValue().GetValues() {
			e.Categories = append(e.Categories, c.GetStringValue())
		}
	}
	if v, ok := payload["importance_score"]; ok {
		f := v.GetDoubleValue()
		e.ImportanceScore = &f
	}
	if v, ok := payload["recency_score"]; ok {
		f := v.GetDoubleValue()
		e.RecencyScore = &f
	}
	if v, ok := payload["final_score"]; ok {
		f := v.GetDoubleValue()
		e.FinalScore = &f
	}
	return e
}

func stringField(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func boolField(payload map[string]*qdrant.Value, key string) bool {
	if v, ok := payload[key]; ok {
		return v.GetBoolValue()
	}
	return false
}
