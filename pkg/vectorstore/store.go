package vectorstore

import (
	"context"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/opus-domini/sentinel/pkg/config"
	"github.com/opus-domini/sentinel/pkg/log"
	"github.com/opus-domini/sentinel/pkg/metrics"
	"github.com/opus-domini/sentinel/pkg/sentinelerr"
	"github.com/opus-domini/sentinel/pkg/types"
)

// payloadIndexes are the fields Sentinel filters or searches on often
// enough to warrant a dedicated Qdrant payload index. The content index
// backs full-text keyword search: whitespace tokens, case-folded, token
// length clamped to [2, 20].
var payloadIndexes = []struct {
	field  string
	schema qdrant.FieldType
	params *qdrant.PayloadIndexParams
}{
	{"source", qdrant.FieldType_FieldTypeKeyword, nil},
	{"original_id", qdrant.FieldType_FieldTypeKeyword, nil},
	{"is_relevant", qdrant.FieldType_FieldTypeBool, nil},
	{"final_score", qdrant.FieldType_FieldTypeFloat, nil},
	{"timestamp", qdrant.FieldType_FieldTypeDatetime, nil},
	{"content", qdrant.FieldType_FieldTypeText, &qdrant.PayloadIndexParams{
		IndexParams: &qdrant.PayloadIndexParams_TextIndexParams{
			TextIndexParams: &qdrant.TextIndexParams{
				Tokenizer:   qdrant.TokenizerType_Whitespace,
				Lowercase:   qdrant.PtrOf(true),
				MinTokenLen: qdrant.PtrOf(uint64(2)),
				MaxTokenLen: qdrant.PtrOf(uint64(20)),
			},
		},
	}},
}

// Store is Sentinel's Qdrant-backed event store.
type Store struct {
	client     *qdrant.Client
	collection string
	embedder   Embedder
}

// Connect dials Qdrant over gRPC and returns a Store bound to
// cfg.CollectionName. It does not create the collection; call
// EnsureCollection once at startup for that.
func Connect(cfg config.VectorStore, embedder Embedder) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
		GrpcOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
	})
	if err != nil {
		return nil, &sentinelerr.StoreUnavailable{Op: "connect", Err: err}
	}
	return &Store{client: client, collection: cfg.CollectionName, embedder: embedder}, nil
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// EnsureCollection idempotently creates the collection with cosine
// distance and the fixed set of payload indexes, or verifies it already
// exists.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return &sentinelerr.StoreUnavailable{Op: "collection exists", Err: err}
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.embedder.Dimensions()),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return &sentinelerr.StoreUnavailable{Op: "create collection", Err: err}
	}

	// Index creation failures are not fatal: the collection works without
	// them, just slower, and a second service racing the same create sees
	// an already-exists error here.
	for _, idx := range payloadIndexes {
		fieldType := idx.schema
		if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName:   s.collection,
			FieldName:        idx.field,
			FieldType:        &fieldType,
			FieldIndexParams: idx.params,
		}); err != nil {
			vsLog := log.WithComponent("vectorstore")
			vsLog.Warn().Err(err).Str("field", idx.field).Msg("payload index creation failed")
		}
	}
	return nil
}

// Upsert writes a full StoredEvent, replacing any existing record at the
// same physical key. Used by the filter for newly classified events.
func (s *Store) Upsert(ctx context.Context, event types.StoredEvent) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.StoreOperationDuration, "upsert")

	vector, err := s.embedder.Embed(ctx, event.Content)
	if err != nil {
		return &sentinelerr.DependencyError{Dependency: "embedder", Err: err}
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(PhysicalKey(event.OriginalID)),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(eventToPayload(event)),
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return &sentinelerr.StoreUnavailable{Op: "upsert", Err: err}
	}
	metrics.StoreUpsertsTotal.WithLabelValues("upsert").Inc()
	return nil
}

// Patch merges the given fields into the existing record at
// originalID's physical key, without touching the embedding. If no
// record exists yet, Patch falls back to a stub upsert (an empty-content
// placeholder) so a ranker result never gets silently dropped when it
// races ahead of the filter's write, then applies the fields on
// top of that stub.
func (s *Store) Patch(ctx context.Context, originalID string, fields map[string]any) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.StoreOperationDuration, "patch")

	key := PhysicalKey(originalID)
	id := qdrant.NewIDUUID(key)

	existing, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{id},
	})
	if err != nil {
		return &sentinelerr.StoreUnavailable{Op: "get for patch", Err: err}
	}
	if len(existing) == 0 {
		if err := s.writeStub(ctx, originalID); err != nil {
			return err
		}
	}

	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["original_id"] = originalID

	_, err = s.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: s.collection,
		Payload:        qdrant.NewValueMap(payload),
		PointsSelector: qdrant.NewPointsSelector(id),
	})
	if err != nil {
		return &sentinelerr.StoreUnavailable{Op: "patch", Err: err}
	}
	metrics.StoreUpsertsTotal.WithLabelValues("patch").Inc()
	return nil
}

// writeStub inserts a minimal placeholder point with a zero vector so a
// later Patch (ranker/inspector racing ahead of the filter) has a
// record to attach fields to instead of failing outright.
func (s *Store) writeStub(ctx context.Context, originalID string) error {
	vector := make([]float32, s.embedder.Dimensions())
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(PhysicalKey(originalID)),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(map[string]any{"original_id": originalID}),
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return &sentinelerr.StoreUnavailable{Op: "write stub", Err: err}
	}
	return nil
}

func eventToPayload(e types.StoredEvent) map[string]any {
	payload := map[string]any{
		"original_id": e.OriginalID,
		"title":       e.Title,
		"content":     e.Content,
		"timestamp":   e.Timestamp,
		"source":      e.Source,
		"is_relevant": e.IsRelevant,
		"is_anomaly":  e.IsAnomaly,
	}
	if len(e.Categories) > 0 {
		cats := make([]any, len(e.Categories))
		for i, c := range e.Categories {
			cats[i] = c
		}
		payload["categories"] = cats
	}
	if e.ImportanceScore != nil {
		payload["importance_score"] = *e.ImportanceScore
	}
	if e.RecencyScore != nil {
		payload["recency_score"] = *e.RecencyScore
	}
	if e.FinalScore != nil {
		payload["final_score"] = *e.FinalScore
	}
	return payload
}
