package qdrant

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/0x5457/loca/internal/models"
	"github.com/0x5457/loca/internal/storage"
)

// Store is a VectorStore backed by a Qdrant collection over gRPC. The
// collection is created on first Upsert with the embedding dimension.
type Store struct {
	conn        *grpc.ClientConn
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	collection  string

	mu     sync.Mutex
	exists bool
}

func New(addr, collection string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("could not connect to Qdrant: %w", err)
	}
	return &Store{
		conn:        conn,
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

func (s *Store) Close() error { return s.conn.Close() }

// PointID maps a snippet id to the deterministic UUID used as Qdrant point id.
func PointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func (s *Store) collectionExists(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exists {
		return true, nil
	}
	_, err := s.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: s.collection})
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("qdrant: get collection: %w", err)
	}
	s.exists = true
	return true, nil
}

func (s *Store) ensureCollection(ctx context.Context, dim int) error {
	ok, err := s.collectionExists(ctx)
	if err != nil || ok {
		return err
	}
	_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("qdrant: create collection: %w", err)
	}
	s.mu.Lock()
	s.exists = true
	s.mu.Unlock()
	return nil
}

func (s *Store) Upsert(ctx context.Context, snippets []models.Snippet, embeddings [][]float32) error {
	if len(snippets) != len(embeddings) {
		return fmt.Errorf("snippets and embeddings length mismatch")
	}
	if len(snippets) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(embeddings[0])); err != nil {
		return err
	}
	points := make([]*qdrant.PointStruct, 0, len(snippets))
	for i, sn := range snippets {
		payload, err := toPayload(sn)
		if err != nil {
			return fmt.Errorf("payload for %s: %w", sn.ID(), err)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: PointID(sn.ID())}},
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: embeddings[i]}}},
			Payload: payload,
		})
	}
	_, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           proto.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ok, err := s.collectionExists(ctx)
	if err != nil || !ok {
		return err
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: PointID(id)}}
	}
	_, err = s.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           proto.Bool(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{Points: &qdrant.PointsIdsList{Ids: pointIDs}},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]models.SemanticHit, error) {
	if topK <= 0 {
		topK = 5
	}
	ok, err := s.collectionExists(ctx)
	if err != nil || !ok {
		return nil, err
	}
	res, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}
	hits := make([]models.SemanticHit, 0, len(res.GetResult()))
	for _, p := range res.GetResult() {
		if p.GetPayload() == nil {
			continue
		}
		hits = append(hits, models.SemanticHit{
			Snippet: models.SnippetFromMetadata(fromPayload(p.GetPayload())),
			Score:   p.GetScore(),
		})
	}
	return hits, nil
}

// Clear drops the collection; the next Upsert recreates it.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: s.collection})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("qdrant: delete collection: %w", err)
	}
	s.mu.Lock()
	s.exists = false
	s.mu.Unlock()
	return nil
}

func toPayload(sn models.Snippet) (map[string]*qdrant.Value, error) {
	data := sn.Metadata()
	data["id"] = sn.ID()
	payload := make(map[string]*qdrant.Value, len(data))
	for key, val := range data {
		switch v := val.(type) {
		case string:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		case int:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(v)}}
		case int64:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: v}}
		case float64:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: v}}
		default:
			return nil, fmt.Errorf("unsupported type for payload field '%s': %T", key, v)
		}
	}
	return payload, nil
}

func fromPayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, val := range payload {
		switch v := val.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[key] = v.StringValue
		case *qdrant.Value_IntegerValue:
			out[key] = v.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[key] = v.DoubleValue
		}
	}
	return out
}

var _ storage.VectorStore = (*Store)(nil)
