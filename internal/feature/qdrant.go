package feature

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantIndex is a Store backed by a Qdrant collection over gRPC.
// Similarity ordering is delegated to the server's cosine distance over
// the flattened fingerprint; the floor applies to the returned scores.
type QdrantIndex struct {
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	conn        *grpc.ClientConn
	collection  string
	floor       float64
}

// NewQdrantIndex connects to Qdrant and ensures the collection exists.
func NewQdrantIndex(address, collection string, floor float64) (*QdrantIndex, error) {
	if address == "" {
		return nil, fmt.Errorf("qdrant address is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	conn, err := grpc.Dial(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}

	idx := &QdrantIndex{
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		conn:        conn,
		collection:  collection,
		floor:       floor,
	}
	if err := idx.ensureCollection(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	return idx, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	listResp, err := q.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, col := range listResp.Collections {
		if col.Name == q.collection {
			return nil
		}
	}

	_, err = q.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(VectorDim),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// Add upserts a fingerprint with the drug identity in the payload.
func (q *QdrantIndex) Add(ctx context.Context, rec Record) (string, error) {
	if rec.Vector.IsZero() {
		return "", ErrEmptyRegion
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	payload := map[string]*qdrant.Value{
		"drug_id":     {Kind: &qdrant.Value_StringValue{StringValue: rec.DrugID}},
		"drug_name":   {Kind: &qdrant.Value_StringValue{StringValue: rec.DrugName}},
		"usage_count": {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(rec.UsageCount)}},
	}

	point := &qdrant.PointStruct{
		Id: &qdrant.PointId{
			PointIdOptions: &qdrant.PointId_Uuid{Uuid: rec.ID},
		},
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vector{
				Vector: &qdrant.Vector{Data: rec.Vector.Flatten()},
			},
		},
		Payload: payload,
	}

	_, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return "", fmt.Errorf("%w: upsert: %v", ErrIndexUnavailable, err)
	}
	return rec.ID, nil
}

// Search queries the collection and filters results by the floor.
func (q *QdrantIndex) Search(ctx context.Context, vec Vector, limit int) ([]Match, error) {
	if vec.IsZero() {
		return nil, ErrEmptyRegion
	}
	if limit <= 0 {
		limit = 10
	}

	resp, err := q.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         vec.Flatten(),
		Limit:          uint64(limit),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
		WithVectors: &qdrant.WithVectorsSelector{
			SelectorOptions: &qdrant.WithVectorsSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrIndexUnavailable, err)
	}

	matches := make([]Match, 0, len(resp.Result))
	for _, res := range resp.Result {
		sim := float64(res.Score)
		if sim < q.floor {
			continue
		}
		rec := Record{}
		if res.Id != nil {
			rec.ID = res.Id.GetUuid()
		}
		if res.Payload != nil {
			if v, ok := res.Payload["drug_id"]; ok {
				rec.DrugID = v.GetStringValue()
			}
			if v, ok := res.Payload["drug_name"]; ok {
				rec.DrugName = v.GetStringValue()
			}
			if v, ok := res.Payload["usage_count"]; ok {
				rec.UsageCount = int(v.GetIntegerValue())
			}
		}
		if res.Vectors != nil {
			if raw := res.Vectors.GetVector(); raw != nil {
				if v, ok := Unflatten(raw.Data); ok {
					rec.Vector = v
				}
			}
		}
		matches = append(matches, Match{Record: rec, Similarity: sim})
	}
	return matches, nil
}

// Optimize is a no-op for Qdrant, which manages segment merging itself.
func (q *QdrantIndex) Optimize(_ context.Context) (int, error) {
	return 0, nil
}

// Close releases the gRPC connection.
func (q *QdrantIndex) Close() error {
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
