package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"

	"github.com/RealFaceCode/ContextBrain/pkg/types"
)

// QdrantIndex implements Index against a Qdrant instance over gRPC.
// Chunk ids are mapped to deterministic UUIDs because Qdrant only
// accepts UUID or integer point ids.
type QdrantIndex struct {
	conn        *grpc.ClientConn
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	collection  string
	dimension   int
}

// NewQdrantIndex connects to addr and ensures the collection exists
// with cosine distance.
func NewQdrantIndex(addr, collection string, dimension int) (*QdrantIndex, error) {
	if collection == "" {
		collection = "contextbrain_elements"
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("could not connect to Qdrant: %w", err)
	}

	idx := &QdrantIndex{
		conn:        conn,
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		collection:  collection,
		dimension:   dimension,
	}

	if err := idx.ensureCollection(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return idx, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	_, err := q.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: q.collection,
	})
	if err == nil {
		return nil
	}

	_, err = q.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}

// pointID derives a deterministic UUID from a chunk id.
func pointID(chunkID string) *qdrant.PointId {
	u := uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID))
	return &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: u.String()}}
}

func fileFilter(filePath string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   "file_path",
					Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: filePath}},
				},
			},
		}},
	}
}

// ReplaceFile deletes the file's points and upserts the fresh set.
func (q *QdrantIndex) ReplaceFile(ctx context.Context, filePath string, records []Record) error {
	filePath = types.NormalizePath(filePath)
	if err := q.DeleteByFile(ctx, filePath); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		if r.Vector == nil {
			continue
		}
		payload := map[string]*qdrant.Value{
			"chunk_id":    {Kind: &qdrant.Value_StringValue{StringValue: r.ID}},
			"element_id":  {Kind: &qdrant.Value_StringValue{StringValue: r.ElementID}},
			"file_path":   {Kind: &qdrant.Value_StringValue{StringValue: r.FilePath}},
			"type":        {Kind: &qdrant.Value_StringValue{StringValue: r.Type}},
			"language":    {Kind: &qdrant.Value_StringValue{StringValue: r.Language}},
			"name":        {Kind: &qdrant.Value_StringValue{StringValue: r.Name}},
			"start_line":  {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(r.StartLine)}},
			"chunk_index": {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(r.ChunkIndex)}},
			"chunk_text":  {Kind: &qdrant.Value_StringValue{StringValue: r.ChunkText}},
		}
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(r.ID),
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: r.Vector}}},
			Payload: payload,
		})
	}
	if len(points) == 0 {
		return nil
	}

	_, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
		Wait:           proto.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to upsert points: %v", types.ErrStore, err)
	}
	return nil
}

// DeleteByFile removes all points carrying the file path.
func (q *QdrantIndex) DeleteByFile(ctx context.Context, filePath string) error {
	filePath = types.NormalizePath(filePath)
	_, err := q.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: fileFilter(filePath)},
		},
		Wait: proto.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to delete points: %v", types.ErrStore, err)
	}
	return nil
}

// Search queries Qdrant and applies metadata filters client-side.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, topK int, filters QueryFilters) ([]Hit, error) {
	if topK <= 0 {
		return []Hit{}, nil
	}

	result, err := q.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         vector,
		Limit:          uint64(topK * 2),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	hits := make([]Hit, 0, len(result.GetResult()))
	for _, scored := range result.GetResult() {
		payload := scored.GetPayload()
		if payload == nil {
			continue
		}
		r := Record{
			ID:         payload["chunk_id"].GetStringValue(),
			ElementID:  payload["element_id"].GetStringValue(),
			FilePath:   payload["file_path"].GetStringValue(),
			Type:       payload["type"].GetStringValue(),
			Language:   payload["language"].GetStringValue(),
			Name:       payload["name"].GetStringValue(),
			StartLine:  int(payload["start_line"].GetIntegerValue()),
			ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
			ChunkText:  payload["chunk_text"].GetStringValue(),
		}
		if !matchFilters(r, filters) {
			continue
		}
		hits = append(hits, Hit{
			Record:     r,
			Similarity: clampSimilarity(float64(scored.GetScore())),
		})
	}

	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Clear deletes every point, keeping the collection so external
// handles stay valid.
func (q *QdrantIndex) Clear(ctx context.Context) error {
	_, err := q.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: &qdrant.Filter{}},
		},
		Wait: proto.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to clear collection: %v", types.ErrStore, err)
	}
	return nil
}

// Count returns the exact number of stored points.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	resp, err := q.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          proto.Bool(true),
	})
	if err != nil {
		return 0, err
	}
	return int(resp.GetResult().GetCount()), nil
}
