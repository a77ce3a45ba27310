package vector

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/torchseek/torchseek/internal/models"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// payload keys used for chunk fields in Qdrant.
const (
	payloadText      = "text"
	payloadTitle     = "title"
	payloadSource    = "source"
	payloadChunkType = "chunk_type"
	payloadLanguage  = "language"
	payloadSection   = "section"
)

// QdrantStore implements Store against a Qdrant instance over gRPC.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimensions  int
	logger      *zap.Logger
}

// NewQdrantStore connects to Qdrant at host:port.
func NewQdrantStore(host string, port int, collection string, dimensions int, logger *zap.Logger) (*QdrantStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	logger.Info("qdrant client initialized", zap.String("addr", addr), zap.String("collection", collection))
	return &QdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dimensions:  dimensions,
		logger:      logger,
	}, nil
}

func (s *QdrantStore) collectionExists(ctx context.Context) (bool, error) {
	resp, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	for _, col := range resp.GetCollections() {
		if col.GetName() == s.collection {
			return true, nil
		}
	}
	return false, nil
}

func (s *QdrantStore) createCollection(ctx context.Context) error {
	_, err := s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.dimensions),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.logger.Info("created collection", zap.String("collection", s.collection))
	return nil
}

// EnsureCollection creates the collection when missing.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.createCollection(ctx)
}

// ResetCollection deletes and recreates the collection.
func (s *QdrantStore) ResetCollection(ctx context.Context) error {
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: s.collection}); err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}
		s.logger.Info("deleted existing collection", zap.String("collection", s.collection))
	}
	return s.createCollection(ctx)
}

// Add upserts chunks in batches to bound per-call payload size. A failed batch
// raises a *StoreError with the batch index and size; retry is the caller's call.
func (s *QdrantStore) Add(ctx context.Context, chunks []*models.Chunk, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 50
	}
	totalBatches := (len(chunks)-1)/batchSize + 1
	s.logger.Info("adding chunks in batches", zap.Int("count", len(chunks)), zap.Int("batches", totalBatches))

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batchNum := start/batchSize + 1

		points := make([]*pb.PointStruct, 0, end-start)
		for _, chunk := range chunks[start:end] {
			points = append(points, &pb.PointStruct{
				Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: chunk.ID}},
				Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: NormalizeVector(chunk.Embedding, s.dimensions)},
				}},
				Payload: chunkPayload(chunk),
			})
		}

		if _, err := s.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		}); err != nil {
			return &StoreError{
				Batch:        batchNum,
				TotalBatches: totalBatches,
				BatchSize:    end - start,
				Err:          err,
			}
		}
		s.logger.Info("added batch", zap.Int("batch", batchNum), zap.Int("total", totalBatches), zap.Int("chunks", end-start))
	}
	return nil
}

// Query runs a nearest-neighbor search, normalized to the canonical Hits shape.
// Qdrant reports cosine similarity; distances here are 1 - similarity so the
// ranking stage sees the same scale regardless of backend.
func (s *QdrantStore) Query(ctx context.Context, vec []float32, k int, chunkType string) (*Hits, error) {
	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         NormalizeVector(vec, s.dimensions),
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if chunkType != "" {
		req.Filter = &pb.Filter{
			Must: []*pb.Condition{{
				ConditionOneOf: &pb.Condition_Field{Field: &pb.FieldCondition{
					Key:   payloadChunkType,
					Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: chunkType}},
				}},
			}},
		}
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}

	hits := &Hits{}
	for _, pt := range resp.GetResult() {
		payload := pt.GetPayload()
		hits.IDs = append(hits.IDs, pt.GetId().GetUuid())
		hits.Documents = append(hits.Documents, payloadString(payload, payloadText))
		hits.Metadatas = append(hits.Metadatas, models.ChunkMetadata{
			Title:     payloadString(payload, payloadTitle),
			Source:    payloadString(payload, payloadSource),
			ChunkType: payloadString(payload, payloadChunkType),
			Language:  payloadString(payload, payloadLanguage),
			Section:   payloadString(payload, payloadSection),
		})
		hits.Distances = append(hits.Distances, 1.0-float64(pt.GetScore()))
	}
	s.logger.Debug("query completed", zap.Int("results", hits.Len()))
	return hits, nil
}

// Count returns the number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int64, error) {
	resp, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: s.collection})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int64(resp.GetResult().GetCount()), nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.conn.Close()
}

func chunkPayload(chunk *models.Chunk) map[string]*pb.Value {
	return map[string]*pb.Value{
		payloadText:      {Kind: &pb.Value_StringValue{StringValue: chunk.Text}},
		payloadTitle:     {Kind: &pb.Value_StringValue{StringValue: chunk.Metadata.Title}},
		payloadSource:    {Kind: &pb.Value_StringValue{StringValue: chunk.Metadata.Source}},
		payloadChunkType: {Kind: &pb.Value_StringValue{StringValue: chunk.Metadata.ChunkType}},
		payloadLanguage:  {Kind: &pb.Value_StringValue{StringValue: chunk.Metadata.Language}},
		payloadSection:   {Kind: &pb.Value_StringValue{StringValue: chunk.Metadata.Section}},
	}
}

func payloadString(payload map[string]*pb.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

var _ Store = (*QdrantStore)(nil)
