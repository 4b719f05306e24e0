package semantic

import (
	"context"
	"fmt"
	"sort"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/NormaAI/norma-mvp/engine/domain"
)

// pointsAPI is the slice of the Qdrant points service the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Scroll(ctx context.Context, in *pb.ScrollPoints, opts ...grpc.CallOption) (*pb.ScrollResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
}

// collectionsAPI is the slice of the collections service the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients wires a store over existing service clients. Tests use it
// to substitute fakes.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string) *VectorStore {
	return &VectorStore{points: points, collections: collections, collection: collection}
}

// Close closes the underlying gRPC connection, if the store owns one.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// Collection returns the collection name the store operates on.
func (v *VectorStore) Collection() string { return v.collection }

// EnsureCollection creates the collection if it doesn't exist. Vectors use
// cosine distance; dims must match the embedding client's dimension.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	d := uint64(dims)
	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     d,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// DeleteCollection deletes the collection.
func (v *VectorStore) DeleteCollection(ctx context.Context) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: v.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", v.collection, err)
	}
	return nil
}

// Count returns the exact number of stored points.
func (v *VectorStore) Count(ctx context.Context) (uint64, error) {
	exact := true
	resp, err := v.points.Count(ctx, &pb.CountPoints{
		CollectionName: v.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("semantic: count: %w", err)
	}
	return resp.GetResult().GetCount(), nil
}

// Upsert stores embedded chunks. Called by engine/index.
func (v *VectorStore) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: chunkPayload(r.Chunk),
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// DeleteByDocID removes all points of one document. Used for re-indexing
// after a source file changed.
func (v *VectorStore) DeleteByDocID(ctx context.Context, docID string) error {
	wait := true
	_, err := v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						fieldMatch("doc_id", docID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: delete by doc_id %s: %w", docID, err)
	}
	return nil
}

// Search performs k-NN similarity search. Called by engine/rag.
func (v *VectorStore) Search(ctx context.Context, embedding []float32, opts SearchOpts) ([]SearchResult, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}
	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if opts.MinScore > 0 {
		threshold := opts.MinScore
		req.ScoreThreshold = &threshold
	}

	var must []*pb.Condition
	if opts.DocID != "" {
		must = append(must, fieldMatch("doc_id", opts.DocID))
	}
	if opts.Article != "" {
		must = append(must, fieldMatch("article", opts.Article))
	}
	if len(must) > 0 {
		req.Filter = &pb.Filter{Must: must}
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		results[i] = fromPayload(r.GetId().GetUuid(), r.GetScore(), r.GetPayload())
	}
	return results, nil
}

// Scroll pages through stored points without scoring, narrowed by payload
// filters. Used to list every chunk of one article.
func (v *VectorStore) Scroll(ctx context.Context, filters map[string]string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 100
	}
	l := uint32(limit)
	req := &pb.ScrollPoints{
		CollectionName: v.collection,
		Limit:          &l,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if len(filters) > 0 {
		keys := make([]string, 0, len(filters))
		for k := range filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		must := make([]*pb.Condition, 0, len(keys))
		for _, k := range keys {
			must = append(must, fieldMatch(k, filters[k]))
		}
		req.Filter = &pb.Filter{Must: must}
	}

	resp, err := v.points.Scroll(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("semantic: scroll: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		results[i] = fromPayload(r.GetId().GetUuid(), 0, r.GetPayload())
	}
	return results, nil
}

// chunkPayload flattens a chunk into its stored payload. Empty article,
// section title, and source are omitted rather than stored as "".
func chunkPayload(c domain.Chunk) map[string]*pb.Value {
	p := map[string]*pb.Value{
		"text":   strVal(c.Text),
		"doc_id": strVal(c.DocID),
		"start":  intVal(c.Start),
		"end":    intVal(c.End),
	}
	if c.Source != "" {
		p["source"] = strVal(c.Source)
	}
	if c.Article != "" {
		p["article"] = strVal(c.Article)
	}
	if c.SectionTitle != "" {
		p["section_title"] = strVal(c.SectionTitle)
	}
	return p
}

func fromPayload(id string, score float32, payload map[string]*pb.Value) SearchResult {
	sr := SearchResult{ID: id, Score: score}
	for k, val := range payload {
		switch k {
		case "text":
			sr.Text = val.GetStringValue()
		case "doc_id":
			sr.DocID = val.GetStringValue()
		case "source":
			sr.Source = val.GetStringValue()
		case "article":
			sr.Article = val.GetStringValue()
		case "section_title":
			sr.SectionTitle = val.GetStringValue()
		case "start":
			sr.Start = int(val.GetIntegerValue())
		case "end":
			sr.End = int(val.GetIntegerValue())
		}
	}
	return sr
}

func strVal(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func intVal(i int) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(i)}}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
