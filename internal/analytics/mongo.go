package analytics

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/teemow/senderwatch/internal/instrumentation"
)

// Mongo document fields. Sender addresses are stored normalized.
const (
	mongoFieldFrom       = "from"
	mongoFieldReceivedAt = "receivedAt"
)

// connectTimeout bounds connect and ping when opening a MongoStore.
const connectTimeout = 10 * time.Second

// MongoStore answers count queries from a MongoDB collection of message
// documents shaped {from: <address>, receivedAt: <date>}.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ API = (*MongoStore)(nil)

// NewMongoStore connects to uri and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Backend implements Named.
func (s *MongoStore) Backend() string {
	return instrumentation.BackendMongo
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// QueryCounts runs a $match + $bucket aggregation over the query range.
func (s *MongoStore) QueryCounts(ctx context.Context, q CountQuery) ([]BucketCount, error) {
	cursor, err := s.collection.Aggregate(ctx, buildCountPipeline(q))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate counts: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []mongoBucket
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode counts: %w", err)
	}

	return countsFromBuckets(q, rows), nil
}

// countsFromBuckets maps $bucket rows back onto the requested starts. BSON
// dates carry milliseconds only, so the _id of a bucket can differ from its
// requested start below the millisecond.
func countsFromBuckets(q CountQuery, rows []mongoBucket) []BucketCount {
	starts := make(map[int64]time.Time, len(q.Starts))
	for _, s := range q.Starts {
		starts[s.UnixMilli()] = s
	}

	counts := make([]BucketCount, 0, len(rows))
	for _, r := range rows {
		start, ok := starts[r.Start.UnixMilli()]
		if !ok {
			start = r.Start.UTC()
		}
		counts = append(counts, BucketCount{Start: start, Count: r.Count})
	}
	return counts
}

// mongoBucket is one $bucket output document.
type mongoBucket struct {
	Start time.Time `bson:"_id"`
	Count int64     `bson:"count"`
}

// buildCountPipeline matches the sender's messages inside [Starts[0], End]
// and buckets them by receivedAt. Every matched document falls inside the
// boundaries, so no default bucket is needed. Empty buckets are not emitted.
func buildCountPipeline(q CountQuery) []bson.M {
	edges := q.upperEdges()

	boundaries := make(bson.A, 0, len(q.Starts)+1)
	for _, s := range q.Starts {
		boundaries = append(boundaries, s.UTC())
	}
	boundaries = append(boundaries, edges[len(edges)-1].UTC())

	return []bson.M{
		{"$match": bson.M{
			mongoFieldFrom: q.Sender,
			mongoFieldReceivedAt: bson.M{
				"$gte": q.Starts[0].UTC(),
				"$lt":  edges[len(edges)-1].UTC(),
			},
		}},
		{"$bucket": bson.M{
			"groupBy":    "$" + mongoFieldReceivedAt,
			"boundaries": boundaries,
			"output": bson.M{
				"count": bson.M{"$sum": 1},
			},
		}},
	}
}
