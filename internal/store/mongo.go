package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
)

const analysesCollection = "analyses"

// MongoStore keeps one document per analysis
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects to uri and ensures the feed indexes exist
func NewMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		database = "veritas"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(analysesCollection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create indexes: %w", err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

// Create inserts rec after assigning its id, status and creation time
func (s *MongoStore) Create(ctx context.Context, rec *model.AnalysisRecord) error {
	start := time.Now()
	defer observeStore(start)

	prepare(rec)
	// BSON keeps milliseconds; truncate so the returned record matches storage.
	rec.CreatedAt = rec.CreatedAt.Truncate(time.Millisecond)

	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		metrics.StageFailures.WithLabelValues(metrics.StageStore).Inc()
		return persistErr("insert record", err)
	}
	return nil
}

// Get loads one record
func (s *MongoStore) Get(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("load record", err)
	}
	return &rec, nil
}

// List returns records newest first
func (s *MongoStore) List(ctx context.Context, filter Filter) ([]*model.AnalysisRecord, error) {
	query := bson.D{}
	if filter.Status != "" {
		query = append(query, bson.E{Key: "status", Value: string(filter.Status)})
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, persistErr("list records", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	out := []*model.AnalysisRecord{}
	for cur.Next(ctx) {
		var rec model.AnalysisRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, persistErr("decode record", err)
		}
		out = append(out, &rec)
	}
	if err := cur.Err(); err != nil {
		return nil, persistErr("list records", err)
	}
	return out, nil
}

// ApplyVote increments one counter and recomputes the community score in a
// single pipeline update
func (s *MongoStore) ApplyVote(ctx context.Context, id string, dir model.VoteDirection) (*model.AnalysisRecord, error) {
	up, down, err := voteDelta(dir)
	if err != nil {
		return nil, err
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "votes.up", Value: bson.D{{Key: "$add", Value: bson.A{"$votes.up", up}}}},
			{Key: "votes.down", Value: bson.D{{Key: "$add", Value: bson.A{"$votes.down", down}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "breakdown.communityScore", Value: communityScoreExpr()},
		}}},
	}

	var rec model.AnalysisRecord
	err = s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.StageFailures.WithLabelValues(metrics.StageStore).Inc()
		return nil, persistErr("apply vote", err)
	}

	metrics.VotesTotal.WithLabelValues(string(dir)).Inc()
	return &rec, nil
}

// communityScoreExpr is round(100*up/(up+down)) with halves rounded up
func communityScoreExpr() bson.D {
	ratio := bson.D{{Key: "$divide", Value: bson.A{
		"$votes.up",
		bson.D{{Key: "$add", Value: bson.A{"$votes.up", "$votes.down"}}},
	}}}
	percent := bson.D{{Key: "$multiply", Value: bson.A{100, ratio}}}
	return bson.D{{Key: "$toInt", Value: bson.D{{Key: "$floor", Value: bson.D{{Key: "$add", Value: bson.A{percent, 0.5}}}}}}}
}

// SetStatus records a moderation decision
func (s *MongoStore) SetStatus(ctx context.Context, id string, status model.Status) (*model.AnalysisRecord, error) {
	if err := validStatus(status); err != nil {
		return nil, err
	}

	var rec model.AnalysisRecord
	err := s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: string(status)}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("set status", err)
	}
	return &rec, nil
}

// Ping checks the primary
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
