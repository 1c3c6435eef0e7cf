package records

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"thooimai-go/internal/errs"
	"thooimai-go/internal/logger"
	"thooimai-go/internal/types"
)

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logger.Logger
	now    func() time.Time
}

// Connect dials the cluster and verifies it with a ping.
func Connect(ctx context.Context, uri, database string, log *logger.Logger) (*MongoStore, error) {
	if log == nil {
		log = logger.Discard()
	}
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	log.Component("records").WithField("database", database).Info("connected to mongodb")
	return &MongoStore{
		client: client,
		db:     client.Database(database),
		log:    log.Component("records"),
		now:    time.Now,
	}, nil
}

func (s *MongoStore) Insert(ctx context.Context, table string, r types.Report) (types.Report, error) {
	doc := Prepare(r, s.now())
	if _, err := s.db.Collection(table).InsertOne(ctx, doc); err != nil {
		s.log.WithError(err).WithField("table", table).Error("insert failed")
		return types.Report{}, &errs.PersistenceError{Table: table, Err: err}
	}
	s.log.WithField("table", table).WithField("report_id", doc.ID.Hex()).Info("report stored")
	return doc, nil
}

// Prepare assigns the store generated fields.
func Prepare(r types.Report, now time.Time) types.Report {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now.UTC()
	}
	if r.Status == "" {
		r.Status = types.StatusPending
	}
	return r
}

// EnsureIndexes creates the lookup indexes used by the dashboard queries.
func (s *MongoStore) EnsureIndexes(ctx context.Context, table string) error {
	_, err := s.db.Collection(table).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "priority", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes on %s: %w", table, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
