package repository

import (
	"context"
	"time"

	"github.com/example/cartshop/pkg/config"
	"github.com/example/cartshop/pkg/shop"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository stores the audit trail of cart merges, checkouts and
// payment confirmations.
type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
	service  string
}

func NewMongoRepository(cfg *config.MongoDBConfig, service string) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return &MongoRepository{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
		service:  service,
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Service   string             `bson:"service" json:"service"`
	Action    string             `bson:"action" json:"action"`
	Entity    string             `bson:"entity" json:"entity"`
	EntityID  string             `bson:"entity_id" json:"entity_id"`
	Data      bson.M             `bson:"data" json:"data"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

func auditLogFrom(service string, e shop.AuditEntry) *AuditLog {
	log := &AuditLog{
		Service:   service,
		Action:    e.Action,
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		Data:      bson.M{},
		CreatedAt: e.At,
	}
	for k, v := range e.Data {
		log.Data[k] = v
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	return log
}

// Record implements shop.AuditSink.
func (m *MongoRepository) Record(ctx context.Context, e shop.AuditEntry) error {
	_, err := m.database.Collection(m.config.Collection).InsertOne(ctx, auditLogFrom(m.service, e))
	return err
}

func auditQuery(entity, entityID string, limit int64) (bson.M, *options.FindOptions) {
	filter := bson.M{"entity": entity, "entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return filter, opts
}

// GetAuditLogs returns the newest entries recorded for one entity.
func (m *MongoRepository) GetAuditLogs(ctx context.Context, entity, entityID string, limit int64) ([]*AuditLog, error) {
	collection := m.database.Collection(m.config.Collection)

	filter, opts := auditQuery(entity, entityID, limit)
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := make([]*AuditLog, 0)
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}
