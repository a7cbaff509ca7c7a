package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fitforge/fitforge/app/models"
)

// HistoryCollection is the MongoDB collection holding order status changes.
const HistoryCollection = "order_history"

// MongoHistory stores the order audit log in MongoDB, one document per
// status change.
type MongoHistory struct {
	col *mongo.Collection
}

var _ OrderHistory = (*MongoHistory)(nil)

// ConnectMongo opens and pings a client.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).
		SetConnectTimeout(5*time.Second).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("history: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("history: mongo ping: %w", err)
	}
	return client, nil
}

// NewMongoHistory binds to db.order_history and ensures the lookup index.
func NewMongoHistory(ctx context.Context, client *mongo.Client, db string) (*MongoHistory, error) {
	col := client.Database(db).Collection(HistoryCollection)
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "at", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("history: create index: %w", err)
	}
	return &MongoHistory{col: col}, nil
}

func (h *MongoHistory) Record(ctx context.Context, c models.StatusChange) error {
	if _, err := h.col.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("history: insert %s: %w", c.OrderID, err)
	}
	return nil
}

func (h *MongoHistory) List(ctx context.Context, orderID string) ([]models.StatusChange, error) {
	cur, err := h.col.Find(ctx,
		bson.M{"order_id": orderID},
		options.Find().SetSort(bson.D{{Key: "at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("history: find %s: %w", orderID, err)
	}
	defer cur.Close(ctx)

	out := []models.StatusChange{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("history: decode %s: %w", orderID, err)
	}
	return out, nil
}
