package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"decobot/internal/config"
)

const OrderRecordsCollection = "order_records"

func NewConnection(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// EnsureOrderIndexes creates the secondary indexes used to find a customer's
// active order and the installments due for a reminder.
func EnsureOrderIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	indexes := db.Collection(OrderRecordsCollection).Indexes()

	activeIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "customerId", Value: 1},
			{Key: "active", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("customer_active_index"),
	}

	reminderIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "nextReminderAt", Value: 1}},
		Options: options.Index().SetName("next_reminder_index").SetSparse(true),
	}

	for _, idx := range []mongo.IndexModel{activeIndex, reminderIndex} {
		name := *idx.Options.Name
		logger.Info("creating mongo index", zap.String("index", name))
		if _, err := indexes.CreateOne(ctx, idx); err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
	}

	return nil
}
