package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"decobot/internal/domain"
	"decobot/internal/errors"
)

type orderDocument struct {
	ID         string    `bson:"_id"`
	CustomerID string    `bson:"customerId"`
	Stage      string    `bson:"stage"`
	Active     bool      `bson:"active"`
	Version    int64     `bson:"version"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
	// NextReminderAt is absent when no installment awaits a reminder.
	NextReminderAt *time.Time    `bson:"nextReminderAt,omitempty"`
	Body           *domain.Order `bson:"body"`
}

func toDocument(order *domain.Order) orderDocument {
	return orderDocument{
		ID:             order.ID,
		CustomerID:     order.CustomerID,
		Stage:          string(order.Stage),
		Active:         order.Stage.IsActive(),
		Version:        order.Version,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
		NextReminderAt: order.Schedule.NextReminderAt(),
		Body:           order,
	}
}

type MongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(collection *mongo.Collection) *MongoOrderRepository {
	return &MongoOrderRepository{collection: collection}
}

func (r *MongoOrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_, err := r.collection.InsertOne(ctx, toDocument(order))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.NewConflictError(fmt.Sprintf("order with id %s already exists", order.ID))
		}
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func (r *MongoOrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var doc orderDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}
	return doc.Body, nil
}

func (r *MongoOrderRepository) CompareAndSwap(ctx context.Context, order *domain.Order, expectedVersion int64) error {
	filter := bson.M{"_id": order.ID, "version": expectedVersion}

	result, err := r.collection.ReplaceOne(ctx, filter, toDocument(order))
	if err != nil {
		return fmt.Errorf("replacing order: %w", err)
	}

	if result.MatchedCount == 0 {
		if _, err := r.Get(ctx, order.ID); err != nil {
			return err
		}
		return errors.NewConflictError(fmt.Sprintf("order %s changed concurrently, expected version %d", order.ID, expectedVersion))
	}
	return nil
}

func (r *MongoOrderRepository) FindActiveByCustomer(ctx context.Context, customerID string) (*domain.Order, error) {
	filter := bson.M{"customerId": customerID, "active": true}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var doc orderDocument
	err := r.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no active order for customer %s", customerID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying active order: %w", err)
	}
	return doc.Body, nil
}

func (r *MongoOrderRepository) FindDueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	filter := bson.M{"nextReminderAt": bson.M{"$lte": now.UTC()}}
	opts := options.Find().SetSort(bson.D{{Key: "nextReminderAt", Value: 1}}).SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying due reminders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding due reminder: %w", err)
		}
		orders = append(orders, doc.Body)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating due reminders: %w", err)
	}
	return orders, nil
}
