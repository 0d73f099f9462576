package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"nongxian/config"
)

// Collection names
const (
	CouponsCollection        = "coupons"
	CouponUsageCollection    = "couponUsage"
	OrdersCollection         = "orders"
	ProductsCollection       = "products"
	CategoriesCollection     = "categories"
	PaymentMethodsCollection = "paymentMethods"
	LogisticsCollection      = "logisticsSettings"
	EmailSettingsCollection  = "emailSettings"
	EmailTemplatesCollection = "emailTemplates"
	AdminsCollection         = "admins"
	IdempotencyCollection    = "idempotency"
)

// Connect opens the MongoDB client and pings it.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Printf("Connected to MongoDB database %q", cfg.Database)
	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes creates the lookup indexes and the idempotency TTL index.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		CouponUsageCollection: {
			{Keys: bson.D{{Key: "couponCode", Value: 1}, {Key: "userId", Value: 1}}},
		},
		OrdersCollection: {
			{Keys: bson.M{"createdAt": -1}},
			{Keys: bson.M{"userId": 1}},
			{Keys: bson.M{"status": 1}},
		},
		ProductsCollection: {
			{Keys: bson.M{"category": 1}},
		},
		AdminsCollection: {
			{Keys: bson.M{"email": 1}, Options: options.Index().SetUnique(true).SetName("unique_email")},
		},
		IdempotencyCollection: {
			{Keys: bson.M{"expires_at": 1}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
		},
	}

	for name, idx := range indexes {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
