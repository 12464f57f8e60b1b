package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repo struct {
	hotels   *mongo.Collection
	bookings *mongo.Collection
	attempts *mongo.Collection
	users    *mongo.Collection
}

func New(db *mongo.Database) *Repo {
	return &Repo{
		hotels:   db.Collection("hotels"),
		bookings: db.Collection("bookings"),
		attempts: db.Collection("payment_attempts"),
		users:    db.Collection("users"),
	}
}

// EnsureIndexes creates the indexes the read paths rely on. Safe to call on
// every startup; Mongo treats existing definitions as no-ops.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	_, err := r.hotels.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "pricePerNight", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = r.bookings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "hotelId", Value: 1}}},
		{Keys: bson.D{{Key: "checkIn", Value: 1}, {Key: "checkOut", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = r.attempts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "checkoutRequestId", Value: 1}},
		Options: options.Index().SetSparse(true),
	})
	if err != nil {
		return err
	}
	_, err = r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
