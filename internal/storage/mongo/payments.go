package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"bookstay/internal/domain"
)

// Payment attempts are keyed by the server-generated attempt id (a UUID
// string), not an ObjectID; the id is handed to the client and replayed on
// the booking step.

func (r *Repo) InsertAttempt(ctx context.Context, a domain.PaymentAttempt) error {
	_, err := r.attempts.InsertOne(ctx, a)
	return err
}

func (r *Repo) GetAttempt(ctx context.Context, id string) (domain.PaymentAttempt, error) {
	var a domain.PaymentAttempt
	if err := r.attempts.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.PaymentAttempt{}, domain.ErrNotFound
		}
		return domain.PaymentAttempt{}, err
	}
	return a, nil
}

func (r *Repo) GetAttemptByCheckoutRequest(ctx context.Context, checkoutRequestID string) (domain.PaymentAttempt, error) {
	var a domain.PaymentAttempt
	err := r.attempts.FindOne(ctx, bson.M{"checkoutRequestId": checkoutRequestID}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.PaymentAttempt{}, domain.ErrNotFound
		}
		return domain.PaymentAttempt{}, err
	}
	return a, nil
}

// TransitionAttempt is a compare-and-set on status: only an initiated attempt
// moves. A concurrent callback and poll can both try to settle the same
// attempt; whichever lands first wins and the loser sees ErrNotFound.
func (r *Repo) TransitionAttempt(ctx context.Context, id string, to domain.AttemptStatus) error {
	res, err := r.attempts.UpdateOne(ctx,
		bson.M{"_id": id, "status": domain.AttemptInitiated},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) MarkConsumed(ctx context.Context, id string) error {
	res, err := r.attempts.UpdateOne(ctx,
		bson.M{"_id": id, "consumed": false},
		bson.M{"$set": bson.M{"consumed": true, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrAttemptConsumed
	}
	return nil
}
