package mongodb

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bookstay/internal/domain"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	FirstName string             `bson:"firstName"`
	LastName  string             `bson:"lastName"`
}

func fromUserDoc(d userDoc) domain.User {
	return domain.User{
		ID:        d.ID.Hex(),
		Email:     d.Email,
		Password:  d.Password,
		FirstName: d.FirstName,
		LastName:  d.LastName,
	}
}

func (r *Repo) InsertUser(ctx context.Context, u domain.User) (string, error) {
	doc := userDoc{
		Email:     strings.ToLower(u.Email),
		Password:  u.Password,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
	res, err := r.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", domain.ErrEmailTaken
		}
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("unexpected inserted id type")
	}
	return oid.Hex(), nil
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var d userDoc
	err := r.users.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return fromUserDoc(d), nil
}

func (r *Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.User{}, domain.ErrNotFound
	}
	var d userDoc
	if err := r.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return fromUserDoc(d), nil
}
