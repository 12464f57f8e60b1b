package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookstay/internal/domain"
)

type bookingDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	HotelID       primitive.ObjectID `bson:"hotelId"`
	UserID        string             `bson:"userId"`
	FirstName     string             `bson:"firstName"`
	LastName      string             `bson:"lastName"`
	Email         string             `bson:"email"`
	AdultCount    int                `bson:"adultCount"`
	ChildrenCount int                `bson:"childrenCount"`
	CheckIn       time.Time          `bson:"checkIn"`
	CheckOut      time.Time          `bson:"checkOut"`
	TotalCost     float64            `bson:"totalCost"`
}

func fromBookingDoc(d bookingDoc) domain.Booking {
	return domain.Booking{
		ID:            d.ID.Hex(),
		HotelID:       d.HotelID.Hex(),
		UserID:        d.UserID,
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		Email:         d.Email,
		AdultCount:    d.AdultCount,
		ChildrenCount: d.ChildrenCount,
		CheckIn:       d.CheckIn,
		CheckOut:      d.CheckOut,
		TotalCost:     d.TotalCost,
	}
}

func (r *Repo) InsertBooking(ctx context.Context, b domain.Booking) (string, error) {
	hid, err := primitive.ObjectIDFromHex(b.HotelID)
	if err != nil {
		return "", domain.ErrNotFound
	}
	doc := bookingDoc{
		HotelID:       hid,
		UserID:        b.UserID,
		FirstName:     b.FirstName,
		LastName:      b.LastName,
		Email:         b.Email,
		AdultCount:    b.AdultCount,
		ChildrenCount: b.ChildrenCount,
		CheckIn:       b.CheckIn,
		CheckOut:      b.CheckOut,
		TotalCost:     b.TotalCost,
	}
	res, err := r.bookings.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("unexpected inserted id type")
	}
	return oid.Hex(), nil
}

// ListBookingsByUser returns the user's bookings with each hotel attached,
// the document-store equivalent of the populate() the frontend expects.
func (r *Repo) ListBookingsByUser(ctx context.Context, userID string) ([]domain.BookingWithHotel, error) {
	cur, err := r.bookings.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []bookingDoc
	hotelIDs := make([]primitive.ObjectID, 0, 8)
	seen := map[primitive.ObjectID]bool{}
	for cur.Next(ctx) {
		var d bookingDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		docs = append(docs, d)
		if !seen[d.HotelID] {
			seen[d.HotelID] = true
			hotelIDs = append(hotelIDs, d.HotelID)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	hotels := map[primitive.ObjectID]domain.Hotel{}
	if len(hotelIDs) > 0 {
		hcur, err := r.hotels.Find(ctx, bson.M{"_id": bson.M{"$in": hotelIDs}})
		if err != nil {
			return nil, err
		}
		defer hcur.Close(ctx)
		for hcur.Next(ctx) {
			var hd hotelDoc
			if err := hcur.Decode(&hd); err != nil {
				return nil, err
			}
			hotels[hd.ID] = fromHotelDoc(hd)
		}
		if err := hcur.Err(); err != nil {
			return nil, err
		}
	}

	out := make([]domain.BookingWithHotel, 0, len(docs))
	for _, d := range docs {
		item := domain.BookingWithHotel{Booking: fromBookingDoc(d)}
		if h, ok := hotels[d.HotelID]; ok {
			item.Hotel = &h
		}
		out = append(out, item)
	}
	return out, nil
}
