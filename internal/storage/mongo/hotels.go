package mongodb

import (
	"context"
	"errors"
	"math"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookstay/internal/domain"
)

// hotelDoc is the stored shape; _id is an ObjectID while the domain carries
// its hex form.
type hotelDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID       string             `bson:"userId"`
	Name          string             `bson:"name"`
	City          string             `bson:"city"`
	Country       string             `bson:"country"`
	Description   string             `bson:"description"`
	Type          string             `bson:"type"`
	AdultCount    int                `bson:"adultCount"`
	ChildrenCount int                `bson:"childrenCount"`
	RoomCount     int                `bson:"roomCount"`
	Facilities    []string           `bson:"facilities"`
	PricePerNight float64            `bson:"pricePerNight"`
	StarRating    int                `bson:"starRating"`
	ImageURLs     []string           `bson:"imageUrls"`
	LastUpdated   time.Time          `bson:"lastUpdated"`
}

func toHotelDoc(h domain.Hotel) hotelDoc {
	return hotelDoc{
		OwnerID:       h.OwnerID,
		Name:          h.Name,
		City:          h.City,
		Country:       h.Country,
		Description:   h.Description,
		Type:          h.Type,
		AdultCount:    h.AdultCount,
		ChildrenCount: h.ChildrenCount,
		RoomCount:     h.RoomCount,
		Facilities:    h.Facilities,
		PricePerNight: h.PricePerNight,
		StarRating:    h.StarRating,
		ImageURLs:     h.ImageURLs,
		LastUpdated:   h.LastUpdated,
	}
}

func fromHotelDoc(d hotelDoc) domain.Hotel {
	return domain.Hotel{
		ID:            d.ID.Hex(),
		OwnerID:       d.OwnerID,
		Name:          d.Name,
		City:          d.City,
		Country:       d.Country,
		Description:   d.Description,
		Type:          d.Type,
		AdultCount:    d.AdultCount,
		ChildrenCount: d.ChildrenCount,
		RoomCount:     d.RoomCount,
		Facilities:    d.Facilities,
		PricePerNight: d.PricePerNight,
		StarRating:    d.StarRating,
		ImageURLs:     d.ImageURLs,
		LastUpdated:   d.LastUpdated,
	}
}

func (r *Repo) InsertHotel(ctx context.Context, h domain.Hotel) (string, error) {
	res, err := r.hotels.InsertOne(ctx, toHotelDoc(h))
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("unexpected inserted id type")
	}
	return oid.Hex(), nil
}

func (r *Repo) UpdateHotel(ctx context.Context, id, ownerID string, h domain.Hotel) (domain.Hotel, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Hotel{}, domain.ErrNotFound
	}
	set := bson.M{
		"name":          h.Name,
		"city":          h.City,
		"country":       h.Country,
		"description":   h.Description,
		"type":          h.Type,
		"adultCount":    h.AdultCount,
		"childrenCount": h.ChildrenCount,
		"roomCount":     h.RoomCount,
		"facilities":    h.Facilities,
		"pricePerNight": h.PricePerNight,
		"starRating":    h.StarRating,
		"imageUrls":     h.ImageURLs,
		"lastUpdated":   h.LastUpdated,
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d hotelDoc
	err = r.hotels.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "userId": ownerID},
		bson.M{"$set": set},
		opts,
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Hotel{}, domain.ErrNotFound
		}
		return domain.Hotel{}, err
	}
	return fromHotelDoc(d), nil
}

func (r *Repo) GetHotel(ctx context.Context, id string) (domain.Hotel, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Hotel{}, domain.ErrNotFound
	}
	var d hotelDoc
	if err := r.hotels.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Hotel{}, domain.ErrNotFound
		}
		return domain.Hotel{}, err
	}
	return fromHotelDoc(d), nil
}

func (r *Repo) ListHotelsByOwner(ctx context.Context, ownerID string) ([]domain.Hotel, error) {
	cur, err := r.hotels.Find(ctx, bson.M{"userId": ownerID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []domain.Hotel
	for cur.Next(ctx) {
		var d hotelDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, fromHotelDoc(d))
	}
	return out, cur.Err()
}

// SearchHotels translates the free-form query into a filter/sort/paginate
// pass over the hotels collection. Page size is fixed at domain.PageSize.
func (r *Repo) SearchHotels(ctx context.Context, q domain.SearchQuery) (domain.SearchPage, error) {
	filter := bson.M{}
	if q.Destination != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q.Destination), Options: "i"}
		filter["$or"] = bson.A{bson.M{"city": re}, bson.M{"country": re}}
	}
	if q.AdultCount > 0 {
		filter["adultCount"] = bson.M{"$gte": q.AdultCount}
	}
	if q.ChildrenCount > 0 {
		filter["childrenCount"] = bson.M{"$gte": q.ChildrenCount}
	}
	if len(q.Facilities) > 0 {
		filter["facilities"] = bson.M{"$all": q.Facilities}
	}
	if len(q.Types) > 0 {
		filter["type"] = bson.M{"$in": q.Types}
	}
	if len(q.Stars) > 0 {
		filter["starRating"] = bson.M{"$in": q.Stars}
	}
	if q.MaxPrice > 0 {
		filter["pricePerNight"] = bson.M{"$lte": q.MaxPrice}
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	opts := options.Find().
		SetSkip(int64((page - 1) * domain.PageSize)).
		SetLimit(domain.PageSize)
	switch q.SortOption {
	case "starRating":
		opts.SetSort(bson.D{{Key: "starRating", Value: -1}})
	case "pricePerNightAsc":
		opts.SetSort(bson.D{{Key: "pricePerNight", Value: 1}})
	case "pricePerNightDesc":
		opts.SetSort(bson.D{{Key: "pricePerNight", Value: -1}})
	}

	cur, err := r.hotels.Find(ctx, filter, opts)
	if err != nil {
		return domain.SearchPage{}, err
	}
	defer cur.Close(ctx)

	hotels := []domain.Hotel{}
	for cur.Next(ctx) {
		var d hotelDoc
		if err := cur.Decode(&d); err != nil {
			return domain.SearchPage{}, err
		}
		hotels = append(hotels, fromHotelDoc(d))
	}
	if err := cur.Err(); err != nil {
		return domain.SearchPage{}, err
	}

	total, err := r.hotels.CountDocuments(ctx, filter)
	if err != nil {
		return domain.SearchPage{}, err
	}

	return domain.SearchPage{
		Data: hotels,
		Pagination: domain.Pagination{
			Total: int(total),
			Page:  page,
			Pages: int(math.Ceil(float64(total) / float64(domain.PageSize))),
		},
	}, nil
}
