package domain

import "context"

type HotelRepository interface {
	InsertHotel(ctx context.Context, h Hotel) (string, error)
	// UpdateHotel replaces the mutable fields of the hotel owned by ownerID.
	// Returns ErrNotFound when no hotel matches id+owner.
	UpdateHotel(ctx context.Context, id, ownerID string, h Hotel) (Hotel, error)
	GetHotel(ctx context.Context, id string) (Hotel, error)
	ListHotelsByOwner(ctx context.Context, ownerID string) ([]Hotel, error)
	SearchHotels(ctx context.Context, q SearchQuery) (SearchPage, error)
}

type BookingRepository interface {
	InsertBooking(ctx context.Context, b Booking) (string, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]BookingWithHotel, error)
}

type PaymentAttemptRepository interface {
	InsertAttempt(ctx context.Context, a PaymentAttempt) error
	GetAttempt(ctx context.Context, id string) (PaymentAttempt, error)
	GetAttemptByCheckoutRequest(ctx context.Context, checkoutRequestID string) (PaymentAttempt, error)
	// TransitionAttempt moves an initiated attempt to the given status.
	// It is a compare-and-set: a non-initiated attempt is left untouched and
	// ErrNotFound is returned.
	TransitionAttempt(ctx context.Context, id string, to AttemptStatus) error
	MarkConsumed(ctx context.Context, id string) error
}

type UserRepository interface {
	InsertUser(ctx context.Context, u User) (string, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// CardGateway is the card-payment provider (payment intents).
type CardGateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (PaymentIntent, error)
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string // provider value; "succeeded" is terminal success
	Amount       int64
	Currency     string
	Metadata     map[string]string
}

// MobileMoneyGateway is the push-payment provider.
type MobileMoneyGateway interface {
	STKPush(ctx context.Context, phone string, amount int64, accountRef string) (STKPushResult, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (StatusResult, error)
}

type STKPushResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResponseCode      string
	CustomerMessage   string
}

type StatusResult struct {
	ResultCode string // "0" means paid; anything else is failure or pending
	ResultDesc string
}

type ImageUploader interface {
	// Upload accepts a base64 data URI and returns a public URL.
	Upload(ctx context.Context, dataURI string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
