package domain

import "time"

type Booking struct {
	ID            string    `json:"_id" bson:"_id,omitempty"`
	HotelID       string    `json:"hotelId" bson:"hotelId"`
	UserID        string    `json:"userId" bson:"userId"`
	FirstName     string    `json:"firstName" bson:"firstName"`
	LastName      string    `json:"lastName" bson:"lastName"`
	Email         string    `json:"email" bson:"email"`
	AdultCount    int       `json:"adultCount" bson:"adultCount"`
	ChildrenCount int       `json:"childrenCount" bson:"childrenCount"`
	CheckIn       time.Time `json:"checkIn" bson:"checkIn"`
	CheckOut      time.Time `json:"checkOut" bson:"checkOut"`
	TotalCost     float64   `json:"totalCost" bson:"totalCost"`
}

// BookingWithHotel is the my-bookings read model: a booking with its hotel
// attached, matching the populate() the frontend expects.
type BookingWithHotel struct {
	Booking `bson:",inline"`
	Hotel   *Hotel `json:"hotel" bson:"hotel,omitempty"`
}

type PaymentMethod string

const (
	MethodCard  PaymentMethod = "card"
	MethodMpesa PaymentMethod = "mpesa"
)

type AttemptStatus string

// initiated -> confirmed | failed | timed_out. Only initiated may transition.
const (
	AttemptInitiated AttemptStatus = "initiated"
	AttemptConfirmed AttemptStatus = "confirmed"
	AttemptFailed    AttemptStatus = "failed"
	AttemptTimedOut  AttemptStatus = "timed_out"
)

// PaymentAttempt is the server-held record of one payment-intent creation.
// The booking step derives method and provider identifiers from it instead of
// trusting whatever the client replays.
type PaymentAttempt struct {
	ID                string        `bson:"_id"`
	HotelID           string        `bson:"hotelId"`
	UserID            string        `bson:"userId"`
	Method            PaymentMethod `bson:"method"`
	Amount            float64       `bson:"amount"`
	Currency          string        `bson:"currency"`
	IntentID          string        `bson:"intentId,omitempty"`
	ClientSecret      string        `bson:"clientSecret,omitempty"`
	CheckoutRequestID string        `bson:"checkoutRequestId,omitempty"`
	MerchantRequestID string        `bson:"merchantRequestId,omitempty"`
	Status            AttemptStatus `bson:"status"`
	Consumed          bool          `bson:"consumed"`
	CreatedAt         time.Time     `bson:"createdAt"`
	UpdatedAt         time.Time     `bson:"updatedAt"`
}

func (a PaymentAttempt) ExpiredAt(ttl time.Duration, now time.Time) bool {
	return now.Sub(a.CreatedAt) > ttl
}
