package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"bookstay/internal/domain"
)

type BookingConfig struct {
	Currency string // ISO code for card intents, e.g. "usd"
	// AttemptTTL bounds how long a created attempt stays redeemable.
	AttemptTTL time.Duration
	// PollTries/PollBackoff shape the bounded status poll that waits for the
	// user to approve the push prompt on their phone.
	PollTries   int
	PollBackoff time.Duration
}

// BookingService coordinates payment verification against the card and
// mobile-money gateways and commits the booking record once a payment is
// confirmed. The attempt record it persists is the source of truth for the
// method and provider identifiers; the booking step never trusts a
// client-replayed method flag.
type BookingService struct {
	hotels   domain.HotelRepository
	bookings domain.BookingRepository
	attempts domain.PaymentAttemptRepository
	cards    domain.CardGateway
	momo     domain.MobileMoneyGateway
	cfg      BookingConfig

	now func() time.Time
}

func NewBookingService(
	hotels domain.HotelRepository,
	bookings domain.BookingRepository,
	attempts domain.PaymentAttemptRepository,
	cards domain.CardGateway,
	momo domain.MobileMoneyGateway,
	cfg BookingConfig,
) *BookingService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.AttemptTTL <= 0 {
		cfg.AttemptTTL = 30 * time.Minute
	}
	if cfg.PollTries <= 0 {
		cfg.PollTries = 3
	}
	if cfg.PollBackoff <= 0 {
		cfg.PollBackoff = 2 * time.Second
	}
	return &BookingService{
		hotels:   hotels,
		bookings: bookings,
		attempts: attempts,
		cards:    cards,
		momo:     momo,
		cfg:      cfg,
		now:      time.Now,
	}
}

type PaymentIntentResponse struct {
	PaymentAttemptID  string  `json:"paymentAttemptId"`
	TotalCost         float64 `json:"totalCost"`
	ClientSecret      string  `json:"clientSecret,omitempty"`
	PaymentIntentID   string  `json:"paymentIntentId,omitempty"`
	CheckoutRequestID string  `json:"checkoutRequestId,omitempty"`
}

// CreatePaymentIntent computes the stay's total and opens a payment with the
// chosen provider. The returned attempt id is what the client must replay on
// the booking step.
func (s *BookingService) CreatePaymentIntent(ctx context.Context, hotelID, userID string, nights int, method domain.PaymentMethod, phone string) (PaymentIntentResponse, error) {
	if nights <= 0 {
		return PaymentIntentResponse{}, fmt.Errorf("%w: nights must be positive", domain.ErrValidation)
	}
	hotel, err := s.hotels.GetHotel(ctx, hotelID)
	if err != nil {
		return PaymentIntentResponse{}, err
	}
	total := hotel.PricePerNight * float64(nights)

	attempt := domain.PaymentAttempt{
		ID:        uuid.NewString(),
		HotelID:   hotelID,
		UserID:    userID,
		Method:    method,
		Amount:    total,
		Currency:  s.cfg.Currency,
		Status:    domain.AttemptInitiated,
		CreatedAt: s.now().UTC(),
		UpdatedAt: s.now().UTC(),
	}
	resp := PaymentIntentResponse{PaymentAttemptID: attempt.ID, TotalCost: total}

	switch method {
	case domain.MethodCard:
		intent, err := s.cards.CreateIntent(ctx, int64(math.Round(total*100)), s.cfg.Currency, map[string]string{
			"hotelId": hotelID,
			"userId":  userID,
		})
		if err != nil {
			return PaymentIntentResponse{}, err
		}
		attempt.IntentID = intent.ID
		attempt.ClientSecret = intent.ClientSecret
		resp.PaymentIntentID = intent.ID
		resp.ClientSecret = intent.ClientSecret

	case domain.MethodMpesa:
		if phone == "" {
			return PaymentIntentResponse{}, fmt.Errorf("%w: phone number is required for mpesa", domain.ErrValidation)
		}
		push, err := s.momo.STKPush(ctx, phone, int64(math.Round(total)), "hotel-"+hotelID)
		if err != nil {
			return PaymentIntentResponse{}, err
		}
		attempt.CheckoutRequestID = push.CheckoutRequestID
		attempt.MerchantRequestID = push.MerchantRequestID
		resp.CheckoutRequestID = push.CheckoutRequestID

	default:
		return PaymentIntentResponse{}, fmt.Errorf("%w: unknown payment method %q", domain.ErrValidation, method)
	}

	if err := s.attempts.InsertAttempt(ctx, attempt); err != nil {
		return PaymentIntentResponse{}, err
	}
	return resp, nil
}

type BookingDetails struct {
	FirstName     string
	LastName      string
	Email         string
	AdultCount    int
	ChildrenCount int
	CheckIn       time.Time
	CheckOut      time.Time
}

// ConfirmBooking verifies the payment behind the given attempt and, on
// success, persists the booking. The total comes from the attempt, not the
// request body. There is no compensation path: if the insert fails after the
// payment verified, the confirmed payment has no booking.
func (s *BookingService) ConfirmBooking(ctx context.Context, hotelID, userID, attemptID string, d BookingDetails) (string, error) {
	attempt, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return "", err
	}
	if attempt.HotelID != hotelID || attempt.UserID != userID {
		return "", domain.ErrPaymentMismatch
	}
	if attempt.Consumed {
		return "", domain.ErrAttemptConsumed
	}
	switch attempt.Status {
	case domain.AttemptFailed, domain.AttemptTimedOut:
		return "", domain.ErrPaymentNotConfirmed
	case domain.AttemptInitiated:
		if attempt.ExpiredAt(s.cfg.AttemptTTL, s.now()) {
			// best effort; a racing callback may have settled it already
			_ = s.attempts.TransitionAttempt(ctx, attempt.ID, domain.AttemptTimedOut)
			return "", domain.ErrAttemptExpired
		}
	}

	switch attempt.Method {
	case domain.MethodCard:
		if err := s.verifyCard(ctx, attempt, hotelID, userID); err != nil {
			return "", err
		}
	case domain.MethodMpesa:
		if err := s.verifyMpesa(ctx, attempt); err != nil {
			return "", err
		}
	default:
		return "", domain.ErrPaymentMismatch
	}

	// Hotel must still exist at commit time.
	if _, err := s.hotels.GetHotel(ctx, hotelID); err != nil {
		return "", err
	}

	// Single-use guard: consume before insert so a concurrent confirm with
	// the same attempt cannot double-book.
	if err := s.attempts.MarkConsumed(ctx, attempt.ID); err != nil {
		return "", err
	}

	booking := domain.Booking{
		HotelID:       hotelID,
		UserID:        userID,
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		Email:         d.Email,
		AdultCount:    d.AdultCount,
		ChildrenCount: d.ChildrenCount,
		CheckIn:       d.CheckIn,
		CheckOut:      d.CheckOut,
		TotalCost:     attempt.Amount,
	}
	id, err := s.bookings.InsertBooking(ctx, booking)
	if err != nil {
		log.Error().Err(err).
			Str("attempt", attempt.ID).
			Str("hotel", hotelID).
			Msg("booking insert failed after payment verified")
		return "", err
	}
	return id, nil
}

func (s *BookingService) verifyCard(ctx context.Context, attempt domain.PaymentAttempt, hotelID, userID string) error {
	intent, err := s.cards.GetIntent(ctx, attempt.IntentID)
	if err != nil {
		return err
	}
	// Metadata must match exactly, regardless of the intent's status.
	if intent.Metadata["hotelId"] != hotelID || intent.Metadata["userId"] != userID {
		return domain.ErrPaymentMismatch
	}
	if intent.Status != "succeeded" {
		return fmt.Errorf("%w: payment intent status is %q", domain.ErrPaymentNotConfirmed, intent.Status)
	}
	if attempt.Status == domain.AttemptInitiated {
		_ = s.attempts.TransitionAttempt(ctx, attempt.ID, domain.AttemptConfirmed)
	}
	return nil
}

// verifyMpesa accepts a callback-settled attempt outright; otherwise it polls
// the gateway's query endpoint a bounded number of times while the user
// approves the prompt.
func (s *BookingService) verifyMpesa(ctx context.Context, attempt domain.PaymentAttempt) error {
	if attempt.Status == domain.AttemptConfirmed {
		return nil
	}
	var lastDesc string
	for i := 0; i < s.cfg.PollTries; i++ {
		if i > 0 && !sleepCtx(ctx, s.cfg.PollBackoff) {
			return ctx.Err()
		}
		// A callback may land while we wait.
		if cur, err := s.attempts.GetAttempt(ctx, attempt.ID); err == nil {
			switch cur.Status {
			case domain.AttemptConfirmed:
				return nil
			case domain.AttemptFailed, domain.AttemptTimedOut:
				return domain.ErrPaymentNotConfirmed
			}
		}
		st, err := s.momo.QueryStatus(ctx, attempt.CheckoutRequestID)
		if err != nil {
			lastDesc = err.Error()
			continue
		}
		// Literal string comparison; the gateway reports codes as strings
		// and anything but "0" (including its pending codes) is not success.
		if st.ResultCode == "0" {
			_ = s.attempts.TransitionAttempt(ctx, attempt.ID, domain.AttemptConfirmed)
			return nil
		}
		lastDesc = st.ResultDesc
	}
	if lastDesc == "" {
		lastDesc = "no result from gateway"
	}
	return fmt.Errorf("%w: %s", domain.ErrPaymentNotConfirmed, lastDesc)
}

// HandleCallback applies the gateway's out-of-band result to the pending
// attempt it correlates with. Unknown checkout ids are logged and dropped;
// the gateway retries callbacks it considers undelivered, so the response
// must stay a 200 either way.
func (s *BookingService) HandleCallback(ctx context.Context, checkoutRequestID, resultCode, resultDesc string) error {
	attempt, err := s.attempts.GetAttemptByCheckoutRequest(ctx, checkoutRequestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().
				Str("checkoutRequestId", checkoutRequestID).
				Str("resultCode", resultCode).
				Msg("callback for unknown payment attempt")
			return nil
		}
		return err
	}
	to := domain.AttemptFailed
	if resultCode == "0" {
		to = domain.AttemptConfirmed
	}
	if err := s.attempts.TransitionAttempt(ctx, attempt.ID, to); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// already settled by the synchronous poll; nothing to do
			return nil
		}
		return err
	}
	log.Info().
		Str("attempt", attempt.ID).
		Str("checkoutRequestId", checkoutRequestID).
		Str("status", string(to)).
		Str("resultDesc", resultDesc).
		Msg("payment attempt settled by callback")
	return nil
}

func (s *BookingService) MyBookings(ctx context.Context, userID string) ([]domain.BookingWithHotel, error) {
	return s.bookings.ListBookingsByUser(ctx, userID)
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
