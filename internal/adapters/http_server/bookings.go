package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bookstay/internal/adapters/mpesa"
	"bookstay/internal/adapters/observability"
	"bookstay/internal/app"
	"bookstay/internal/domain"
)

type paymentIntentRequest struct {
	NumberOfNights int    `json:"numberOfNights" validate:"required,gt=0"`
	PaymentMethod  string `json:"paymentMethod" validate:"required,oneof=card mpesa"`
	PhoneNumber    string `json:"phoneNumber"`
}

func (h *Handlers) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentRequest
	if err := decodeValid(r, &req); err != nil {
		writeDomainErr(w, err)
		return
	}
	resp, err := h.Bookings.CreatePaymentIntent(
		r.Context(),
		chi.URLParam(r, "hotelId"),
		UserID(r),
		req.NumberOfNights,
		domain.PaymentMethod(req.PaymentMethod),
		req.PhoneNumber,
	)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	observability.ObservePayment(req.PaymentMethod, "initiated")
	writeJSON(w, http.StatusOK, resp)
}

type createBookingRequest struct {
	PaymentAttemptID string    `json:"paymentAttemptId" validate:"required"`
	FirstName        string    `json:"firstName" validate:"required"`
	LastName         string    `json:"lastName" validate:"required"`
	Email            string    `json:"email" validate:"required,email"`
	AdultCount       int       `json:"adultCount" validate:"required,gt=0"`
	ChildrenCount    int       `json:"childrenCount" validate:"gte=0"`
	CheckIn          time.Time `json:"checkIn" validate:"required"`
	CheckOut         time.Time `json:"checkOut" validate:"required"`
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeValid(r, &req); err != nil {
		writeDomainErr(w, err)
		return
	}
	id, err := h.Bookings.ConfirmBooking(
		r.Context(),
		chi.URLParam(r, "hotelId"),
		UserID(r),
		req.PaymentAttemptID,
		app.BookingDetails{
			FirstName:     req.FirstName,
			LastName:      req.LastName,
			Email:         req.Email,
			AdultCount:    req.AdultCount,
			ChildrenCount: req.ChildrenCount,
			CheckIn:       req.CheckIn,
			CheckOut:      req.CheckOut,
		},
	)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"bookingId": id})
}

func (h *Handlers) myBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Bookings.MyBookings(r.Context(), UserID(r))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if bookings == nil {
		bookings = []domain.BookingWithHotel{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// mpesaCallback receives the gateway's out-of-band push result. The gateway
// only cares that we answer 200; correlation failures are our problem, not
// its.
func (h *Handlers) mpesaCallback(w http.ResponseWriter, r *http.Request) {
	cb, err := mpesa.ParseCallback(r.Body)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Callback", "malformed callback body")
		return
	}
	if err := h.Bookings.HandleCallback(r.Context(), cb.CheckoutRequestID, cb.ResultCode, cb.ResultDesc); err != nil {
		writeDomainErr(w, err)
		return
	}
	if cb.ResultCode == "0" {
		observability.ObservePayment("mpesa", "confirmed")
	} else {
		observability.ObservePayment("mpesa", "failed")
	}
	writeJSON(w, http.StatusOK, map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"})
}
