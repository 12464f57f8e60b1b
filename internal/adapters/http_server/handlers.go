package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"bookstay/internal/app"
	"bookstay/internal/domain"
)

type Handlers struct {
	Q        *app.QueryService
	Hotels   *app.HotelService
	Bookings *app.BookingService
	Auth     *app.AuthService
	AppEnv   string
}

var validate = validator.New()

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api", func(r chi.Router) {
		r.Post("/users/register", h.register)
		r.Post("/auth/login", h.login)
		r.Post("/auth/logout", h.logout)

		r.Get("/hotels/search", h.searchHotels)
		r.Get("/hotels/{hotelId}", h.getHotel)

		r.Post("/mpesa/callback", h.mpesaCallback)

		r.Group(func(pr chi.Router) {
			pr.Use(Auth(h.Auth))

			pr.Get("/auth/validate-token", h.validateToken)

			pr.Post("/hotels/{hotelId}/bookings/payment-intent", h.createPaymentIntent)
			pr.Post("/hotels/{hotelId}/bookings", h.createBooking)
			pr.Get("/my-bookings", h.myBookings)

			pr.Route("/my-hotels", func(mr chi.Router) {
				mr.Post("/", h.createHotel)
				mr.Get("/", h.listMyHotels)
				mr.Get("/{hotelId}", h.getMyHotel)
				mr.Put("/{hotelId}", h.updateHotel)
			})
		})
	})
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeDomainErr maps service errors onto the response taxonomy: validation
// and payment disagreements are 400s, missing resources 404, everything
// unclassified a generic 500 with detail only in the server log.
func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.Is(err, domain.ErrPaymentMismatch):
		writeProblem(w, http.StatusBadRequest, "Payment Mismatch", "payment does not match this booking")
	case errors.Is(err, domain.ErrPaymentNotConfirmed):
		writeProblem(w, http.StatusBadRequest, "Payment Not Confirmed", err.Error())
	case errors.Is(err, domain.ErrAttemptConsumed):
		writeProblem(w, http.StatusBadRequest, "Payment Already Used", "this payment attempt was already redeemed")
	case errors.Is(err, domain.ErrAttemptExpired):
		writeProblem(w, http.StatusBadRequest, "Payment Expired", "this payment attempt expired; start over")
	case errors.Is(err, domain.ErrEmailTaken):
		writeProblem(w, http.StatusBadRequest, "Registration Failed", "email already registered")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "something went wrong")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// decodeValid decodes a JSON body into dst and runs struct validation.
func decodeValid(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrValidation
	}
	if err := validate.Struct(dst); err != nil {
		return domain.ErrValidation
	}
	return nil
}
