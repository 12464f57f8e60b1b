package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	server "bookstay/internal/adapters/http_server"
	"bookstay/internal/app"
	"bookstay/internal/domain"
)

// ---- fakes ----

type stubHotelRepo struct {
	hotels map[string]domain.Hotel
	page   domain.SearchPage
}

func (s *stubHotelRepo) InsertHotel(ctx context.Context, h domain.Hotel) (string, error) {
	return "h-new", nil
}
func (s *stubHotelRepo) UpdateHotel(ctx context.Context, id, ownerID string, h domain.Hotel) (domain.Hotel, error) {
	return domain.Hotel{}, domain.ErrNotFound
}
func (s *stubHotelRepo) GetHotel(ctx context.Context, id string) (domain.Hotel, error) {
	h, ok := s.hotels[id]
	if !ok {
		return domain.Hotel{}, domain.ErrNotFound
	}
	return h, nil
}
func (s *stubHotelRepo) ListHotelsByOwner(ctx context.Context, ownerID string) ([]domain.Hotel, error) {
	return nil, nil
}
func (s *stubHotelRepo) SearchHotels(ctx context.Context, q domain.SearchQuery) (domain.SearchPage, error) {
	return s.page, nil
}

type stubBookingRepo struct{ inserted []domain.Booking }

func (s *stubBookingRepo) InsertBooking(ctx context.Context, b domain.Booking) (string, error) {
	s.inserted = append(s.inserted, b)
	return "bk-1", nil
}
func (s *stubBookingRepo) ListBookingsByUser(ctx context.Context, userID string) ([]domain.BookingWithHotel, error) {
	return nil, nil
}

type stubAttemptRepo struct{ attempts map[string]*domain.PaymentAttempt }

func (s *stubAttemptRepo) InsertAttempt(ctx context.Context, a domain.PaymentAttempt) error {
	cp := a
	s.attempts[a.ID] = &cp
	return nil
}
func (s *stubAttemptRepo) GetAttempt(ctx context.Context, id string) (domain.PaymentAttempt, error) {
	a, ok := s.attempts[id]
	if !ok {
		return domain.PaymentAttempt{}, domain.ErrNotFound
	}
	return *a, nil
}
func (s *stubAttemptRepo) GetAttemptByCheckoutRequest(ctx context.Context, cri string) (domain.PaymentAttempt, error) {
	for _, a := range s.attempts {
		if a.CheckoutRequestID == cri {
			return *a, nil
		}
	}
	return domain.PaymentAttempt{}, domain.ErrNotFound
}
func (s *stubAttemptRepo) TransitionAttempt(ctx context.Context, id string, to domain.AttemptStatus) error {
	a, ok := s.attempts[id]
	if !ok || a.Status != domain.AttemptInitiated {
		return domain.ErrNotFound
	}
	a.Status = to
	return nil
}
func (s *stubAttemptRepo) MarkConsumed(ctx context.Context, id string) error {
	a, ok := s.attempts[id]
	if !ok || a.Consumed {
		return domain.ErrAttemptConsumed
	}
	a.Consumed = true
	return nil
}

type stubUserRepo struct {
	byEmail map[string]domain.User
	nextID  int
}

func (s *stubUserRepo) InsertUser(ctx context.Context, u domain.User) (string, error) {
	email := strings.ToLower(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return "", domain.ErrEmailTaken
	}
	s.nextID++
	u.ID = fmt.Sprintf("u-%d", s.nextID)
	s.byEmail[email] = u
	return u.ID, nil
}
func (s *stubUserRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}
func (s *stubUserRepo) GetUser(ctx context.Context, id string) (domain.User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

type stubCards struct{ intents map[string]domain.PaymentIntent }

func (s *stubCards) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (domain.PaymentIntent, error) {
	pi := domain.PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret", Status: "requires_payment_method", Metadata: metadata}
	s.intents[pi.ID] = pi
	return pi, nil
}
func (s *stubCards) GetIntent(ctx context.Context, id string) (domain.PaymentIntent, error) {
	pi, ok := s.intents[id]
	if !ok {
		return domain.PaymentIntent{}, domain.ErrNotFound
	}
	return pi, nil
}

type stubMomo struct{ status domain.StatusResult }

func (s *stubMomo) STKPush(ctx context.Context, phone string, amount int64, ref string) (domain.STKPushResult, error) {
	return domain.STKPushResult{CheckoutRequestID: "ws_CO_test", MerchantRequestID: "mr_test", ResponseCode: "0"}, nil
}
func (s *stubMomo) QueryStatus(ctx context.Context, cri string) (domain.StatusResult, error) {
	return s.status, nil
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, key string, dst any) (bool, error) { return false, nil }
func (noopCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	return nil
}
func (noopCache) Del(ctx context.Context, key string) error { return nil }

type nopUploader struct{}

func (nopUploader) Upload(ctx context.Context, dataURI string) (string, error) {
	return "", errors.New("uploads disabled in tests")
}

// ---- environment ----

const testHotelID = "64f0c9e2a1b2c3d4e5f60789"

type env struct {
	ts       *httptest.Server
	hotels   *stubHotelRepo
	bookings *stubBookingRepo
	attempts *stubAttemptRepo
	cards    *stubCards
	momo     *stubMomo
}

func newEnv(t *testing.T) *env {
	t.Helper()
	hotels := &stubHotelRepo{
		hotels: map[string]domain.Hotel{
			testHotelID: {ID: testHotelID, Name: "Palm Court", PricePerNight: 100},
		},
		page: domain.SearchPage{
			Data:       []domain.Hotel{{ID: testHotelID, Name: "Palm Court"}},
			Pagination: domain.Pagination{Total: 1, Page: 1, Pages: 1},
		},
	}
	bookings := &stubBookingRepo{}
	attempts := &stubAttemptRepo{attempts: map[string]*domain.PaymentAttempt{}}
	cards := &stubCards{intents: map[string]domain.PaymentIntent{}}
	momo := &stubMomo{status: domain.StatusResult{ResultCode: "0", ResultDesc: "ok"}}

	q := app.NewQueryService(hotels, noopCache{}, time.Minute)
	auth := app.NewAuthService(&stubUserRepo{byEmail: map[string]domain.User{}}, "test-secret", time.Hour)
	bsvc := app.NewBookingService(hotels, bookings, attempts, cards, momo, app.BookingConfig{
		PollBackoff: time.Millisecond,
	})
	hsvc := app.NewHotelService(hotels, nopUploader{}, q)

	srv := server.New()
	srv.MountHandlers(&server.Handlers{Q: q, Hotels: hsvc, Bookings: bsvc, Auth: auth, AppEnv: "dev"})

	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return &env{ts: ts, hotels: hotels, bookings: bookings, attempts: attempts, cards: cards, momo: momo}
}

func (e *env) postJSON(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, e.ts.URL+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// register creates a user and returns its session token from the cookie.
func (e *env) register(t *testing.T, email string) string {
	t.Helper()
	resp := e.postJSON(t, "/api/users/register", "", map[string]string{
		"email": email, "password": "hunter22", "firstName": "Ada", "lastName": "Wanjiku",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == server.AuthCookie {
			return c.Value
		}
	}
	t.Fatalf("no session cookie on register")
	return ""
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

// ---- tests ----

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	resp, err := http.Get(e.ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)
	resp, err := http.Get(e.ts.URL + "/api/my-bookings")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content-type %q", ct)
	}
}

func TestValidateToken(t *testing.T) {
	e := newEnv(t)
	tok := e.register(t, "ada@example.com")

	req, _ := http.NewRequest(http.MethodGet, e.ts.URL+"/api/auth/validate-token", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["userId"] == "" {
		t.Fatalf("no userId in response: %v", body)
	}
}

func TestSearchHotels(t *testing.T) {
	e := newEnv(t)
	resp, err := http.Get(e.ts.URL + "/api/hotels/search?destination=Nairobi&stars=4&stars=5&maxPrice=200&page=1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var page domain.SearchPage
	decodeBody(t, resp, &page)
	if len(page.Data) != 1 || page.Pagination.Total != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestSearchHotels_BadParams(t *testing.T) {
	e := newEnv(t)
	for _, qs := range []string{"?page=0", "?page=x", "?stars=four", "?maxPrice=cheap", "?adultCount=two"} {
		resp, err := http.Get(e.ts.URL + "/api/hotels/search" + qs)
		if err != nil {
			t.Fatalf("get %s: %v", qs, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status %d, want 400", qs, resp.StatusCode)
		}
	}
}

func TestGetHotel_NotFound(t *testing.T) {
	e := newEnv(t)
	resp, err := http.Get(e.ts.URL + "/api/hotels/unknown")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestCardBookingFlow(t *testing.T) {
	e := newEnv(t)
	tok := e.register(t, "ada@example.com")

	resp := e.postJSON(t, "/api/hotels/"+testHotelID+"/bookings/payment-intent", tok, map[string]any{
		"numberOfNights": 3,
		"paymentMethod":  "card",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("intent status %d", resp.StatusCode)
	}
	var intent struct {
		PaymentAttemptID string  `json:"paymentAttemptId"`
		TotalCost        float64 `json:"totalCost"`
		ClientSecret     string  `json:"clientSecret"`
		PaymentIntentID  string  `json:"paymentIntentId"`
	}
	decodeBody(t, resp, &intent)
	if intent.TotalCost != 300 || intent.ClientSecret == "" || intent.PaymentAttemptID == "" {
		t.Fatalf("unexpected intent: %+v", intent)
	}

	// simulate the card being charged
	pi := e.cards.intents[intent.PaymentIntentID]
	pi.Status = "succeeded"
	e.cards.intents[intent.PaymentIntentID] = pi

	resp = e.postJSON(t, "/api/hotels/"+testHotelID+"/bookings", tok, map[string]any{
		"paymentAttemptId": intent.PaymentAttemptID,
		"firstName":        "Ada",
		"lastName":         "Wanjiku",
		"email":            "ada@example.com",
		"adultCount":       2,
		"childrenCount":    0,
		"checkIn":          "2025-06-01T00:00:00Z",
		"checkOut":         "2025-06-04T00:00:00Z",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("booking status %d", resp.StatusCode)
	}
	var booked map[string]string
	decodeBody(t, resp, &booked)
	if booked["bookingId"] == "" {
		t.Fatalf("no bookingId: %v", booked)
	}
	if len(e.bookings.inserted) != 1 || e.bookings.inserted[0].TotalCost != 300 {
		t.Fatalf("unexpected persisted booking: %+v", e.bookings.inserted)
	}
}

func TestMpesaBookingFlow(t *testing.T) {
	e := newEnv(t)
	tok := e.register(t, "ada@example.com")

	resp := e.postJSON(t, "/api/hotels/"+testHotelID+"/bookings/payment-intent", tok, map[string]any{
		"numberOfNights": 3,
		"paymentMethod":  "mpesa",
		"phoneNumber":    "254700000000",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("intent status %d", resp.StatusCode)
	}
	var intent struct {
		PaymentAttemptID  string `json:"paymentAttemptId"`
		ClientSecret      string `json:"clientSecret"`
		CheckoutRequestID string `json:"checkoutRequestId"`
	}
	decodeBody(t, resp, &intent)
	if intent.CheckoutRequestID != "ws_CO_test" {
		t.Fatalf("checkoutRequestId = %q", intent.CheckoutRequestID)
	}
	if intent.ClientSecret != "" {
		t.Fatalf("mpesa intent must not carry a client secret")
	}

	resp = e.postJSON(t, "/api/hotels/"+testHotelID+"/bookings", tok, map[string]any{
		"paymentAttemptId": intent.PaymentAttemptID,
		"firstName":        "Ada",
		"lastName":         "Wanjiku",
		"email":            "ada@example.com",
		"adultCount":       2,
		"checkIn":          "2025-06-01T00:00:00Z",
		"checkOut":         "2025-06-04T00:00:00Z",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("booking status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMpesaBookingRejectedWhenUnpaid(t *testing.T) {
	e := newEnv(t)
	e.momo.status = domain.StatusResult{ResultCode: "1", ResultDesc: "The balance is insufficient for the transaction"}
	tok := e.register(t, "ada@example.com")

	resp := e.postJSON(t, "/api/hotels/"+testHotelID+"/bookings/payment-intent", tok, map[string]any{
		"numberOfNights": 3,
		"paymentMethod":  "mpesa",
		"phoneNumber":    "254700000000",
	})
	var intent struct {
		PaymentAttemptID string `json:"paymentAttemptId"`
	}
	decodeBody(t, resp, &intent)

	resp = e.postJSON(t, "/api/hotels/"+testHotelID+"/bookings", tok, map[string]any{
		"paymentAttemptId": intent.PaymentAttemptID,
		"firstName":        "Ada",
		"lastName":         "Wanjiku",
		"email":            "ada@example.com",
		"adultCount":       2,
		"checkIn":          "2025-06-01T00:00:00Z",
		"checkOut":         "2025-06-04T00:00:00Z",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
	if len(e.bookings.inserted) != 0 {
		t.Fatalf("booking must not persist when payment is unpaid")
	}
}

func TestPaymentIntent_BadMethod(t *testing.T) {
	e := newEnv(t)
	tok := e.register(t, "ada@example.com")

	resp := e.postJSON(t, "/api/hotels/"+testHotelID+"/bookings/payment-intent", tok, map[string]any{
		"numberOfNights": 3,
		"paymentMethod":  "cheque",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestMpesaCallbackEndpoint(t *testing.T) {
	e := newEnv(t)
	tok := e.register(t, "ada@example.com")

	resp := e.postJSON(t, "/api/hotels/"+testHotelID+"/bookings/payment-intent", tok, map[string]any{
		"numberOfNights": 3,
		"paymentMethod":  "mpesa",
		"phoneNumber":    "254700000000",
	})
	var intent struct {
		PaymentAttemptID string `json:"paymentAttemptId"`
	}
	decodeBody(t, resp, &intent)

	payload := `{"Body":{"stkCallback":{"MerchantRequestID":"mr_test","CheckoutRequestID":"ws_CO_test","ResultCode":0,"ResultDesc":"ok","CallbackMetadata":{"Item":[{"Name":"MpesaReceiptNumber","Value":"QK12XYZ"}]}}}}`
	cbResp, err := http.Post(e.ts.URL+"/api/mpesa/callback", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	defer cbResp.Body.Close()
	if cbResp.StatusCode != http.StatusOK {
		t.Fatalf("callback status %d", cbResp.StatusCode)
	}

	a, err := e.attempts.GetAttempt(context.Background(), intent.PaymentAttemptID)
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if a.Status != domain.AttemptConfirmed {
		t.Fatalf("attempt status %q, want confirmed", a.Status)
	}
}

func TestMpesaCallback_Malformed(t *testing.T) {
	e := newEnv(t)
	resp, err := http.Post(e.ts.URL+"/api/mpesa/callback", "application/json", strings.NewReader(`{"Body":{}}`))
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ada@example.com")

	resp := e.postJSON(t, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong-password",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
}
