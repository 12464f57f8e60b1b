package app_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"bookstay/internal/app"
	"bookstay/internal/domain"
)

type ownerRepo struct {
	fakeHotelRepo
	nextID   int
	updated  []domain.Hotel
	updateID string
}

func (r *ownerRepo) InsertHotel(ctx context.Context, h domain.Hotel) (string, error) {
	r.nextID++
	id := fmt.Sprintf("hotel-%d", r.nextID)
	if r.hotels == nil {
		r.hotels = map[string]domain.Hotel{}
	}
	h.ID = id
	r.hotels[id] = h
	return id, nil
}

func (r *ownerRepo) UpdateHotel(ctx context.Context, id, ownerID string, h domain.Hotel) (domain.Hotel, error) {
	cur, ok := r.hotels[id]
	if !ok || cur.OwnerID != ownerID {
		return domain.Hotel{}, domain.ErrNotFound
	}
	h.ID = id
	h.OwnerID = ownerID
	r.hotels[id] = h
	r.updated = append(r.updated, h)
	r.updateID = id
	return h, nil
}

func (r *ownerRepo) ListHotelsByOwner(ctx context.Context, ownerID string) ([]domain.Hotel, error) {
	var out []domain.Hotel
	for _, h := range r.hotels {
		if h.OwnerID == ownerID {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeUploader struct {
	mu    sync.Mutex
	seen  []string
	fail  bool
	calls int
}

func (u *fakeUploader) Upload(ctx context.Context, dataURI string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.fail {
		return "", errors.New("upload rejected")
	}
	u.seen = append(u.seen, dataURI)
	return fmt.Sprintf("https://img.example.com/%d.jpg", len(u.seen)), nil
}

func TestCreateHotel_UploadsImagesAndSetsOwner(t *testing.T) {
	repo := &ownerRepo{}
	up := &fakeUploader{}
	svc := app.NewHotelService(repo, up, nil)

	images := []app.ImageFile{
		{ContentType: "image/png", Data: []byte("first")},
		{ContentType: "image/jpeg", Data: []byte("second")},
	}
	created, err := svc.CreateHotel(context.Background(), "owner-1", domain.Hotel{Name: "Palm Court"}, images)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.OwnerID != "owner-1" {
		t.Fatalf("unexpected hotel: %+v", created)
	}
	if created.LastUpdated.IsZero() {
		t.Fatalf("lastUpdated not set")
	}
	if len(created.ImageURLs) != 2 {
		t.Fatalf("imageUrls = %v", created.ImageURLs)
	}
	if up.calls != 2 {
		t.Fatalf("uploader called %d times", up.calls)
	}
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("first"))
	found := false
	for _, s := range up.seen {
		if s == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("data URI not sent to uploader: %v", up.seen)
	}
}

func TestCreateHotel_TooManyImages(t *testing.T) {
	svc := app.NewHotelService(&ownerRepo{}, &fakeUploader{}, nil)
	images := make([]app.ImageFile, app.MaxHotelImages+1)
	for i := range images {
		images[i] = app.ImageFile{ContentType: "image/png", Data: []byte("x")}
	}
	_, err := svc.CreateHotel(context.Background(), "owner-1", domain.Hotel{Name: "x"}, images)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCreateHotel_UploadFailureAborts(t *testing.T) {
	repo := &ownerRepo{}
	svc := app.NewHotelService(repo, &fakeUploader{fail: true}, nil)
	_, err := svc.CreateHotel(context.Background(), "owner-1", domain.Hotel{Name: "x"},
		[]app.ImageFile{{ContentType: "image/png", Data: []byte("x")}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.hotels) != 0 {
		t.Fatalf("hotel must not persist when an upload fails")
	}
}

func TestUpdateHotel_PrependsNewImages(t *testing.T) {
	repo := &ownerRepo{fakeHotelRepo: fakeHotelRepo{hotels: map[string]domain.Hotel{
		"h1": {ID: "h1", OwnerID: "owner-1", Name: "Palm Court", ImageURLs: []string{"https://img.example.com/old.jpg"}},
	}}}
	up := &fakeUploader{}
	svc := app.NewHotelService(repo, up, nil)

	updated, err := svc.UpdateHotel(context.Background(), "h1", "owner-1",
		domain.Hotel{Name: "Palm Court", ImageURLs: []string{"https://img.example.com/old.jpg"}},
		[]app.ImageFile{{ContentType: "image/png", Data: []byte("new")}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.ImageURLs) != 2 {
		t.Fatalf("imageUrls = %v", updated.ImageURLs)
	}
	if !strings.HasPrefix(updated.ImageURLs[0], "https://img.example.com/") || updated.ImageURLs[1] != "https://img.example.com/old.jpg" {
		t.Fatalf("new uploads must come first: %v", updated.ImageURLs)
	}
}

func TestUpdateHotel_WrongOwner(t *testing.T) {
	repo := &ownerRepo{fakeHotelRepo: fakeHotelRepo{hotels: map[string]domain.Hotel{
		"h1": {ID: "h1", OwnerID: "owner-1", Name: "Palm Court"},
	}}}
	svc := app.NewHotelService(repo, &fakeUploader{}, nil)

	_, err := svc.UpdateHotel(context.Background(), "h1", "intruder", domain.Hotel{Name: "Palm Court"}, nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetMine_OwnerScoped(t *testing.T) {
	repo := &ownerRepo{fakeHotelRepo: fakeHotelRepo{hotels: map[string]domain.Hotel{
		"h1": {ID: "h1", OwnerID: "owner-1", Name: "Palm Court"},
	}}}
	svc := app.NewHotelService(repo, &fakeUploader{}, nil)

	if _, err := svc.GetMine(context.Background(), "h1", "owner-1"); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := svc.GetMine(context.Background(), "h1", "intruder"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for foreign owner", err)
	}
}
