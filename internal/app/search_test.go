package app_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"bookstay/internal/app"
	"bookstay/internal/domain"
)

type countingRepo struct {
	fakeHotelRepo
	searches int
	page     domain.SearchPage
	gets     int
}

func (r *countingRepo) SearchHotels(ctx context.Context, q domain.SearchQuery) (domain.SearchPage, error) {
	r.searches++
	return r.page, nil
}

func (r *countingRepo) GetHotel(ctx context.Context, id string) (domain.Hotel, error) {
	r.gets++
	return r.fakeHotelRepo.GetHotel(ctx, id)
}

type memCache struct {
	vals map[string][]byte
}

func newMemCache() *memCache { return &memCache{vals: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	b, ok := c.vals[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}
func (c *memCache) Set(ctx context.Context, key string, v any, ttlSeconds int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.vals[key] = b
	return nil
}
func (c *memCache) Del(ctx context.Context, key string) error {
	delete(c.vals, key)
	return nil
}

func TestSearch_CachesPage(t *testing.T) {
	repo := &countingRepo{page: domain.SearchPage{
		Data: []domain.Hotel{{ID: hotelID, Name: "Palm Court"}},
		Pagination: domain.Pagination{
			Total: 1, Page: 1, Pages: 1,
		},
	}}
	svc := app.NewQueryService(repo, newMemCache(), 30*time.Second)

	q := domain.SearchQuery{Destination: "Nairobi", Page: 1}
	for i := 0; i < 3; i++ {
		page, err := svc.Search(context.Background(), q)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(page.Data) != 1 || page.Pagination.Total != 1 {
			t.Fatalf("unexpected page: %+v", page)
		}
	}
	if repo.searches != 1 {
		t.Fatalf("repo hit %d times, want 1", repo.searches)
	}
}

func TestSearch_DistinctQueriesDistinctKeys(t *testing.T) {
	repo := &countingRepo{}
	svc := app.NewQueryService(repo, newMemCache(), 30*time.Second)

	if _, err := svc.Search(context.Background(), domain.SearchQuery{Destination: "Nairobi", Page: 1}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := svc.Search(context.Background(), domain.SearchQuery{Destination: "Nairobi", Page: 2}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := svc.Search(context.Background(), domain.SearchQuery{Destination: "Nairobi", Page: 1, Stars: []int{4}}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if repo.searches != 3 {
		t.Fatalf("repo hit %d times, want 3", repo.searches)
	}
}

func TestGetHotel_CachesAndInvalidates(t *testing.T) {
	repo := &countingRepo{fakeHotelRepo: fakeHotelRepo{hotels: map[string]domain.Hotel{
		hotelID: {ID: hotelID, Name: "Palm Court"},
	}}}
	svc := app.NewQueryService(repo, newMemCache(), 30*time.Second)

	for i := 0; i < 2; i++ {
		h, err := svc.GetHotel(context.Background(), hotelID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if h.Name != "Palm Court" {
			t.Fatalf("unexpected hotel: %+v", h)
		}
	}
	if repo.gets != 1 {
		t.Fatalf("repo hit %d times before invalidation, want 1", repo.gets)
	}

	svc.InvalidateHotel(context.Background(), hotelID)
	if _, err := svc.GetHotel(context.Background(), hotelID); err != nil {
		t.Fatalf("get after invalidation: %v", err)
	}
	if repo.gets != 2 {
		t.Fatalf("repo hit %d times after invalidation, want 2", repo.gets)
	}
}

func TestGetHotel_MissPropagatesNotFound(t *testing.T) {
	repo := &countingRepo{fakeHotelRepo: fakeHotelRepo{hotels: map[string]domain.Hotel{}}}
	svc := app.NewQueryService(repo, newMemCache(), 30*time.Second)

	_, err := svc.GetHotel(context.Background(), "missing")
	if err != domain.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
