package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bookstay/internal/domain"
)

// QueryService serves the public read paths (search and hotel detail) with a
// cache in front of the repository.
type QueryService struct {
	repo     domain.HotelRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.HotelRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetHotel(ctx context.Context, id string) (domain.Hotel, error) {
	key := "hotel:" + id
	var h domain.Hotel
	if ok, _ := s.cache.Get(ctx, key, &h); ok {
		return h, nil
	}
	h, err := s.repo.GetHotel(ctx, id)
	if err != nil {
		return domain.Hotel{}, err
	}
	_ = s.cache.Set(ctx, key, h, int(s.cacheTTL.Seconds()))
	return h, nil
}

func (s *QueryService) Search(ctx context.Context, q domain.SearchQuery) (domain.SearchPage, error) {
	key := searchKey(q)
	var out domain.SearchPage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	page, err := s.repo.SearchHotels(ctx, q)
	if err != nil {
		return domain.SearchPage{}, err
	}

	// size guard: skip caching pathological pages
	if b, _ := json.Marshal(page); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, page, int(s.cacheTTL.Seconds()))
	}
	return page, nil
}

// InvalidateHotel drops the cached detail view after an owner mutation.
// Search pages are left to their (short) TTL; their key space is unbounded.
func (s *QueryService) InvalidateHotel(ctx context.Context, id string) {
	_ = s.cache.Del(ctx, "hotel:"+id)
}

func searchKey(q domain.SearchQuery) string {
	ints := func(xs []int) string {
		parts := make([]string, len(xs))
		for i, x := range xs {
			parts[i] = fmt.Sprint(x)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprintf("search:%s|%d|%d|%s|%s|%s|%g|%s|%d",
		strings.ToLower(q.Destination),
		q.AdultCount, q.ChildrenCount,
		strings.Join(q.Facilities, ","),
		strings.Join(q.Types, ","),
		ints(q.Stars),
		q.MaxPrice,
		q.SortOption,
		q.Page,
	)
}
