package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"bookstay/internal/domain"
)

// MaxHotelImages caps how many files one create/update may carry.
const MaxHotelImages = 6

// ImageFile is one uploaded image as received from the multipart form.
type ImageFile struct {
	ContentType string
	Data        []byte
}

// HotelService covers the owner-facing my-hotels operations.
type HotelService struct {
	repo     domain.HotelRepository
	uploader domain.ImageUploader
	queries  *QueryService

	now func() time.Time
}

func NewHotelService(r domain.HotelRepository, u domain.ImageUploader, q *QueryService) *HotelService {
	return &HotelService{repo: r, uploader: u, queries: q, now: time.Now}
}

func (s *HotelService) CreateHotel(ctx context.Context, ownerID string, h domain.Hotel, images []ImageFile) (domain.Hotel, error) {
	urls, err := s.uploadImages(ctx, images)
	if err != nil {
		return domain.Hotel{}, err
	}
	h.OwnerID = ownerID
	h.ImageURLs = urls
	h.LastUpdated = s.now().UTC()

	id, err := s.repo.InsertHotel(ctx, h)
	if err != nil {
		return domain.Hotel{}, err
	}
	h.ID = id
	return h, nil
}

// UpdateHotel replaces the hotel's fields; freshly uploaded images are
// prepended to the URLs the client chose to keep.
func (s *HotelService) UpdateHotel(ctx context.Context, id, ownerID string, h domain.Hotel, images []ImageFile) (domain.Hotel, error) {
	urls, err := s.uploadImages(ctx, images)
	if err != nil {
		return domain.Hotel{}, err
	}
	h.ImageURLs = append(urls, h.ImageURLs...)
	h.LastUpdated = s.now().UTC()

	updated, err := s.repo.UpdateHotel(ctx, id, ownerID, h)
	if err != nil {
		return domain.Hotel{}, err
	}
	if s.queries != nil {
		s.queries.InvalidateHotel(ctx, id)
	}
	return updated, nil
}

func (s *HotelService) ListMine(ctx context.Context, ownerID string) ([]domain.Hotel, error) {
	return s.repo.ListHotelsByOwner(ctx, ownerID)
}

func (s *HotelService) GetMine(ctx context.Context, id, ownerID string) (domain.Hotel, error) {
	h, err := s.repo.GetHotel(ctx, id)
	if err != nil {
		return domain.Hotel{}, err
	}
	if h.OwnerID != ownerID {
		return domain.Hotel{}, domain.ErrNotFound
	}
	return h, nil
}

// uploadImages ships each file to the image host as a base64 data URI,
// concurrently, preserving the submitted order.
func (s *HotelService) uploadImages(ctx context.Context, images []ImageFile) ([]string, error) {
	if len(images) == 0 {
		return []string{}, nil
	}
	if len(images) > MaxHotelImages {
		return nil, fmt.Errorf("%w: at most %d images", domain.ErrValidation, MaxHotelImages)
	}
	urls := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			dataURI := "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
			u, err := s.uploader.Upload(gctx, dataURI)
			if err != nil {
				return err
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}
