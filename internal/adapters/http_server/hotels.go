package httpserver

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bookstay/internal/app"
	"bookstay/internal/domain"
)

// maxImageBytes caps a single uploaded image at 5 MB.
const maxImageBytes = 5 << 20

func (h *Handlers) searchHotels(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearchQuery(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	page, err := h.Q.Search(r.Context(), q)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func parseSearchQuery(r *http.Request) (domain.SearchQuery, error) {
	v := r.URL.Query()
	q := domain.SearchQuery{
		Destination: v.Get("destination"),
		Facilities:  v["facilities"],
		Types:       v["types"],
		SortOption:  v.Get("sortOption"),
		Page:        1,
	}
	if s := v.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return domain.SearchQuery{}, domain.ErrValidation
		}
		q.Page = n
	}
	if s := v.Get("adultCount"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return domain.SearchQuery{}, domain.ErrValidation
		}
		q.AdultCount = n
	}
	if s := v.Get("childrenCount"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return domain.SearchQuery{}, domain.ErrValidation
		}
		q.ChildrenCount = n
	}
	for _, s := range v["stars"] {
		n, err := strconv.Atoi(s)
		if err != nil {
			return domain.SearchQuery{}, domain.ErrValidation
		}
		q.Stars = append(q.Stars, n)
	}
	if s := v.Get("maxPrice"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.SearchQuery{}, domain.ErrValidation
		}
		q.MaxPrice = f
	}
	return q, nil
}

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	hotel, err := h.Q.GetHotel(r.Context(), chi.URLParam(r, "hotelId"))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hotel)
}

// ---- owner-facing my-hotels routes ----

func (h *Handlers) createHotel(w http.ResponseWriter, r *http.Request) {
	hotel, images, err := parseHotelForm(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	created, err := h.Hotels.CreateHotel(r.Context(), UserID(r), hotel, images)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) updateHotel(w http.ResponseWriter, r *http.Request) {
	hotel, images, err := parseHotelForm(r)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	updated, err := h.Hotels.UpdateHotel(r.Context(), chi.URLParam(r, "hotelId"), UserID(r), hotel, images)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, updated)
}

func (h *Handlers) listMyHotels(w http.ResponseWriter, r *http.Request) {
	hotels, err := h.Hotels.ListMine(r.Context(), UserID(r))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if hotels == nil {
		hotels = []domain.Hotel{}
	}
	writeJSON(w, http.StatusOK, hotels)
}

func (h *Handlers) getMyHotel(w http.ResponseWriter, r *http.Request) {
	hotel, err := h.Hotels.GetMine(r.Context(), chi.URLParam(r, "hotelId"), UserID(r))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hotel)
}

// parseHotelForm reads the multipart manage-hotel form: scalar fields,
// repeated facilities/imageUrls, and up to six image files of 5 MB each.
func parseHotelForm(r *http.Request) (domain.Hotel, []app.ImageFile, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return domain.Hotel{}, nil, domain.ErrValidation
	}
	get := r.FormValue

	hotel := domain.Hotel{
		Name:        get("name"),
		City:        get("city"),
		Country:     get("country"),
		Description: get("description"),
		Type:        get("type"),
		Facilities:  r.MultipartForm.Value["facilities"],
		ImageURLs:   r.MultipartForm.Value["imageUrls"],
	}
	if hotel.Name == "" || hotel.City == "" || hotel.Country == "" ||
		hotel.Description == "" || hotel.Type == "" || len(hotel.Facilities) == 0 {
		return domain.Hotel{}, nil, domain.ErrValidation
	}
	var err error
	if hotel.PricePerNight, err = strconv.ParseFloat(get("pricePerNight"), 64); err != nil {
		return domain.Hotel{}, nil, domain.ErrValidation
	}
	if hotel.StarRating, err = strconv.Atoi(get("starRating")); err != nil || hotel.StarRating < 1 || hotel.StarRating > 5 {
		return domain.Hotel{}, nil, domain.ErrValidation
	}
	if hotel.AdultCount, err = strconv.Atoi(get("adultCount")); err != nil {
		return domain.Hotel{}, nil, domain.ErrValidation
	}
	if hotel.ChildrenCount, err = strconv.Atoi(get("childrenCount")); err != nil {
		return domain.Hotel{}, nil, domain.ErrValidation
	}
	if hotel.RoomCount, err = strconv.Atoi(get("roomCount")); err != nil {
		return domain.Hotel{}, nil, domain.ErrValidation
	}

	files := r.MultipartForm.File["imageFiles"]
	if len(files) > app.MaxHotelImages {
		return domain.Hotel{}, nil, domain.ErrValidation
	}
	images := make([]app.ImageFile, 0, len(files))
	for _, fh := range files {
		img, err := readImage(fh)
		if err != nil {
			return domain.Hotel{}, nil, err
		}
		images = append(images, img)
	}
	return hotel, images, nil
}

func readImage(fh *multipart.FileHeader) (app.ImageFile, error) {
	if fh.Size > maxImageBytes {
		return app.ImageFile{}, domain.ErrValidation
	}
	f, err := fh.Open()
	if err != nil {
		return app.ImageFile{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return app.ImageFile{}, err
	}
	if len(data) > maxImageBytes {
		return app.ImageFile{}, domain.ErrValidation
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return app.ImageFile{ContentType: ct, Data: data}, nil
}
