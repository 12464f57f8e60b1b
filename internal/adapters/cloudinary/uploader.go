package cloudinary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookstay/internal/adapters/observability"
)

// Uploader posts base64 data URIs to Cloudinary's unsigned upload endpoint
// and returns the hosted URL.
type Uploader struct {
	base   string
	cloud  string
	preset string
	hc     *http.Client
}

func New(base, cloud, preset string) (*Uploader, error) {
	if cloud == "" || preset == "" {
		return nil, fmt.Errorf("cloud name and upload preset are required")
	}
	return &Uploader{
		base:   strings.TrimRight(base, "/"),
		cloud:  cloud,
		preset: preset,
		hc:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (u *Uploader) Upload(ctx context.Context, dataURI string) (string, error) {
	form := url.Values{}
	form.Set("file", dataURI)
	form.Set("upload_preset", u.preset)

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", u.base, u.cloud)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := u.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("cloudinary", "upload", 0, time.Since(start))
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("cloudinary", "upload", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("cloudinary: upload returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var body struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.SecureURL != "" {
		return body.SecureURL, nil
	}
	if body.URL != "" {
		return body.URL, nil
	}
	return "", fmt.Errorf("cloudinary: upload response had no url")
}
