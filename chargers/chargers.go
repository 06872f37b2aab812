// Package chargers lists, searches and edits charger listings.
package chargers

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/evcharge-client/apiclient"
	"github.com/jrsteele09/evcharge-client/internal/utils"
)

const (
	basePath   = "/chargers"
	searchPath = "/chargers/search"

	// PlaceholderImage is shown for listings without pictures
	PlaceholderImage = "https://via.placeholder.com/400x250?text=No+Image"
)

type Charger struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Location    string   `json:"location"`
	PricePerKwh float64  `json:"pricePerKwh"`
	Images      []string `json:"images"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether the listing can be placed on a map.
func (c Charger) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// Filter narrows a search. Blank fields are ignored.
type Filter struct {
	Brand    string
	Location string
	MinPrice *float64
	MaxPrice *float64
}

func (f Filter) Empty() bool {
	return len(f.Query()) == 0
}

// Query encodes the filter the way the search endpoint expects it.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if b := strings.TrimSpace(f.Brand); b != "" {
		q.Set("brand", b)
	}
	if l := strings.TrimSpace(f.Location); l != "" {
		q.Set("location", l)
	}
	if f.MinPrice != nil {
		q.Set("minPrice", utils.FormatOptionalFloat(f.MinPrice))
	}
	if f.MaxPrice != nil {
		q.Set("maxPrice", utils.FormatOptionalFloat(f.MaxPrice))
	}
	return q
}

type Service struct {
	client *apiclient.Client
	logger zerolog.Logger
}

type ServiceOption func(*Service)

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

func NewService(client *apiclient.Client, opts ...ServiceOption) *Service {
	s := &Service{client: client, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every listing visible to the caller. Hosts only see their own.
func (s *Service) List(ctx context.Context) ([]Charger, error) {
	var list []Charger
	if err := s.client.GetJSON(ctx, basePath, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Search falls back to List when the filter is empty.
func (s *Service) Search(ctx context.Context, f Filter) ([]Charger, error) {
	if f.Empty() {
		return s.List(ctx)
	}
	var list []Charger
	if err := s.client.GetJSON(ctx, searchPath, &list, apiclient.WithQuery(f.Query())); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Charger, error) {
	var c Charger
	if err := s.client.GetJSON(ctx, chargerPath(id), &c); err != nil {
		return Charger{}, err
	}
	return c, nil
}

// Create uploads a new listing owned by the signed in host.
func (s *Service) Create(ctx context.Context, form Form) (Charger, error) {
	body, err := form.encode(nil)
	if err != nil {
		return Charger{}, err
	}

	resp, err := s.client.Post(ctx, basePath, body)
	if err != nil {
		return Charger{}, err
	}
	c, err := savedCharger(resp, 0, form)
	if err != nil {
		return Charger{}, err
	}
	s.logger.Info().Int64("id", c.ID).Int("images", len(form.Images)).Msg("charger created")
	return c, nil
}

// Update replaces the listing. With keepExistingImages the uploaded images are
// added to the stored ones, otherwise they replace them.
func (s *Service) Update(ctx context.Context, id int64, form Form, keepExistingImages bool) (Charger, error) {
	body, err := form.encode(&keepExistingImages)
	if err != nil {
		return Charger{}, err
	}

	resp, err := s.client.Put(ctx, chargerPath(id), body)
	if err != nil {
		return Charger{}, err
	}
	c, err := savedCharger(resp, id, form)
	if err != nil {
		return Charger{}, err
	}
	s.logger.Info().Int64("id", id).Bool("keepExistingImages", keepExistingImages).Msg("charger updated")
	return c, nil
}

// Delete removes the listing and returns the server message.
func (s *Service) Delete(ctx context.Context, id int64) (string, error) {
	resp, err := s.client.Delete(ctx, chargerPath(id))
	if err != nil {
		return "", err
	}
	var out struct {
		Message string `json:"message"`
	}
	if len(resp.Body) > 0 {
		_ = resp.Decode(&out)
	}
	s.logger.Info().Int64("id", id).Msg("charger deleted")
	return out.Message, nil
}

// savedCharger reads the listing echoed by a create or update. A success with
// no body yields the submitted fields instead.
func savedCharger(resp *apiclient.Response, id int64, form Form) (Charger, error) {
	if len(bytes.TrimSpace(resp.Body)) > 0 {
		var c Charger
		if err := resp.Decode(&c); err != nil {
			return Charger{}, err
		}
		return c, nil
	}
	price, _ := strconv.ParseFloat(strings.TrimSpace(form.PricePerKwh), 64)
	return Charger{
		ID:          id,
		Name:        strings.TrimSpace(form.Name),
		Brand:       strings.TrimSpace(form.Brand),
		Location:    strings.TrimSpace(form.Location),
		PricePerKwh: price,
	}, nil
}

// ImageURL resolves a stored image path against the backend origin. Absolute
// URLs are returned as is and an empty path yields PlaceholderImage.
func ImageURL(origin, path string) string {
	switch {
	case path == "":
		return PlaceholderImage
	case strings.HasPrefix(path, "http"):
		return path
	}
	origin = strings.TrimRight(origin, "/")
	if strings.HasPrefix(path, "/") {
		return origin + path
	}
	return origin + "/" + path
}

func chargerPath(id int64) string {
	return fmt.Sprintf("%s/%d", basePath, id)
}
