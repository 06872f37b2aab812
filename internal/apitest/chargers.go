package apitest

import (
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jrsteele09/evcharge-client/users"
)

const maxUploadMemory = 32 << 20

type charger struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Location    string   `json:"location"`
	PricePerKwh float64  `json:"pricePerKwh"`
	Images      []string `json:"images"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	HostID      int64    `json:"hostId"`
}

// Charger seeds a listing owned by HostID
type Charger struct {
	Name        string
	Brand       string
	Location    string
	PricePerKwh float64
	Images      []string
	Latitude    *float64
	Longitude   *float64
	HostID      int64
}

type chargerRepo struct {
	lock     sync.RWMutex
	nextID   int64
	chargers map[int64]*charger
}

func newChargerRepo() *chargerRepo {
	return &chargerRepo{chargers: make(map[int64]*charger)}
}

func (cr *chargerRepo) Insert(c *charger) int64 {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	cr.nextID++
	c.ID = cr.nextID
	cr.chargers[c.ID] = c
	return c.ID
}

func (cr *chargerRepo) Get(id int64) (charger, bool) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	c, ok := cr.chargers[id]
	if !ok {
		return charger{}, false
	}
	return *c, true
}

func (cr *chargerRepo) Replace(c charger) {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	cr.chargers[c.ID] = &c
}

func (cr *chargerRepo) Delete(id int64) {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	delete(cr.chargers, id)
}

func (cr *chargerRepo) Filter(keep func(charger) bool) []charger {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	list := make([]charger, 0)
	for _, c := range cr.chargers {
		if keep(*c) {
			list = append(list, *c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// AddCharger seeds a listing and returns its id.
func (s *Server) AddCharger(c Charger) int64 {
	return s.chargers.Insert(&charger{
		Name:        c.Name,
		Brand:       c.Brand,
		Location:    c.Location,
		PricePerKwh: c.PricePerKwh,
		Images:      append([]string{}, c.Images...),
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		HostID:      c.HostID,
	})
}

// ChargerImages returns the stored image paths of a listing.
func (s *Server) ChargerImages(id int64) []string {
	c, _ := s.chargers.Get(id)
	return c.Images
}

// HasCharger reports whether a listing exists.
func (s *Server) HasCharger(id int64) bool {
	_, ok := s.chargers.Get(id)
	return ok
}

// ListChargersHandler returns every listing, or only their own to a host.
func (s *Server) ListChargersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acct := accountFrom(r)
		writeJSON(w, http.StatusOK, s.chargers.Filter(func(c charger) bool {
			return acct.Role != users.RoleHost || c.HostID == acct.ID
		}))
	}
}

func (s *Server) SearchChargersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		brand := strings.ToLower(q.Get("brand"))
		location := strings.ToLower(q.Get("location"))
		minPrice, minErr := parseOptionalPrice(q.Get("minPrice"))
		maxPrice, maxErr := parseOptionalPrice(q.Get("maxPrice"))
		if minErr != nil || maxErr != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid price filter")
			return
		}

		writeJSON(w, http.StatusOK, s.chargers.Filter(func(c charger) bool {
			if brand != "" && !strings.Contains(strings.ToLower(c.Brand), brand) {
				return false
			}
			if location != "" && !strings.Contains(strings.ToLower(c.Location), location) {
				return false
			}
			if minPrice != nil && c.PricePerKwh < *minPrice {
				return false
			}
			if maxPrice != nil && c.PricePerKwh > *maxPrice {
				return false
			}
			return true
		}))
	}
}

func (s *Server) GetChargerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid charger id")
			return
		}
		c, ok := s.chargers.Get(id)
		if !ok {
			writeMessage(w, http.StatusNotFound, "Charger not found")
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func (s *Server) CreateChargerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acct := accountFrom(r)
		c, images, ok := parseChargerForm(w, r)
		if !ok {
			return
		}
		c.HostID = acct.ID
		c.Images = images
		s.chargers.Insert(&c)
		writeJSON(w, http.StatusOK, c)
	}
}

// UpdateChargerHandler replaces the stored images unless keepExistingImages is "true".
func (s *Server) UpdateChargerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		existing, ok := s.ownedCharger(w, r)
		if !ok {
			return
		}
		c, images, ok := parseChargerForm(w, r)
		if !ok {
			return
		}

		c.ID = existing.ID
		c.HostID = existing.HostID
		c.Latitude = existing.Latitude
		c.Longitude = existing.Longitude
		if r.FormValue("keepExistingImages") == "true" {
			c.Images = append(append([]string{}, existing.Images...), images...)
		} else {
			c.Images = images
		}
		s.chargers.Replace(c)
		writeJSON(w, http.StatusOK, c)
	}
}

func (s *Server) DeleteChargerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		existing, ok := s.ownedCharger(w, r)
		if !ok {
			return
		}
		s.chargers.Delete(existing.ID)
		writeMessage(w, http.StatusOK, "Charger deleted successfully")
	}
}

func (s *Server) ownedCharger(w http.ResponseWriter, r *http.Request) (charger, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid charger id")
		return charger{}, false
	}
	c, ok := s.chargers.Get(id)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Charger not found")
		return charger{}, false
	}
	if c.HostID != accountFrom(r).ID {
		writeMessage(w, http.StatusForbidden, "You do not own this charger")
		return charger{}, false
	}
	return c, true
}

func parseChargerForm(w http.ResponseWriter, r *http.Request) (charger, []string, bool) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeMessage(w, http.StatusBadRequest, "Expected multipart form data")
		return charger{}, nil, false
	}

	price, err := strconv.ParseFloat(r.FormValue("pricePerKwh"), 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pricePerKwh must be a number"})
		return charger{}, nil, false
	}
	c := charger{
		Name:        r.FormValue("name"),
		Brand:       r.FormValue("brand"),
		Location:    r.FormValue("location"),
		PricePerKwh: price,
	}
	if c.Name == "" || c.Brand == "" || c.Location == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, brand and location are required"})
		return charger{}, nil, false
	}

	images := make([]string, 0)
	for _, fh := range r.MultipartForm.File["images"] {
		images = append(images, "/uploads/"+uuid.NewString()+"-"+path.Base(fh.Filename))
	}
	return c, images, true
}

func parseOptionalPrice(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
