package chargers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jrsteele09/evcharge-client/apiclient"
	"github.com/jrsteele09/evcharge-client/internal/errors"
)

// MaxImageSize is the per image upload limit
const MaxImageSize = 5 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

type Image struct {
	Name string
	Data []byte
}

// ContentType sniffs the image data.
func (i Image) ContentType() string {
	return http.DetectContentType(i.Data)
}

// Validate enforces the size limit and the accepted formats.
func (i Image) Validate() error {
	if len(i.Data) > MaxImageSize {
		return errors.Wrapf(errors.ErrInvalidImage, "file %s is too large, max size is 5MB", i.Name)
	}
	if !allowedImageTypes[i.ContentType()] {
		return errors.Wrapf(errors.ErrInvalidImage, "file %s is not a valid image format", i.Name)
	}
	return nil
}

// ReadImage loads an image from disk. The file is validated before it is read in full.
func ReadImage(path string) (Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Image{}, err
	}
	if info.Size() > MaxImageSize {
		return Image{}, errors.Wrapf(errors.ErrInvalidImage, "file %s is too large, max size is 5MB", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, err
	}
	img := Image{Name: filepath.Base(path), Data: data}
	return img, img.Validate()
}

// Form is the add and edit charger form. PricePerKwh is kept as typed.
type Form struct {
	Name        string
	Brand       string
	Location    string
	PricePerKwh string
	Images      []Image
}

func (f Form) Validate() error {
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Brand) == "" || strings.TrimSpace(f.Location) == "" {
		return errors.Wrapf(errors.ErrInvalidInput, "name, brand and location are required")
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(f.PricePerKwh), 64)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidInput, "price per kWh %q is not a number", f.PricePerKwh)
	}
	if price < 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "price per kWh must not be negative")
	}
	for _, img := range f.Images {
		if err := img.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// encode builds the multipart body. keepExisting is only sent on update.
func (f Form) encode(keepExisting *bool) (apiclient.RawBody, error) {
	if err := f.Validate(); err != nil {
		return apiclient.RawBody{}, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"name", strings.TrimSpace(f.Name)},
		{"brand", strings.TrimSpace(f.Brand)},
		{"location", strings.TrimSpace(f.Location)},
		{"pricePerKwh", strings.TrimSpace(f.PricePerKwh)},
	}
	if keepExisting != nil {
		fields = append(fields, [2]string{"keepExistingImages", strconv.FormatBool(*keepExisting)})
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return apiclient.RawBody{}, fmt.Errorf("write field %s: %w", kv[0], err)
		}
	}

	for _, img := range f.Images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, img.Name))
		h.Set("Content-Type", img.ContentType())
		part, err := mw.CreatePart(h)
		if err != nil {
			return apiclient.RawBody{}, fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return apiclient.RawBody{}, fmt.Errorf("write image %s: %w", img.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return apiclient.RawBody{}, fmt.Errorf("close multipart: %w", err)
	}

	return apiclient.RawBody{Data: buf.Bytes(), ContentType: mw.FormDataContentType()}, nil
}
