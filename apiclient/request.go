package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	contentTypeJSON = "application/json"
	headerContent   = "Content-Type"
	headerAccept    = "Accept"
)

// Request describes one API call. Body is kept as bytes so the call can be
// replayed verbatim after a credential refresh.
type Request struct {
	Method      string
	Path        string // Relative to the API base, e.g. "/chargers/7"
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string
	NoRefresh   bool // Return a 401 as is instead of refreshing the credential
}

// RequestOption adjusts a single call.
type RequestOption func(*Request)

func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		r.Header.Set(key, value)
	}
}

func WithQuery(q url.Values) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(url.Values)
		}
		for k, vs := range q {
			for _, v := range vs {
				r.Query.Add(k, v)
			}
		}
	}
}

func WithContentType(ct string) RequestOption {
	return func(r *Request) {
		r.ContentType = ct
	}
}

// WithoutRefresh is used by calls where a 401 is a legitimate answer, such as login.
func WithoutRefresh() RequestOption {
	return func(r *Request) {
		r.NoRefresh = true
	}
}

// RawBody is sent as is, e.g. a pre-encoded multipart form.
type RawBody struct {
	Data        []byte
	ContentType string
}

// NewRequest encodes body and applies opts. A nil body sends nothing, []byte,
// string, io.Reader and RawBody are sent verbatim and anything else is JSON encoded.
func NewRequest(method, path string, body any, opts ...RequestOption) (Request, error) {
	req := Request{
		Method: strings.ToUpper(method),
		Path:   path,
	}

	switch b := body.(type) {
	case nil:
	case RawBody:
		req.Body = b.Data
		req.ContentType = b.ContentType
	case *RawBody:
		req.Body = b.Data
		req.ContentType = b.ContentType
	case []byte:
		req.Body = b
	case string:
		req.Body = []byte(b)
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return Request{}, fmt.Errorf("read request body: %w", err)
		}
		req.Body = data
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return Request{}, fmt.Errorf("encode request body: %w", err)
		}
		req.Body = data
		req.ContentType = contentTypeJSON
	}

	for _, opt := range opts {
		opt(&req)
	}
	return req, nil
}

func (r Request) clone() Request {
	c := r
	if r.Header != nil {
		c.Header = r.Header.Clone()
	}
	if r.Query != nil {
		c.Query = make(url.Values, len(r.Query))
		for k, vs := range r.Query {
			c.Query[k] = append([]string(nil), vs...)
		}
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return c
}

func (r Request) url(baseURL string) string {
	path := r.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := baseURL + path
	if len(r.Query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + r.Query.Encode()
	}
	return u
}

func (r Request) build(ctx context.Context, baseURL string) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.Method, r.url(baseURL), body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", r.Method, r.Path, err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if r.ContentType != "" {
		httpReq.Header.Set(headerContent, r.ContentType)
	}
	if httpReq.Header.Get(headerAccept) == "" {
		httpReq.Header.Set(headerAccept, contentTypeJSON)
	}
	return httpReq, nil
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("decode response: empty body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
