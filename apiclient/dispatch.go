package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// state tracks one logical call:
//
//	sent -(401)-> refreshing -(ok)-> retried -> done
//	                         -(fail)-> loggedOut
type state int

const (
	stateSent state = iota
	stateRefreshing
	stateRetried
	stateLoggedOut
)

func (s state) String() string {
	switch s {
	case stateSent:
		return "sent"
	case stateRefreshing:
		return "refreshing"
	case stateRetried:
		return "retried"
	case stateLoggedOut:
		return "logged_out"
	}
	return "unknown"
}

// attempt is the per-call value carrying the retry state. Moving to the retry
// produces a new attempt; the caller's Request is never touched.
type attempt struct {
	id           string
	req          Request
	credential   string
	state        state
	unauthorized *HTTPError
	refreshErr   error
}

func (a attempt) refreshable() bool {
	return a.state == stateSent && !a.req.NoRefresh && a.credential != ""
}

func (a attempt) withCredential(token string) attempt {
	a.credential = token
	a.state = stateRetried
	return a
}

// Do runs req through the credential pipeline. A 2xx returns the response,
// any other status an *HTTPError, no response at all a *NetworkError. A 401 is
// answered by one refresh and one replay; if the refresh fails the session is
// cleared, the redirector fires and an *AuthExpiredError is returned. A ctx
// cancelled while refreshing returns ctx's error and leaves the session alone.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	token, err := c.store.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}

	a := attempt{
		id:         uuid.NewString(),
		req:        req.clone(),
		credential: token,
		state:      stateSent,
	}

	for {
		switch a.state {
		case stateSent, stateRetried:
			resp, err := c.send(ctx, a)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}

			httpErr := newHTTPError(a.req.Method, a.req.url(c.baseURL), resp)
			if resp.StatusCode != http.StatusUnauthorized || !a.refreshable() {
				return nil, httpErr
			}
			a.unauthorized = httpErr
			a.state = stateRefreshing

		case stateRefreshing:
			fresh, err := c.refresh(ctx, a.credential)
			if err != nil && ctx.Err() != nil {
				return nil, fmt.Errorf("%s %s: refresh abandoned: %w", a.req.Method, a.req.Path, ctx.Err())
			}
			if err != nil {
				a.refreshErr = err
				a.state = stateLoggedOut
				continue
			}
			a = a.withCredential(fresh)

		case stateLoggedOut:
			c.logger.Warn().
				Str("request_id", a.id).
				Str("method", a.req.Method).
				Str("path", a.req.Path).
				Err(a.refreshErr).
				Msg("session expired")
			return nil, &AuthExpiredError{Original: a.unauthorized, Cause: a.refreshErr}
		}
	}
}

func (c *Client) send(ctx context.Context, a attempt) (*Response, error) {
	httpReq, err := a.req.build(ctx, c.baseURL)
	if err != nil {
		return nil, err
	}
	if a.credential != "" {
		bearer := &oauth2.Token{AccessToken: a.credential, TokenType: "Bearer"}
		bearer.SetAuthHeader(httpReq)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error().
			Str("request_id", a.id).
			Str("method", a.req.Method).
			Str("url", httpReq.URL.String()).
			Err(err).
			Msg("network error")
		return nil, &NetworkError{Method: a.req.Method, URL: httpReq.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: a.req.Method, URL: httpReq.URL.String(), Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug().
		Str("request_id", a.id).
		Str("method", a.req.Method).
		Str("path", a.req.Path).
		Bool("authenticated", a.credential != "").
		Str("state", a.state.String()).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(started)).
		Msg("api request")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
