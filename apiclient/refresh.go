package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type refreshResponse struct {
	Token string `json:"token"`
}

// refresh exchanges the stale credential for a new one. Success stores the new
// credential; failure clears the session and fires the redirect. With
// coalescing, callers holding the same stale credential share one exchange and
// a credential already replaced by a concurrent refresh is reused. The shared
// exchange does not inherit any one caller's cancellation; a caller that gives
// up only stops waiting for it.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	if !c.coalesce {
		return c.refreshCredential(ctx, stale)
	}

	flightCtx := context.WithoutCancel(ctx)
	results := c.refreshes.DoChan(stale, func() (any, error) {
		current, err := c.store.Token(flightCtx)
		if err == nil && current != "" && current != stale {
			return current, nil
		}
		return c.refreshCredential(flightCtx, stale)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-results:
		if res.Shared {
			c.logger.Debug().Msg("joined in-flight credential refresh")
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// refreshCredential runs one exchange on ctx. A cancelled ctx abandons the
// exchange without touching the session.
func (c *Client) refreshCredential(ctx context.Context, stale string) (string, error) {
	c.logger.Debug().Msg("refreshing credential")

	token, err := c.requestRefresh(ctx, stale)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		c.expire(ctx)
		return "", err
	}

	swapped, err := c.store.ReplaceToken(ctx, stale, token)
	if err != nil {
		c.expire(ctx)
		return "", fmt.Errorf("store refreshed credential: %w", err)
	}
	if !swapped {
		return c.afterLostSwap(ctx, token)
	}

	c.logger.Info().Msg("credential refreshed")
	return token, nil
}

// afterLostSwap handles a store that moved on while the exchange was in
// flight. A logout leaves it empty and the call ends logged out; another
// refresh or login leaves a live session, and the new credential still serves
// this call's replay.
func (c *Client) afterLostSwap(ctx context.Context, token string) (string, error) {
	if _, err := c.store.Load(ctx); err != nil {
		c.logger.Info().Msg("session ended while refreshing credential")
		return "", ErrSessionEnded
	}
	c.logger.Debug().Msg("session changed while refreshing credential")
	return token, nil
}

// requestRefresh calls the refresh endpoint directly, outside the retry pipeline.
func (c *Client) requestRefresh(ctx context.Context, stale string) (string, error) {
	req := Request{Method: http.MethodPost, Path: RefreshPath}
	resp, err := c.send(ctx, attempt{id: "refresh", req: req, credential: stale, state: stateRefreshing})
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newHTTPError(req.Method, req.url(c.baseURL), resp)
	}

	var out refreshResponse
	if err := resp.Decode(&out); err != nil {
		return "", fmt.Errorf("refresh response: %w", err)
	}
	if strings.TrimSpace(out.Token) == "" {
		return "", fmt.Errorf("refresh response: %w", ErrNoToken)
	}
	return out.Token, nil
}

// expire clears the stored session and sends the user to the login entry point.
func (c *Client) expire(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear session")
	}
	if c.redirector != nil {
		c.redirector.Redirect(ctx, c.loginPath)
	}
}
