package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/Dosada05/mob-esports/metrics"
	"github.com/Dosada05/mob-esports/models"
)

const maxResponseBody = 4 << 20

type response struct {
	status   int
	envelope *models.Envelope
}

// request is one outbound call. body is already encoded.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// doJSON encodes in (when non-nil) as the JSON body and decodes the
// envelope's data into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req := request{method: method, path: path, query: query}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		req.body = b
		req.contentType = "application/json"
	}
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.roundTrip(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.APIRequests.WithLabelValues(req.method, "rejected").Inc()
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			metrics.APIRequests.WithLabelValues(req.method, "api_error").Inc()
		} else {
			metrics.APIRequests.WithLabelValues(req.method, "transport_error").Inc()
		}
		return err
	}
	metrics.APIRequests.WithLabelValues(req.method, "success").Inc()

	if out == nil || len(resp.envelope.Data) == 0 || bytes.Equal(resp.envelope.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(resp.envelope.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", req.method, req.path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, r request) (*response, error) {
	fullURL := c.baseURL + r.path
	if len(r.query) > 0 {
		fullURL += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if token := c.tokenFor(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", r.method, r.path, err)
	}

	env, decodeErr := decodeEnvelope(raw)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if decodeErr != nil {
		c.logger.Debug("undecodable api response",
			slog.String("path", r.path),
			slog.Int("status", resp.StatusCode),
			slog.Any("error", decodeErr),
		)
		if ok {
			return nil, fmt.Errorf("decode %s %s envelope: %w", r.method, r.path, decodeErr)
		}
		return nil, newAPIError(resp.StatusCode, nil)
	}
	if !ok {
		if len(bytes.TrimSpace(raw)) == 0 {
			env = nil
		}
		return nil, newAPIError(resp.StatusCode, env)
	}
	if !env.Status {
		return nil, newAPIError(resp.StatusCode, env)
	}
	return &response{status: resp.StatusCode, envelope: env}, nil
}

// decodeEnvelope treats an empty 2xx body as a successful envelope without
// data.
func decodeEnvelope(raw []byte) (*models.Envelope, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return &models.Envelope{Status: true}, nil
	}
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
