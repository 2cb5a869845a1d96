// Package authority is the synchronous RPC boundary to the durable seat
// ledger. Calls are never retried here; conflicts and transport failures map
// onto the domain error taxonomy and the caller decides what to do.
package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/eventura/booking-service/internal/domain"
	"github.com/eventura/booking-service/internal/observability"
)

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  observability.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger observability.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: timeout,
		logger:  logger,
	}
}

type seatUpdateRequest struct {
	ShowID uuid.UUID `json:"showId"`
	HallID uuid.UUID `json:"hallId"`
	Seats  []string  `json:"seats"`
}

// Reserve marks the seats LOCKED in the ledger. A 409 becomes ErrConflict.
func (c *Client) Reserve(ctx context.Context, showID, hallID uuid.UUID, seatIDs []string) error {
	return c.post(ctx, "/shows/lock-seats", showID, hallID, seatIDs)
}

// Finalize marks the seats BOOKED.
func (c *Client) Finalize(ctx context.Context, showID, hallID uuid.UUID, seatIDs []string) error {
	return c.post(ctx, "/shows/confirm-seats", showID, hallID, seatIDs)
}

// Release marks the seats AVAILABLE again.
func (c *Client) Release(ctx context.Context, showID, hallID uuid.UUID, seatIDs []string) error {
	return c.post(ctx, "/shows/release-seats", showID, hallID, seatIDs)
}

func (c *Client) post(ctx context.Context, endpoint string, showID, hallID uuid.UUID, seatIDs []string) error {
	body, err := json.Marshal(seatUpdateRequest{ShowID: showID, HallID: hallID, Seats: seatIDs})
	if err != nil {
		return errors.Wrap(err, "encoding seat update")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building seat authority request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts land here too. An ambiguous outcome is treated as a
		// failure; the reclaimer is the corrective path.
		return errors.Wrapf(domain.ErrUpstream, "seat authority %s: %v", endpoint, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		c.logger.WithFields(map[string]interface{}{
			"endpoint": endpoint,
			"show_id":  showID,
		}).Warn("seat authority reported conflict")
		return errors.Wrapf(domain.ErrConflict, "seat authority %s", endpoint)
	default:
		return errors.Wrapf(domain.ErrUpstream, "seat authority %s: status %d", endpoint, resp.StatusCode)
	}
}
