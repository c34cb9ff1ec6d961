package onboarding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
)

const (
	defaultTimeout          = 20 * time.Second
	responseReadLimit int64 = 4096
)

var ErrRejected = errors.New("onboarding endpoint rejected the submission")

type Document struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Payload is the deliverable collected after payment.
type Payload struct {
	BookingID        string    `json:"bookingId"`
	PaymentReference string    `json:"paymentReference"`
	Deadline         string    `json:"deadline"`
	Document         *Document `json:"document,omitempty"`
}

type submission struct {
	FormSlug string  `json:"formSlug"`
	Payload  Payload `json:"payload"`
}

type Ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Submitter is the port used by the handoff service.
type Submitter interface {
	Submit(ctx context.Context, formSlug string, p Payload) (Ack, error)
}

// Client posts onboarding submissions to the second record endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	token      string
}

func NewClient(url, token string, timeout time.Duration) (*Client, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, errors.New("onboarding url is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{url: trimmed, token: token, httpClient: &http.Client{Timeout: timeout}}, nil
}

func (c *Client) Submit(ctx context.Context, formSlug string, p Payload) (Ack, error) {
	body, err := json.Marshal(submission{FormSlug: formSlug, Payload: p})
	if err != nil {
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal onboarding submission")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build onboarding request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "execute onboarding request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Ack{Error: strings.TrimSpace(string(raw))}, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), "onboarding submission failed")
	}
	var ack Ack
	if err := json.Unmarshal(raw, &ack); err != nil {
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode onboarding response")
	}
	if !ack.OK {
		return ack, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %s", ErrRejected, ack.Error), "onboarding submission rejected")
	}
	return ack, nil
}
