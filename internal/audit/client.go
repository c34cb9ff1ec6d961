// Package audit writes submitted intakes to the external append-only record
// sink. Writes are best-effort: callers get an Ack or an error and decide
// what to do with it.
package audit

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
	actionSubmit            = "submit"
	defaultTimeout          = 10 * time.Second
	responseReadLimit int64 = 4096
)

var (
	errURLRequired = errors.New("audit sink url is required")

	// ErrRejected means the sink answered but reported ok=false.
	ErrRejected = errors.New("audit sink rejected the record")
)

// File is an encoded attachment as the sink expects it.
type File struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Record is one submission keyed by its booking id.
type Record struct {
	BookingID string
	Service   string
	Name      string
	Email     string
	Telephone string
	Files     []File
	Data      map[string]any
}

type request struct {
	Token     string         `json:"token"`
	Action    string         `json:"action"`
	BookingID string         `json:"bookingId"`
	Service   string         `json:"service"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Telephone string         `json:"telephone"`
	Files     []File         `json:"files"`
	Data      map[string]any `json:"data"`
}

// Ack is the sink's acknowledgement.
type Ack struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Status int    `json:"-"`
}

// Writer is the port the booking flow depends on.
type Writer interface {
	Write(ctx context.Context, rec Record) (Ack, error)
}

// Client posts records to the sink over HTTP.
type Client struct {
	httpClient *http.Client
	url        string
	token      string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds a single write.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(url, token string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, errURLRequired
	}
	client := &Client{
		url:        trimmed,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Write makes exactly one attempt. A non-2xx status or ok=false is an error;
// the returned Ack still carries whatever the sink said.
func (c *Client) Write(ctx context.Context, rec Record) (Ack, error) {
	if c == nil {
		return Ack{}, pkgerrors.New(pkgerrors.CodeDependency, "audit sink not configured")
	}
	if strings.TrimSpace(rec.BookingID) == "" {
		return Ack{}, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}

	files := rec.Files
	if files == nil {
		files = []File{}
	}
	data := rec.Data
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(request{
		Token:     c.token,
		Action:    actionSubmit,
		BookingID: rec.BookingID,
		Service:   rec.Service,
		Name:      rec.Name,
		Email:     rec.Email,
		Telephone: rec.Telephone,
		Files:     files,
		Data:      data,
	})
	if err != nil {
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal audit record")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build audit request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Ack{}, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "execute audit request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	ack := Ack{Status: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ack.Error = strings.TrimSpace(string(body))
		return ack, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, ack.Error), "audit write failed")
	}
	if err := json.Unmarshal(body, &ack); err != nil {
		return ack, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode audit response")
	}
	ack.Status = resp.StatusCode
	if !ack.OK {
		return ack, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %s", ErrRejected, ack.Error), "audit write rejected")
	}
	return ack, nil
}
