// Package sessions persists booking wizard sessions between requests.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/sportello-uk/sportello-backend/internal/payments"
	"github.com/sportello-uk/sportello-backend/internal/wizard"
)

var ErrNotFound = errors.New("session not found")

// Session is one mounted form: its wizard state and its payment attempt.
type Session struct {
	ID        string           `json:"id"`
	Form      string           `json:"form"`
	Locale    string           `json:"locale"`
	Wizard    wizard.State     `json:"wizard"`
	Payment   payments.Attempt `json:"payment"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Store saves sessions with a sliding expiry.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
