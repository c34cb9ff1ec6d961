package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
)

func TestClientSubmitSendsPayload(t *testing.T) {
	var got submission
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", time.Second)
	require.NoError(t, err)

	ack, err := c.Submit(context.Background(), "passport", Payload{
		BookingID: bookingRef,
		Deadline:  "2026-12-01",
		Document:  &Document{Filename: "scan.pdf", MimeType: "application/pdf", Data: "JVBERi0="},
	})
	require.NoError(t, err)
	assert.True(t, ack.OK)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "passport", got.FormSlug)
	assert.Equal(t, bookingRef, got.Payload.BookingID)
	assert.Equal(t, "scan.pdf", got.Payload.Document.Filename)
}

func TestClientSubmitFailures(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		code   pkgerrors.Code
	}{
		"server error": {status: http.StatusBadGateway, body: "upstream down", code: pkgerrors.CodeDependency},
		"rejected":     {status: http.StatusOK, body: `{"ok":false,"error":"duplicate"}`, code: pkgerrors.CodeDependency},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c, err := NewClient(srv.URL, "", time.Second)
			require.NoError(t, err)
			_, err = c.Submit(context.Background(), "aire", Payload{BookingID: bookingRef})
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.As(err).Code())
		})
	}
}

func TestClientSubmitRejectedWrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"bad"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "", time.Second)
	require.NoError(t, err)
	ack, err := c.Submit(context.Background(), "aire", Payload{BookingID: bookingRef})
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Equal(t, "bad", ack.Error)
}

func TestClientSubmitNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, "", time.Second)
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), "aire", Payload{BookingID: bookingRef})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNetwork, pkgerrors.As(err).Code())
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient("  ", "", 0)
	assert.Error(t, err)
}
