package payments

import (
	"context"
	"io"
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sportello-uk/sportello-backend/internal/audit"
	"github.com/sportello-uk/sportello-backend/internal/pricing"
	"github.com/sportello-uk/sportello-backend/internal/wizard"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
)

type fakeGateway struct {
	mu        sync.Mutex
	requests  []IntentRequest
	cancelled []string
	createErr error
	cancelErr error
	status    string
	seq       int
}

func (g *fakeGateway) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.createErr != nil {
		return Intent{}, g.createErr
	}
	g.seq++
	id := "pi_" + strconv.Itoa(g.seq)
	return Intent{
		ID:           id,
		ClientSecret: id + "_secret_abc",
		Status:       "requires_payment_method",
		AmountMinor:  req.AmountMinor,
		Currency:     req.Currency,
		Metadata:     map[string]string{MetaBookingID: req.BookingID},
	}, nil
}

func (g *fakeGateway) GetIntent(ctx context.Context, id string) (Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var bookingID string
	if n := len(g.requests); n > 0 {
		bookingID = g.requests[n-1].BookingID
	}
	return Intent{ID: id, Status: g.status, Metadata: map[string]string{MetaBookingID: bookingID}}, nil
}

func (g *fakeGateway) CancelIntent(ctx context.Context, id, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, id+":"+reason)
	return g.cancelErr
}

type recordingSink struct {
	mu      sync.Mutex
	records []audit.Record
	err     error
}

func (s *recordingSink) Write(ctx context.Context, rec audit.Record) (audit.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	if s.err != nil {
		return audit.Ack{Error: s.err.Error()}, s.err
	}
	return audit.Ack{OK: true}, nil
}

func (s *recordingSink) all() []audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Record(nil), s.records...)
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestOrchestrator(t *testing.T, gw Gateway, sink audit.Writer, void bool) *Orchestrator {
	t.Helper()
	returns, err := NewReturnURLs("https://sportello.example")
	require.NoError(t, err)
	o, err := NewOrchestrator(gw, sink, returns, Config{PublishableKey: "pk_test_123", VoidAbandoned: void}, nil, quietLogger())
	require.NoError(t, err)
	return o
}

func passportSubmission(quantity int) Submission {
	in := wizard.NewIntake()
	in.Contact = wizard.Contact{Name: "Giulia Rossi", Email: "giulia@example.com", Phone: "07700900123"}
	in.Agreements = wizard.Agreements{ImmediateStart: true, RefundPolicy: true, Privacy: true}
	in.GroupCount = quantity - 1
	in.Members = make([]wizard.GroupMember, quantity-1)

	table := pricing.MustTable("gbp",
		pricing.Entry[string]{Key: "1", Amount: decimal.NewFromInt(40)},
		pricing.Entry[string]{Key: "2", Amount: decimal.NewFromInt(75)},
		pricing.Entry[string]{Key: "3+", Amount: decimal.NewFromInt(100)},
	)
	quote, err := table.Quote(pricing.Band(quantity, 3, true), quantity)
	if err != nil {
		panic(err)
	}
	return Submission{
		Form:    "passport",
		Service: "Passport appointment",
		Locale:  "en",
		Intake:  in,
		Quote:   quote,
		Files:   []audit.File{{Filename: "id.pdf", MimeType: "application/pdf", Data: "JVBERi0="}},
		Data:    map[string]any{"birth_date": "1990-04-12"},
	}
}
