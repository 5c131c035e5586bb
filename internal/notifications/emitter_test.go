package notifications

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warehouselabs/fulfillment-backend/pkg/broadcast"
	"github.com/warehouselabs/fulfillment-backend/pkg/enums"
	"github.com/warehouselabs/fulfillment-backend/pkg/logger"
)

type fakePublisher struct {
	publishFn func(ctx context.Context, event broadcast.Event) error
	events    []broadcast.Event
}

func (f *fakePublisher) Publish(ctx context.Context, event broadcast.Event) error {
	f.events = append(f.events, event)
	if f.publishFn != nil {
		return f.publishFn(ctx, event)
	}
	return nil
}

func newTestEmitter(t *testing.T, pub broadcast.Publisher, out *bytes.Buffer) *Emitter {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: out})
	emitter, err := NewEmitter(pub, logg)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	return emitter
}

func TestNewEmitterRequiresDependencies(t *testing.T) {
	if _, err := NewEmitter(nil, logger.New(logger.Options{})); err == nil {
		t.Fatal("expected error for nil publisher")
	}
	if _, err := NewEmitter(broadcast.Noop{}, nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
}

func TestOrderStatusChangedPublishesTypedEvent(t *testing.T) {
	pub := &fakePublisher{}
	emitter := newTestEmitter(t, pub, &bytes.Buffer{})

	emitter.OrderStatusChanged(context.Background(), OrderStatusEvent{
		OrderID:        uuid.New(),
		OrderNumber:    "ORD-100",
		PreviousStatus: enums.OrderStatusPending,
		NewStatus:      enums.OrderStatusPicked,
	})

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	if pub.events[0].Type != EventOrderStatusChanged {
		t.Fatalf("unexpected event type %q", pub.events[0].Type)
	}
}

func TestPublishFailureIsSwallowedAndLogged(t *testing.T) {
	pub := &fakePublisher{
		publishFn: func(context.Context, broadcast.Event) error {
			return errors.New("channel down")
		},
	}
	var out bytes.Buffer
	emitter := newTestEmitter(t, pub, &out)

	// Must not panic or surface the error to the caller.
	emitter.RequiresAuthorization(context.Background(), AuthorizationEvent{
		OrderID:   uuid.New(),
		ItemCount: 2,
	})
	emitter.OrderDeleted(context.Background(), OrderDeletedEvent{OrderID: uuid.New()})
	emitter.StockAdjusted(context.Background(), StockEvent{ProductID: uuid.New(), Delta: -3})

	logged := out.String()
	if !strings.Contains(logged, "dropping broadcast event") {
		t.Fatalf("expected dropped-event log, got %q", logged)
	}
	if !strings.Contains(logged, "channel down") {
		t.Fatalf("expected underlying error in log, got %q", logged)
	}
}
