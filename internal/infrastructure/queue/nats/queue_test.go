package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nats-io/nats.go"

	"github.com/kirillkom/grant-tagger/internal/core/domain"
	"github.com/kirillkom/grant-tagger/internal/infrastructure/resilience"
)

func TestImportMessageRoundTripKeepsOrder(t *testing.T) {
	grants := []domain.Grant{
		{Name: "G1", Description: "one", WebsiteURLs: []string{"https://a"}},
		{Name: "G2", Description: "two"},
	}
	enqueued := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	payload, err := encodeImport(grants, enqueued)
	if err != nil {
		t.Fatalf("encodeImport() error = %v", err)
	}
	message, err := decodeImport(payload)
	if err != nil {
		t.Fatalf("decodeImport() error = %v", err)
	}
	if diff := cmp.Diff(grants, message.Grants); diff != "" {
		t.Fatalf("unexpected grants (-want +got):\n%s", diff)
	}
	if !message.EnqueuedAt.Equal(enqueued) {
		t.Fatalf("unexpected enqueued_at %s", message.EnqueuedAt)
	}
}

func TestDecodeImportRejectsGarbage(t *testing.T) {
	_, err := decodeImport([]byte("not json"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestWrapTemporaryForConnectivityErrors(t *testing.T) {
	err := wrapTemporaryIfNeeded(fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}

	errOther := errors.New("payload rejected")
	if got := wrapTemporaryIfNeeded(errOther); got != errOther {
		t.Fatalf("expected non-connectivity error unchanged, got %v", got)
	}
}

func TestClassifyNATSErrorSkipsClientMistakes(t *testing.T) {
	if classifyNATSError(nats.ErrMaxPayload).RecordFailure {
		t.Fatalf("oversized payload must not trip the breaker")
	}
	if !classifyNATSError(nats.ErrNoServers).RecordFailure {
		t.Fatalf("missing servers must count against the breaker")
	}
	if resilience.IsCircuitOpen(nats.ErrNoServers) {
		t.Fatalf("unexpected circuit-open detection")
	}
}

func TestHandleImportPassesDecodedBatch(t *testing.T) {
	grants := []domain.Grant{{Name: "G1", Description: "one"}}
	payload, err := encodeImport(grants, time.Now().UTC())
	if err != nil {
		t.Fatalf("encodeImport() error = %v", err)
	}
	msg := nats.NewMsg("grants.import")
	msg.Header.Set(headerGrantCount, "1")
	msg.Data = payload

	var got []domain.Grant
	handleImport(context.Background(), msg, func(_ context.Context, batch []domain.Grant) error {
		got = batch
		return nil
	})
	if diff := cmp.Diff(grants, got); diff != "" {
		t.Fatalf("unexpected batch (-want +got):\n%s", diff)
	}
}

func TestHandleImportRejectsGarbage(t *testing.T) {
	calls := 0
	handleImport(context.Background(), &nats.Msg{Subject: "grants.import", Data: []byte("{")}, func(context.Context, []domain.Grant) error {
		calls++
		return nil
	})
	if calls != 0 {
		t.Fatalf("expected handler not to run, got %d calls", calls)
	}
}

func TestImportCallbackHandlesBatchAfterShutdownStarts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var handled []domain.Grant
	var handlerErr error
	callback := importCallback(ctx, func(handlerCtx context.Context, grants []domain.Grant) error {
		handlerErr = handlerCtx.Err()
		handled = grants
		return nil
	})
	cancel()

	grants := []domain.Grant{{Name: "G", Description: "d"}}
	payload, err := encodeImport(grants, time.Now().UTC())
	if err != nil {
		t.Fatalf("encodeImport() error = %v", err)
	}
	callback(&nats.Msg{Subject: "grants.import", Data: payload})

	if diff := cmp.Diff(grants, handled); diff != "" {
		t.Fatalf("drained batch not handled (-want +got):\n%s", diff)
	}
	if handlerErr != nil {
		t.Fatalf("handler context cancelled during drain: %v", handlerErr)
	}
}
