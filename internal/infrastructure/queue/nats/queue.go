// Package nats carries grant import batches between the API and the tagging
// workers over a NATS queue group.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/grant-tagger/internal/core/domain"
	"github.com/kirillkom/grant-tagger/internal/infrastructure/resilience"
)

const (
	clientName       = "grant-tagger"
	workerQueueGroup = "grant-taggers"
	opPublish        = "nats.publish"

	headerGrantCount    = "Grant-Count"
	drainFlushWait      = 5 * time.Second
	defaultDrainTimeout = 2 * time.Minute
)

// ImportMessage is the wire format published on the import subject.
type ImportMessage struct {
	Grants     []domain.Grant `json:"grants"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// Options tune the connection. Zero values fall back to defaults.
type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor

	// DrainTimeout bounds how long shutdown waits for queued batches.
	DrainTimeout time.Duration
}

func (o Options) natsOptions() []nats.Option {
	timeout := 2 * time.Second
	if o.ConnectTimeout > 0 {
		timeout = o.ConnectTimeout
	}
	wait := 2 * time.Second
	if o.ReconnectWait > 0 {
		wait = o.ReconnectWait
	}
	reconnects := 60
	if o.MaxReconnects > 0 {
		reconnects = o.MaxReconnects
	}
	retry := o.RetryOnFailedConnect == nil || *o.RetryOnFailedConnect

	return []nats.Option{
		nats.Name(clientName),
		nats.Timeout(timeout),
		nats.ReconnectWait(wait),
		nats.MaxReconnects(reconnects),
		nats.RetryOnFailedConnect(retry),
		nats.DisconnectErrHandler(onDisconnect),
		nats.ReconnectHandler(onReconnect),
		nats.ClosedHandler(onClosed),
	}
}

func onDisconnect(_ *nats.Conn, err error) {
	slog.Warn("nats_disconnected", "error", err)
}

func onReconnect(nc *nats.Conn) {
	slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
}

func onClosed(_ *nats.Conn) {
	slog.Info("nats_connection_closed")
}

// Queue publishes import batches and delivers them to exactly one worker of the group.
type Queue struct {
	conn         *nats.Conn
	subject      string
	executor     *resilience.Executor
	drainTimeout time.Duration
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	conn, err := nats.Connect(url, options.natsOptions()...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	drainTimeout := options.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = defaultDrainTimeout
	}
	return &Queue{
		conn:         conn,
		subject:      subject,
		executor:     options.ResilienceExecutor,
		drainTimeout: drainTimeout,
	}, nil
}

func (q *Queue) Close() {
	if q.conn == nil {
		return
	}
	q.conn.Close()
}

// PublishGrantImport enqueues one batch. Connectivity failures and an open breaker
// surface as ErrTemporary.
func (q *Queue) PublishGrantImport(ctx context.Context, grants []domain.Grant) error {
	payload, err := encodeImport(grants, time.Now().UTC())
	if err != nil {
		return err
	}
	msg := nats.NewMsg(q.subject)
	msg.Header.Set(headerGrantCount, strconv.Itoa(len(grants)))
	msg.Data = payload

	if q.executor == nil {
		return wrapTemporaryIfNeeded(q.publish(msg))
	}
	return wrapTemporaryIfNeeded(q.executor.Execute(ctx, opPublish, func(context.Context) error {
		return q.publish(msg)
	}, classifyNATSError))
}

func (q *Queue) publish(msg *nats.Msg) error {
	if err := q.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// SubscribeGrantImports blocks until ctx is done, handing each decoded batch to handler.
// Handlers run detached from ctx's cancellation: on shutdown the subscription is drained
// and SubscribeGrantImports returns once every delivered batch has been handled or the
// drain timeout passes.
func (q *Queue) SubscribeGrantImports(ctx context.Context, handler func(context.Context, []domain.Grant) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, importCallback(ctx, handler))
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	slog.Info("nats_subscribed", "subject", q.subject, "queue_group", workerQueueGroup)

	<-ctx.Done()
	return q.drain(sub)
}

// importCallback keeps ctx's values but not its cancellation, so batches delivered
// while draining are still stored.
func importCallback(ctx context.Context, handler func(context.Context, []domain.Grant) error) nats.MsgHandler {
	handlerCtx := context.WithoutCancel(ctx)
	return func(msg *nats.Msg) {
		handleImport(handlerCtx, msg, handler)
	}
}

func handleImport(ctx context.Context, msg *nats.Msg, handler func(context.Context, []domain.Grant) error) {
	message, err := decodeImport(msg.Data)
	if err != nil {
		slog.Error("import_message_rejected", "subject", msg.Subject, "error", err)
		return
	}
	if declared := msg.Header.Get(headerGrantCount); declared != "" && declared != strconv.Itoa(len(message.Grants)) {
		slog.Warn("import_count_mismatch", "declared", declared, "decoded", len(message.Grants))
	}
	if err := handler(ctx, message.Grants); err != nil {
		slog.Error("import_handler_failed", "grants", len(message.Grants), "error", err)
	}
}

func (q *Queue) drain(sub *nats.Subscription) error {
	closed := sub.StatusChanged(nats.SubscriptionClosed)
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	slog.Info("nats_draining", "subject", q.subject, "timeout", q.drainTimeout)

	timer := time.NewTimer(q.drainTimeout)
	defer timer.Stop()
	select {
	case <-closed:
	case <-timer.C:
		return fmt.Errorf("nats drain subscription: timed out after %s", q.drainTimeout)
	}
	if err := q.conn.FlushTimeout(drainFlushWait); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeImport(grants []domain.Grant, enqueuedAt time.Time) ([]byte, error) {
	payload, err := json.Marshal(ImportMessage{Grants: grants, EnqueuedAt: enqueuedAt})
	if err != nil {
		return nil, fmt.Errorf("marshal import message: %w", err)
	}
	return payload, nil
}

func decodeImport(data []byte) (ImportMessage, error) {
	var message ImportMessage
	if err := json.Unmarshal(data, &message); err != nil {
		return ImportMessage{}, domain.WrapError(domain.ErrInvalidInput, "decode import message", err)
	}
	return message, nil
}
