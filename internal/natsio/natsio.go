// Package natsio decodes bulletins arriving on NATS and publishes the records.
package natsio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"notam_parser/internal/cache"
	"notam_parser/internal/notam"
	"notam_parser/internal/observability"
	"notam_parser/internal/storage"
)

// Batch is the message published for each decoded bulletin.
type Batch struct {
	BatchID string         `json:"batch_id,omitempty"`
	Notices int            `json:"notices"`
	Dropped []string       `json:"dropped,omitempty"`
	Records []notam.Record `json:"records"`
}

// Publisher sends a payload to a subject.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Options configures a Worker.
type Options struct {
	Subject        string // Raw bulletins are read from here.
	RecordsSubject string // Batches are published here.
	Queue          string // Optional queue group for load balancing.

	Decoder *cache.Decoder
	Store   storage.RecordStore // Optional.
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Worker consumes bulletins and publishes decoded batches.
type Worker struct {
	opts Options
	pub  Publisher
}

// NewWorker creates a Worker that publishes through pub.
func NewWorker(pub Publisher, opts Options) *Worker {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Worker{opts: opts, pub: pub}
}

// HandleBulletin decodes one bulletin, optionally stores the records, and
// publishes the batch. Empty bulletins are not published.
func (w *Worker) HandleBulletin(ctx context.Context, data []byte) (*Batch, error) {
	w.opts.Metrics.MessageConsumed()

	res := w.opts.Decoder.Decode(ctx, string(data))
	batch := &Batch{Notices: res.Notices, Dropped: res.Dropped, Records: res.Records}
	if batch.Records == nil {
		batch.Records = []notam.Record{}
	}

	if w.opts.Store != nil && len(res.Records) > 0 {
		id, err := w.opts.Store.SaveRecords(ctx, res.Records)
		if err != nil {
			w.opts.Logger.Error("failed to store records", "error", err)
		}
		batch.BatchID = id
	}

	if res.Notices == 0 {
		w.opts.Logger.Debug("bulletin has no notices", "bytes", len(data))
		return batch, nil
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}
	if err := w.pub.Publish(w.opts.RecordsSubject, payload); err != nil {
		w.opts.Metrics.PublishFailed()
		return nil, fmt.Errorf("publish batch: %w", err)
	}
	w.opts.Metrics.MessageProduced()

	w.opts.Logger.Debug("bulletin decoded",
		"notices", res.Notices,
		"records", len(res.Records),
		"dropped", len(res.Dropped),
	)
	return batch, nil
}

// Client is a NATS connection with optional JetStream.
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// Connect opens a NATS connection. When stream is set, a JetStream stream
// covering subjects is created if it does not already exist, and publishes go
// through JetStream.
func Connect(url, stream string, subjects ...string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name("notam_parser"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	c := &Client{conn: nc}
	if stream == "" {
		return c, nil
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("get JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     stream,
		Subjects: subjects,
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		nc.Close()
		return nil, fmt.Errorf("create stream: %w", err)
	}

	c.js = js
	return c, nil
}

// Publish sends data to subject, through JetStream when a stream is configured.
func (c *Client) Publish(subject string, data []byte) error {
	if c.js != nil {
		_, err := c.js.Publish(subject, data)
		return err
	}
	return c.conn.Publish(subject, data)
}

// Close drains and closes the connection.
func (c *Client) Close() {
	if c.conn != nil {
		_ = c.conn.Drain()
	}
}

// Run subscribes the worker to its bulletin subject and blocks until ctx is
// done. Requests with a reply subject get the batch back directly.
func (c *Client) Run(ctx context.Context, w *Worker) error {
	handler := func(msg *nats.Msg) {
		batch, err := w.HandleBulletin(ctx, msg.Data)
		if err != nil {
			w.opts.Logger.Error("failed to handle bulletin", "subject", msg.Subject, "error", err)
			return
		}
		if msg.Reply == "" {
			return
		}
		payload, err := json.Marshal(batch)
		if err != nil {
			return
		}
		if err := msg.Respond(payload); err != nil {
			w.opts.Logger.Warn("failed to reply", "error", err)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if w.opts.Queue != "" {
		sub, err = c.conn.QueueSubscribe(w.opts.Subject, w.opts.Queue, handler)
	} else {
		sub, err = c.conn.Subscribe(w.opts.Subject, handler)
	}
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	w.opts.Logger.Info("consuming bulletins", "subject", w.opts.Subject, "publish", w.opts.RecordsSubject)
	<-ctx.Done()
	return sub.Drain()
}
