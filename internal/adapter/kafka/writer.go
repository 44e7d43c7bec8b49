package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/rbn-top-calls/internal/config"
	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// RankedCall is the message body published for each ranked callsign.
type RankedCall struct {
	Rank        int       `json:"rank"`
	Callsign    string    `json:"callsign"`
	Count       int       `json:"count"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Mode        string    `json:"mode"`
	Prefix      string    `json:"prefix"`
	Band        string    `json:"band"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Writer publishes rankings to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured ranking topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes one message per ranked entry in a single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, r domain.Ranking) error {
	if len(r.Entries) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(r.Entries))
	for i := range r.Entries {
		msg, err := serializeToMessage(r, i)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish ranking: %w", err)
	}
	w.logger.Info("ranking published", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals the i-th entry of a ranking into a Kafka message.
func serializeToMessage(r domain.Ranking, i int) (kafkago.Message, error) {
	e := r.Entries[i]
	band := r.Filter.Band
	if band == "" {
		band = domain.BandAll
	}
	data, err := json.Marshal(RankedCall{
		Rank:        i + 1,
		Callsign:    e.Callsign,
		Count:       e.Count,
		From:        r.From.Format(domain.DayLayout),
		To:          r.To.Format(domain.DayLayout),
		Mode:        r.Filter.Mode,
		Prefix:      r.Filter.Prefix,
		Band:        band,
		GeneratedAt: r.GeneratedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize ranked call: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(e.Callsign),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "range", Value: []byte(r.From.Format(domain.DayLayout) + "/" + r.To.Format(domain.DayLayout))},
			{Key: "generated_at", Value: []byte(r.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
