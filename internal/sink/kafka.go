package sink

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"

	"github.com/resinker/resinker/internal/record"
	"github.com/resinker/resinker/internal/spec"
)

// Kafka produces events to topics, routed per event type through the
// configured topic mapping. Production is fire-and-forget; delivery
// failures are logged, never surfaced to the scheduler.
type Kafka struct {
	client       *kgo.Client
	topicMapping map[string]string
	defaultTopic string
	format       string
	logger       *slog.Logger
}

// NewKafka builds a kafka sink from the output config.
func NewKafka(cfg spec.OutputConfig, logger *slog.Logger) (*Kafka, error) {
	if cfg.KafkaBrokers == "" {
		return nil, fmt.Errorf("kafka sink requires kafka_brokers")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(strings.Split(cfg.KafkaBrokers, ",")...),
	}
	protocol := strings.ToUpper(cfg.SecurityProtocol)
	if strings.Contains(protocol, "SSL") {
		opts = append(opts, kgo.DialTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
	}
	if strings.EqualFold(cfg.SASLMechanism, "PLAIN") {
		opts = append(opts, kgo.SASL(plain.Auth{
			User: cfg.SASLUsername,
			Pass: cfg.SASLPassword,
		}.AsMechanism()))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	defaultTopic := cfg.DefaultTopic
	if defaultTopic == "" {
		defaultTopic = "events"
	}
	return &Kafka{
		client:       client,
		topicMapping: cfg.TopicMapping,
		defaultTopic: defaultTopic,
		format:       cfg.Format,
		logger:       logger,
	}, nil
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Emit(ev *record.Event) error {
	data, err := encode(ev, k.format)
	if err != nil {
		return err
	}
	topic, ok := k.topicMapping[ev.EventType]
	if !ok {
		topic = k.defaultTopic
	}
	rec := &kgo.Record{
		Topic: topic,
		Key:   []byte(ev.EventType),
		Value: data,
	}
	k.client.Produce(context.Background(), rec, func(_ *kgo.Record, err error) {
		if err != nil && k.logger != nil {
			k.logger.Error("kafka produce failed", "topic", topic, "error", err)
		}
	})
	return nil
}

func (k *Kafka) Flush() error {
	return k.client.Flush(context.Background())
}

func (k *Kafka) Close() error {
	err := k.Flush()
	k.client.Close()
	return err
}
