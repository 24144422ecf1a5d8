package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/service"
)

const (
	DefaultTopic   = "order-events"
	publishTimeout = 5 * time.Second
	eventTypeKey   = "event-type"
)

type Config struct {
	Brokers []string
	Topic   string
}

// Envelope is the wire format of every published order event.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Dispatcher publishes domain events to a Kafka topic, keyed by order id so one order's
// events stay on one partition in order.
type Dispatcher struct {
	writer messageWriter
	now    func() time.Time
	logger log.FieldLogger
}

func NewDispatcher(cfg Config, logger log.FieldLogger) *Dispatcher {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Errorf("kafka writer: "+msg, args...)
		}),
	}
	return newDispatcher(writer, logger)
}

func newDispatcher(writer messageWriter, logger log.FieldLogger) *Dispatcher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Dispatcher{writer: writer, now: time.Now, logger: logger}
}

func (d *Dispatcher) Dispatch(event service.Event) error {
	msg, err := d.encode(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish %s", event.Type())
	}
	d.logger.WithFields(log.Fields{"event": event.Type(), "key": string(msg.Key)}).Debug("event published")
	return nil
}

func (d *Dispatcher) encode(event service.Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, errors.Wrapf(err, "encode %s", event.Type())
	}
	var key struct {
		OrderID string `json:"OrderID"`
	}
	_ = json.Unmarshal(payload, &key)

	value, err := json.Marshal(Envelope{Type: event.Type(), OccurredAt: d.now().UTC(), Payload: payload})
	if err != nil {
		return kafka.Message{}, errors.Wrapf(err, "encode %s envelope", event.Type())
	}
	return kafka.Message{
		Key:     []byte(key.OrderID),
		Value:   value,
		Headers: []kafka.Header{{Key: eventTypeKey, Value: []byte(event.Type())}},
	}, nil
}

func (d *Dispatcher) Close() error {
	return d.writer.Close()
}

// LogDispatcher only logs events. It stands in when no brokers are configured.
type LogDispatcher struct {
	Logger log.FieldLogger
}

func (d LogDispatcher) Dispatch(event service.Event) error {
	d.Logger.WithField("event", event.Type()).WithField("payload", event).Info("domain event")
	return nil
}
