package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.ErrCodeMessageQueue, "consumer already running")

// DeadLetterSuffix is appended to a topic name to form its dead-letter topic.
const DeadLetterSuffix = ".dlq"

// RetryConfig defines retry behaviour for failed handlers.
type RetryConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	DeadLetter      bool
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	Topics          []string
	AutoOffsetReset string // "earliest" | "latest"
	MaxWait         time.Duration
	Retry           RetryConfig
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Outcome is reported once per consumed message after retries settle.
type Outcome struct {
	Topic        string
	Duration     time.Duration
	Retries      int
	Err          error
	DeadLettered bool
}

// Consumer reads a consumer-group stream and dispatches messages to the
// handler registered for their topic.  Offsets are committed after the
// handler succeeds or the message has been dead-lettered.
type Consumer struct {
	reader ReaderInterface
	config ConsumerConfig
	logger logging.Logger

	mu       sync.RWMutex
	handlers map[string]MessageHandler

	deadLetter Publisher
	onOutcome  func(Outcome)

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewConsumer creates a Consumer backed by a kafka.Reader.  deadLetter may
// be nil, in which case exhausted messages are logged and skipped.
func NewConsumer(cfg ConsumerConfig, deadLetter Publisher, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = time.Second
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10 << 20,
		MaxWait:     cfg.MaxWait,
		StartOffset: kafka.FirstOffset,
	}
	if cfg.AutoOffsetReset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}

	return newConsumerWithReader(kafka.NewReader(readerCfg), cfg, deadLetter, logger), nil
}

func newConsumerWithReader(r ReaderInterface, cfg ConsumerConfig, deadLetter Publisher, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Retry.RetryBackoff == 0 {
		cfg.Retry.RetryBackoff = time.Second
	}
	if cfg.Retry.MaxRetryBackoff == 0 {
		cfg.Retry.MaxRetryBackoff = 30 * time.Second
	}
	return &Consumer{
		reader:     r,
		config:     cfg,
		logger:     logger.Named("kafka.consumer"),
		handlers:   make(map[string]MessageHandler),
		deadLetter: deadLetter,
	}
}

// OnOutcome registers a callback for per-message results, used for metrics.
func (c *Consumer) OnOutcome(fn func(Outcome)) {
	c.onOutcome = fn
}

// Subscribe registers handler for topic.
func (c *Consumer) Subscribe(topic string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("subscribed to topic", logging.String("topic", topic))
}

// Start launches the consume loop in the background.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info("kafka consumer started",
		logging.String("group", c.config.GroupID),
		logging.Strings("topics", c.config.Topics))
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for ctx.Err() == nil {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		msg := fromKafkaMessage(m)

		c.mu.RLock()
		handler, ok := c.handlers[m.Topic]
		c.mu.RUnlock()
		if !ok {
			c.logger.Warn("no handler for topic", logging.String("topic", m.Topic))
		} else {
			c.report(c.process(ctx, msg, handler))
		}

		if ctx.Err() != nil {
			// leave the offset uncommitted so the message is redelivered
			return
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit failed", logging.Err(err), logging.Int64("offset", m.Offset))
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg *Message, handler MessageHandler) Outcome {
	start := time.Now()
	out := Outcome{Topic: msg.Topic}

	err := handler(ctx, msg)
	backoff := c.config.Retry.RetryBackoff
	for err != nil && !IsPermanent(err) && out.Retries < c.config.Retry.MaxRetries {
		select {
		case <-ctx.Done():
			out.Err = ctx.Err()
			out.Duration = time.Since(start)
			return out
		case <-time.After(backoff):
		}
		out.Retries++
		c.logger.Warn("retrying message",
			logging.String("topic", msg.Topic),
			logging.Int("attempt", out.Retries),
			logging.Err(err))
		err = handler(ctx, msg)

		backoff *= 2
		if backoff > c.config.Retry.MaxRetryBackoff {
			backoff = c.config.Retry.MaxRetryBackoff
		}
	}
	out.Err = err
	out.Duration = time.Since(start)
	if err == nil {
		return out
	}

	c.logger.Error("message failed after retries",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Err(err))

	if c.config.Retry.DeadLetter && c.deadLetter != nil {
		headers := make(map[string]string, len(msg.Headers)+2)
		for k, v := range msg.Headers {
			headers[k] = v
		}
		headers["original_topic"] = msg.Topic
		headers["error_message"] = err.Error()

		dl := &ProducerMessage{Topic: msg.Topic + DeadLetterSuffix, Key: msg.Key, Value: msg.Value, Headers: headers}
		if dlErr := c.deadLetter.Publish(ctx, dl); dlErr != nil {
			c.logger.Error("dead-letter publish failed", logging.Err(dlErr))
		} else {
			out.DeadLettered = true
		}
	}
	return out
}

func (c *Consumer) report(out Outcome) {
	if c.onOutcome != nil {
		c.onOutcome(out)
	}
}

// Close stops the loop, waits for the in-flight message, and closes the
// reader.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	err := c.reader.Close()
	c.logger.Info("kafka consumer closed")
	return err
}

func fromKafkaMessage(m kafka.Message) *Message {
	msg := &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "group id required")
	}
	if len(cfg.Topics) == 0 {
		return errors.New(errors.ErrCodeValidation, "at least one topic required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.New(errors.ErrCodeValidation, "invalid auto offset reset")
	}
	if cfg.Retry.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "max retries must be >= 0")
	}
	return nil
}

//Personal.AI order the ending
