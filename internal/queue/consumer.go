package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultLogPath is where the consumer appends one line per event.
var DefaultLogPath = filepath.Join("logs", "booking.log")

// consumedQueues lists every queue the booking consumer drains.
var consumedQueues = []string{QueueBookingConfirmed, QueueSeatsReleased, QueueReconciliation}

// Consumer drains the booking queues into an append-only log file.
type Consumer struct {
	url     string
	logPath string
	mu      sync.Mutex
}

// NewConsumer returns a Consumer for url writing to logPath. Empty values
// fall back to DefaultURL and DefaultLogPath.
func NewConsumer(url, logPath string) *Consumer {
	if url == "" {
		url = DefaultURL
	}
	if logPath == "" {
		logPath = DefaultLogPath
	}
	return &Consumer{url: url, logPath: logPath}
}

// Run connects to RabbitMQ, declares the booking queues (durable) and
// consumes them until ctx is cancelled. It reconnects with a doubling
// backoff when the broker goes away, and rejects messages it cannot handle
// so the server keeps operating.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.Printf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("booking-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type delivery struct {
	queue string
	amqp.Delivery
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("booking-consumer: set QoS failed: %v", err)
	}

	merged := make(chan delivery)
	var wg sync.WaitGroup
	for _, name := range consumedQueues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		wg.Add(1)
		go func(name string, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				merged <- delivery{queue: name, Delivery: d}
			}
		}(name, msgs)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	for {
		select {
		case <-ctx.Done():
			// closing the channel ends the forwarders
			_ = ch.Close()
			for range merged {
			}
			return ctx.Err()
		case d, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.queue, d.Body); err != nil {
				log.Printf("booking-consumer: handle message from %s failed: %v", d.queue, err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(queueName string, body []byte) error {
	line, err := FormatLine(queueName, body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders one event as a single human-friendly log line.
func FormatLine(queueName string, body []byte) (string, error) {
	switch queueName {
	case QueueBookingConfirmed:
		var ev SeatsBookedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Seats confirmed | session=%s | buyer=%q | contact=%s | receipt=%s | used=%d/%d | seats=%s | failed=%s\n",
			ev.ConfirmedAt, ev.SessionID, ev.BuyerName, ev.Contact, ev.Receipt, ev.TicketsUsed, ev.TicketsAllowed,
			seatList(ev.Seats), seatList(ev.Failed)), nil
	case QueueSeatsReleased:
		var ev SeatsReleasedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Seats released | session=%s | buyer=%q | receipt=%s | seats=%s\n",
			ev.ReleasedAt, ev.SessionID, ev.BuyerName, ev.Receipt, seatList(ev.Seats)), nil
	case QueueReconciliation:
		var ev ReconciliationAlert
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] RECONCILE %s | incident=%s | op=%s | session=%s | buyer=%q | receipt=%s | seats=%s | error=%q\n",
			ev.OccurredAt, ev.Kind, ev.IncidentID, ev.Op, ev.SessionID, ev.BuyerName, ev.Receipt, seatList(ev.Seats), ev.Error), nil
	}
	return "", fmt.Errorf("unknown queue %q", queueName)
}

func seatList(ids []string) string {
	return "[" + strings.Join(ids, ",") + "]"
}
