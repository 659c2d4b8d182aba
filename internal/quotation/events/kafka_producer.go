// Package events publishes quotation lifecycle events to Kafka. Publishing is
// fire-and-forget: a slow or unavailable broker never blocks a request.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gartstein/quotation/internal/quotation/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	QuotationCreated  EventType = "quotation_created"
	QuotationDeleted  EventType = "quotation_deleted"
	DocumentGenerated EventType = "document_generated"
)

const queueSize = 1000

// Event is the message body. Money is carried as fixed two-place strings.
type Event struct {
	Type            EventType `json:"type"`
	QuotationID     string    `json:"quotation_id"`
	CompanyID       string    `json:"company_id"`
	ClientID        string    `json:"client_id"`
	ReferenceNumber string    `json:"reference_number"`
	GrandTotal      string    `json:"grand_total"`
	DocumentPath    string    `json:"document_path,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewEvent snapshots q into an event of the given type.
func NewEvent(eventType EventType, q *models.Quotation) Event {
	return Event{
		Type:            eventType,
		QuotationID:     q.ID.String(),
		CompanyID:       q.CompanyID.String(),
		ClientID:        q.ClientID.String(),
		ReferenceNumber: q.ReferenceNumber,
		GrandTotal:      q.GrandTotal.StringFixed(2),
		DocumentPath:    q.GeneratedDocumentPath,
		OccurredAt:      time.Now().UTC(),
	}
}

// Publisher is what the service layer depends on.
type Publisher interface {
	Publish(eventType EventType, q *models.Quotation)
	Close()
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewProducer creates the topic when missing and starts the delivery loop.
func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}
	return newProducer(writer, logger, queueSize), nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger, size int) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, size),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// Publish queues an event for q. When the queue is full the event is dropped.
func (p *Producer) Publish(eventType EventType, q *models.Quotation) {
	select {
	case p.events <- NewEvent(eventType, q):
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.String("quotation_id", q.ID.String()),
		)
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

// sendEvent keys messages by company so one company's events stay ordered.
func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("quotation_id", event.QuotationID),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.CompanyID),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("quotation_id", event.QuotationID),
		)
	}
}

// Close stops the loop, flushes whatever is still queued and closes the writer.
func (p *Producer) Close() {
	p.closeOnce.Do(func() {
		close(p.closeChan)
		<-p.done
		for drained := false; !drained; {
			select {
			case event := <-p.events:
				p.sendEvent(context.Background(), event)
			default:
				drained = true
			}
		}
		if err := p.writer.Close(); err != nil {
			p.logger.Error("Failed to close Kafka writer", zap.Error(err))
		}
	})
}

// Nop discards events. It stands in when no brokers are configured.
type Nop struct{}

func (Nop) Publish(EventType, *models.Quotation) {}
func (Nop) Close()                               {}
