// Package queue carries statlens events between processes. Backends are an
// in-process memory queue, NATS JetStream, Redis Streams and Kafka.
package queue

import "context"

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// Close closes the connection
	Close() error
}

// Subscriber subscribes to messages from a queue
type Subscriber interface {
	// Subscribe subscribes to a subject/topic with a handler
	Subscribe(subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic
	Unsubscribe(subject string) error

	// Close closes the connection
	Close() error
}

// MessageHandler handles incoming messages. Returning an error asks the
// backend to redeliver when it supports redelivery.
type MessageHandler func(ctx context.Context, data []byte) error

// Queue combines Publisher and Subscriber interfaces
type Queue interface {
	Publisher
	Subscriber
}

// NopQueue drops everything. It is used when events are disabled.
type NopQueue struct{}

func (NopQueue) Publish(context.Context, string, []byte) error { return nil }
func (NopQueue) Subscribe(string, MessageHandler) error        { return nil }
func (NopQueue) Unsubscribe(string) error                      { return nil }
func (NopQueue) Close() error                                  { return nil }
