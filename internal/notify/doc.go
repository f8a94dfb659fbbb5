// Package notify delivers user-facing notifications about terminal outcomes
// of filter and thread operations.
//
// A Sink must never block its caller. LogSink writes events to slog,
// AsyncSink queues events for a Publisher on a background goroutine and
// drops them when the queue is full, and Fanout forwards to several sinks.
// AMQPPublisher publishes events to a RabbitMQ fanout exchange.
package notify
