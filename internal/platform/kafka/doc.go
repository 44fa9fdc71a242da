// Package kafka implements the queue transport interfaces on top of a
// Kafka broker using segmentio/kafka-go. Each logical queue maps to one
// topic; workers consume through a shared consumer group so a message is
// delivered to exactly one worker process at a time.
package kafka
