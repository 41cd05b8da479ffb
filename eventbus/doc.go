// Package eventbus provides topic-based publish/subscribe transports for
// notification lifecycle events.
//
// Two implementations are included: MemoryBus for single-process setups and
// tests, and RedisBus over Redis Pub/Sub for multi-instance deployments.
// Both deliver a topic's messages to each subscriber in publish order and
// redeliver on handler error up to Config.MaxRedeliveries before dropping
// the message with an error log.
package eventbus
