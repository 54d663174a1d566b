package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the specified MQTT topic immediately.
//
// Every publish against the gateway uses QoS 2; pass retained=true only
// for topics whose last value should replay to new subscribers.
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishString is a convenience method that publishes a string payload.
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// EnqueuePublish appends a message to the deferred-publish queue.
//
// The queue is FIFO: a dispatcher timer drains one message every 50 ms
// and stops itself when the queue is empty. Transport failures while
// draining are logged, never surfaced; use Publish for calls that need
// the error.
func (c *Client) EnqueuePublish(topic string, payload []byte) {
	c.queue.enqueue(topic, payload)
}

// QueuedCount returns the number of messages waiting in the publish queue.
func (c *Client) QueuedCount() int {
	return c.queue.length()
}

// publishQueued is the queue's drain callback: an immediate publish whose
// failure is logged and swallowed.
func (c *Client) publishQueued(topic string, payload []byte) {
	if err := c.Publish(topic, payload, DefaultQoS, false); err != nil {
		c.logError("queued publish failed", "topic", topic, "error", err)
	}
}
