package mqtt

import "errors"

// Sentinel errors returned by the broker client. Wrapped errors keep them in
// the chain, so compare with errors.Is.
var (
	// ErrDisabled is returned by Connect when mqtt.enabled is false.
	ErrDisabled = errors.New("mqtt: broker disabled in configuration")

	// ErrNotConnected is returned while the broker session is down.
	ErrNotConnected = errors.New("mqtt: not connected to broker")

	// ErrConnectionFailed is returned when the first connect attempt fails.
	ErrConnectionFailed = errors.New("mqtt: broker connection failed")

	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS is returned for a QoS above 2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidTopic is returned for an empty topic, and by ParseEntityTopic
	// for topics outside the entity tree.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrPayloadTooLarge is returned when a payload exceeds 1 MiB.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)
