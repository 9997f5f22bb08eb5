package mqtt

// NopPublisher discards everything. It stands in when no broker is configured.
type NopPublisher struct{}

// Publish discards the transition.
func (NopPublisher) Publish(TransitionEvent) error { return nil }

// PublishSystem discards the event.
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }

// IsConnected always reports false.
func (NopPublisher) IsConnected() bool { return false }
