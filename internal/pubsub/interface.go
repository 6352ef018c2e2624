package pubsub

// PubSubClient carries the settlement events between the state-update path
// and the push-subscription handlers.
type PubSubClient interface {
	// SendMessage publishes an event on the topic named after its type.
	SendMessage(topic EventType, data any) error
	// ProcessMessage decodes a delivered payload into the given event struct.
	ProcessMessage(data []byte, returnValue any) error
}
