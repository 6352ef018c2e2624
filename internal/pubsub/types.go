package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// EventType represents the type of event/message sent via pubsub.
type EventType string

const (
	EventSettleGame   EventType = "settle-game"
	EventNotifyResult EventType = "notify-result"
)

// SettleGameEvent asks the settlement processor to reconcile a single game.
type SettleGameEvent struct {
	GameID string `msgpack:"game_id"`
}

// NotifyResultEvent asks for outcome notifications for a settled game.
type NotifyResultEvent struct {
	GameID string `msgpack:"game_id"`
}
