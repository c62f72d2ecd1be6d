package model

// DefaultCounterKey is used when no key is configured.
const DefaultCounterKey = "requests"

// NotificationMessage is published after every successful update.
// This shall match the payload decoded by the counterlog consumer.
type NotificationMessage struct {
	Count int64 `json:"count"`
}
