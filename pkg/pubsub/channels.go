package pubsub

// Channels.
const (
	ChannelMessages = "messages:saved"
)

// Event types.
const (
	EventMessageSaved = "message.saved"
)

// MessageSavedPayload is published after a message was stored.
type MessageSavedPayload struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}
