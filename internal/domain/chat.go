package domain

// EventType tags every frame exchanged over a chat socket.
type EventType string

const (
	// Inbound client events.
	EventChat             EventType = "chat"
	EventPreviousMessages EventType = "previous_messages"

	// Outbound broadcast relayed through the fanout group.
	EventChatMessage EventType = "chat_message"
)

// Envelope carries only the discriminant; the connection handler decodes
// the frame a second time into the variant matching Type.
type Envelope struct {
	Type EventType `json:"type"`
}

// ChatEvent is an inbound "chat" frame: one utterance from sender to
// receiver about a job.
type ChatEvent struct {
	Message    string `json:"message"`
	JobID      uint   `json:"jobId"`
	SenderID   uint   `json:"sender_id"`
	ReceiverID uint   `json:"receiver_id"`
	Sender     string `json:"sender"`
}

// HistoryRequest is an inbound "previous_messages" frame asking for the
// stored conversation of a (sender, receiver, job) triple.
type HistoryRequest struct {
	SenderID   uint `json:"sender_id"`
	ReceiverID uint `json:"receiver_id"`
	JobID      uint `json:"jobId"`
}

// ChatBroadcast is the payload published to a fanout group and forwarded
// verbatim to every member socket, the publisher included.
type ChatBroadcast struct {
	Message    string `json:"message"`
	JobID      uint   `json:"jobId"`
	Sender     string `json:"sender"`
	SenderID   uint   `json:"sender_id"`
	ReceiverID uint   `json:"receiver_id"`
}

// User is the identity record resolved from an opaque user id.
type User struct {
	ID       uint    `json:"id"`
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"`
}

// HistoryEntry is one stored message as rendered in a previous_messages
// response, with the sender identity denormalized for display.
type HistoryEntry struct {
	Message    string `json:"message"`
	JobID      uint   `json:"jobId"`
	Sender     User   `json:"sender"`
	SenderID   uint   `json:"sender_id"`
	ReceiverID uint   `json:"receiver_id"`
}

// HistoryResponse is sent back to the requesting connection only, never
// broadcast to the group.
type HistoryResponse struct {
	Type     EventType      `json:"type"`
	Messages []HistoryEntry `json:"messages"`
}
