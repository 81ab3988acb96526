package domain

import (
	"encoding/json"
	"time"
)

// Message is a stored free-text record.
type Message struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at"`
}

// SaveRequest is the body of POST /save.
// Message is a pointer so a missing field can be told apart from "".
type SaveRequest struct {
	Message *string `json:"message"`
}

// SaveResponse confirms a stored message.
type SaveResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MessageResponse is one entry of GET /messages.
type MessageResponse struct {
	ID   int64   `json:"id"`
	Text string  `json:"text"`
	Time *string `json:"time"`
}

// ToResponse renders the message for the API; Time is RFC 3339 or null.
func (m *Message) ToResponse() MessageResponse {
	resp := MessageResponse{ID: m.ID, Text: m.Content}
	if m.CreatedAt != nil {
		t := m.CreatedAt.Format(time.RFC3339Nano)
		resp.Time = &t
	}
	return resp
}

// ToResponses converts a list, keeping its order. It never returns nil.
func ToResponses(msgs []Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, msgs[i].ToResponse())
	}
	return out
}

// EchoResponse is the body of POST /echo.
type EchoResponse struct {
	Status  string          `json:"status"`
	YouSent json.RawMessage `json:"you_sent"`
	Length  int             `json:"length"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Database  string            `json:"database"`
	Endpoints map[string]string `json:"endpoints"`
}
