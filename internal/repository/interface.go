//go:generate go run go.uber.org/mock/mockgen -source=interface.go -destination=../mocks/mock_message_repository.go -package=mocks

package repository

import (
	"context"

	"github.com/pavel19a/serverless-lab-render/internal/domain"
)

// Order selects the recency key of Recent.
type Order string

const (
	OrderByID        Order = "id"         // insertion order
	OrderByCreatedAt Order = "created_at" // database clock, ties broken by id
)

// ParseOrder maps a config value to an Order, defaulting to OrderByID.
func ParseOrder(s string) Order {
	if s == string(OrderByCreatedAt) {
		return OrderByCreatedAt
	}
	return OrderByID
}

// MessageRepository defines the interface for message persistence.
type MessageRepository interface {
	// Save stores one message and commits immediately.
	Save(ctx context.Context, content string) (*domain.Message, error)
	// Recent returns at most limit messages, newest first.
	Recent(ctx context.Context, limit int) ([]domain.Message, error)
}
