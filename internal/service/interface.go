//go:generate go run go.uber.org/mock/mockgen -source=interface.go -destination=../mocks/mock_message_service.go -package=mocks

package service

import (
	"context"

	"github.com/pavel19a/serverless-lab-render/internal/domain"
)

// MessageService defines the message use cases served over HTTP.
type MessageService interface {
	Save(ctx context.Context, content string) (*domain.Message, error)
	Recent(ctx context.Context) ([]domain.Message, error)
	// DatabaseStatus opens and closes one session; nil means reachable.
	DatabaseStatus(ctx context.Context) error
}
