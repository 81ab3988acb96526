//go:generate go run go.uber.org/mock/mockgen -source=interface.go -destination=../mocks/mock_message_cache.go -package=mocks

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/pavel19a/serverless-lab-render/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// MessageCache holds the recent-messages list between writes.
type MessageCache interface {
	Get(ctx context.Context) ([]domain.Message, error)
	Set(ctx context.Context, messages []domain.Message, ttl time.Duration) error
	Invalidate(ctx context.Context) error
	Close() error
}

// NoopCache never stores anything; every Get is a miss.
type NoopCache struct{}

func (NoopCache) Get(context.Context) ([]domain.Message, error) { return nil, ErrCacheMiss }

func (NoopCache) Set(context.Context, []domain.Message, time.Duration) error { return nil }

func (NoopCache) Invalidate(context.Context) error { return nil }

func (NoopCache) Close() error { return nil }
