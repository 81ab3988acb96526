package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pavel19a/serverless-lab-render/internal/cache"
	"github.com/pavel19a/serverless-lab-render/internal/domain"
	"github.com/pavel19a/serverless-lab-render/internal/repository"
	"github.com/pavel19a/serverless-lab-render/pkg/database"
	"github.com/pavel19a/serverless-lab-render/pkg/log"
	"github.com/pavel19a/serverless-lab-render/pkg/pubsub"
)

// RecentLimit is the fixed size of the recent list.
const RecentLimit = 10

// flightTimeout bounds a shared recent-list load, which no longer follows
// the cancellation of the request that started it.
const flightTimeout = 30 * time.Second

var ErrEmptyMessage = errors.New("message is required")

// Options tunes the message service.
type Options struct {
	// Strict rejects empty messages before touching the database.
	Strict   bool
	CacheTTL time.Duration
}

type messageServiceImpl struct {
	repo      repository.MessageRepository
	connector database.Connector
	cache     cache.MessageCache
	publisher pubsub.Publisher
	opts      Options

	sf singleflight.Group
	// generation is bumped on every successful save so that reads started
	// afterwards never share a flight, or a cache fill, with older reads.
	generation atomic.Uint64
}

func NewMessageService(
	repo repository.MessageRepository,
	connector database.Connector,
	msgCache cache.MessageCache,
	publisher pubsub.Publisher,
	opts Options,
) MessageService {
	if msgCache == nil {
		msgCache = cache.NoopCache{}
	}
	if publisher == nil {
		publisher = pubsub.NopPublisher{}
	}
	return &messageServiceImpl{
		repo:      repo,
		connector: connector,
		cache:     msgCache,
		publisher: publisher,
		opts:      opts,
	}
}

func (s *messageServiceImpl) Save(ctx context.Context, content string) (*domain.Message, error) {
	if s.opts.Strict && content == "" {
		return nil, ErrEmptyMessage
	}
	if !s.connector.Configured() {
		return nil, database.ErrNotConfigured
	}

	msg, err := s.repo.Save(ctx, content)
	if err != nil {
		return nil, err
	}

	s.generation.Add(1)

	l := log.Ctx(ctx)
	if err := s.cache.Invalidate(ctx); err != nil {
		l.Warn().Err(err).Msg("cache invalidate error")
	}

	s.publishSaved(ctx, msg)

	l.Debug().Int64(log.FieldMessageID, msg.ID).Msg("message saved")
	return msg, nil
}

func (s *messageServiceImpl) Recent(ctx context.Context) ([]domain.Message, error) {
	if !s.connector.Configured() {
		return nil, database.ErrNotConfigured
	}

	gen := s.generation.Load()
	ch := s.sf.DoChan(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		// Joined callers must not fail when the caller that started the
		// flight goes away.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		return s.fetchWithCache(fctx, gen)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	messages, ok := res.Val.([]domain.Message)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return messages, nil
}

func (s *messageServiceImpl) fetchWithCache(ctx context.Context, gen uint64) ([]domain.Message, error) {
	l := log.Ctx(ctx)

	cached, err := s.cache.Get(ctx)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Msg("cache get error")
	}

	messages, err := s.repo.Recent(ctx, RecentLimit)
	if err != nil {
		return nil, err
	}

	if s.generation.Load() == gen {
		if err := s.cache.Set(ctx, messages, s.opts.CacheTTL); err != nil {
			l.Warn().Err(err).Msg("cache set error")
		}
	}

	l.Debug().Int(log.FieldCount, len(messages)).Msg("recent messages loaded")
	return messages, nil
}

func (s *messageServiceImpl) DatabaseStatus(ctx context.Context) error {
	return database.Ping(ctx, s.connector)
}

func (s *messageServiceImpl) publishSaved(ctx context.Context, msg *domain.Message) {
	l := log.Ctx(ctx)

	event, err := pubsub.NewEvent(pubsub.EventMessageSaved, pubsub.MessageSavedPayload{
		ID:      msg.ID,
		Content: msg.Content,
	})
	if err != nil {
		l.Warn().Err(err).Msg("failed to build event")
		return
	}
	event.RequestID = log.RequestID(ctx)

	if err := s.publisher.Publish(ctx, pubsub.ChannelMessages, event); err != nil {
		l.Warn().Err(err).
			Str(log.FieldChannel, pubsub.ChannelMessages).
			Str(log.FieldEventType, event.Type).
			Msg("failed to publish event")
	}
}
