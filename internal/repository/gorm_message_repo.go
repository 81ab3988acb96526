package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/pavel19a/serverless-lab-render/internal/domain"
	"github.com/pavel19a/serverless-lab-render/pkg/database"
	"github.com/pavel19a/serverless-lab-render/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
// Every call opens its own session and releases it before returning.
type GormMessageRepository struct {
	connector database.Connector
	order     Order
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(connector database.Connector, order Order) *GormMessageRepository {
	return &GormMessageRepository{connector: connector, order: order}
}

// Save inserts one row. created_at is left to the column default.
func (r *GormMessageRepository) Save(ctx context.Context, content string) (*domain.Message, error) {
	sess, err := r.connector.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer r.release(ctx, sess)

	model := &domain.MessageModel{Content: content}
	if err := sess.DB().WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	msg := model.ToDomain()
	return &msg, nil
}

// Recent returns at most limit messages ordered by the configured key, descending.
func (r *GormMessageRepository) Recent(ctx context.Context, limit int) ([]domain.Message, error) {
	sess, err := r.connector.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer r.release(ctx, sess)

	q := sess.DB().WithContext(ctx).Model(&domain.MessageModel{})
	if r.order == OrderByCreatedAt {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true})
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})

	var models []domain.MessageModel
	if err := q.Limit(limit).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	messages := make([]domain.Message, 0, len(models))
	for i := range models {
		messages = append(messages, models[i].ToDomain())
	}
	return messages, nil
}

func (r *GormMessageRepository) release(ctx context.Context, sess *database.Session) {
	if err := sess.Close(); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("failed to close database session")
	}
}
