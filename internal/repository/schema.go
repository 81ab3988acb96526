package repository

import (
	"context"

	"github.com/pavel19a/serverless-lab-render/internal/domain"
	"github.com/pavel19a/serverless-lab-render/pkg/database"
)

// EnsureSchema creates the messages table when it is absent. It is safe to
// run on every start; an existing table is left as it is.
func EnsureSchema(ctx context.Context, connector database.Connector) error {
	sess, err := connector.Open(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	return database.EnsureTables(sess.DB().WithContext(ctx), &domain.MessageModel{})
}
