package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavel19a/serverless-lab-render/internal/domain"
	"github.com/pavel19a/serverless-lab-render/internal/repository"
	"github.com/pavel19a/serverless-lab-render/internal/service"
	"github.com/pavel19a/serverless-lab-render/pkg/database"
)

func newStack(t *testing.T, cfg database.Config) http.Handler {
	t.Helper()
	conn := database.NewPerCallConnector(cfg)
	if conn.Configured() {
		require.NoError(t, repository.EnsureSchema(context.Background(), conn))
	}
	repo := repository.NewGormMessageRepository(conn, repository.OrderByID)
	svc := service.NewMessageService(repo, conn, nil, nil, service.Options{Strict: true})
	return newRouter(svc, true)
}

func TestIntegration_SaveThenList(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "app.db")
	r := newStack(t, database.Config{URL: url, LogLevel: "silent"})

	w := do(r, http.MethodGet, "/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	for i := 1; i <= 12; i++ {
		w := do(r, http.MethodPost, "/save", fmt.Sprintf(`{"message":"note %d"}`, i))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/messages", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []domain.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 10)
	assert.Equal(t, "note 12", got[0].Text)
	assert.Equal(t, "note 3", got[9].Text)
	require.NotNil(t, got[0].Time)

	w = do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"connected"`)
}

func TestIntegration_NoDatabase(t *testing.T) {
	r := newStack(t, database.Config{})

	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/echo", `{"a":1}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/save", `{"message":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "DB not connected", decodeError(t, w))

	w = do(r, http.MethodGet, "/messages", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "DB not connected", decodeError(t, w))

	w = do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"disconnected"`)
}
