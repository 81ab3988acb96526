package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pavel19a/serverless-lab-render/internal/domain"
	"github.com/pavel19a/serverless-lab-render/internal/mocks"
	"github.com/pavel19a/serverless-lab-render/internal/service"
	"github.com/pavel19a/serverless-lab-render/pkg/database"
	"github.com/pavel19a/serverless-lab-render/pkg/log"
	"github.com/pavel19a/serverless-lab-render/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(svc service.MessageService, strict bool) *gin.Engine {
	r := gin.New()
	r.Use(log.GinMiddleware(zerolog.Nop()), log.GinRecovery())
	NewHTTPHandler(svc, Options{Strict: strict}).RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestHTTPHandler_Hello(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := newRouter(mocks.NewMockMessageService(ctrl), true)

	w := do(r, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello, Serverless! 🚀\n", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHTTPHandler_Echo(t *testing.T) {
	ctrl := gomock.NewController(t)
	strict := newRouter(mocks.NewMockMessageService(ctrl), true)
	lax := newRouter(mocks.NewMockMessageService(ctrl), false)

	tests := []struct {
		name       string
		router     *gin.Engine
		body       string
		wantStatus int
		wantSent   string
		wantLength int
	}{
		{"object is compacted", strict, `{ "a" : 1 }`, http.StatusOK, `{"a":1}`, 7},
		{"string counts characters", strict, `"héllo"`, http.StatusOK, `"héllo"`, 7},
		{"array", strict, `[1, 2, 3]`, http.StatusOK, `[1,2,3]`, 7},
		{"explicit null", strict, `null`, http.StatusOK, `null`, 0},
		{"empty object counts as nothing", strict, `{ }`, http.StatusOK, `{}`, 0},
		{"empty array counts as nothing", strict, `[]`, http.StatusOK, `[]`, 0},
		{"zero counts as nothing", strict, `0.0`, http.StatusOK, `0`, 0},
		{"empty string counts as nothing", strict, `""`, http.StatusOK, `""`, 0},
		{"false counts as nothing", strict, `false`, http.StatusOK, `false`, 0},
		{"true is counted", strict, `true`, http.StatusOK, `true`, 4},
		{"non-zero number is counted", strict, `-12`, http.StatusOK, `-12`, 3},
		{"strict rejects empty body", strict, ``, http.StatusBadRequest, ``, 0},
		{"strict rejects invalid json", strict, `{oops`, http.StatusBadRequest, ``, 0},
		{"lax echoes null for empty body", lax, ``, http.StatusOK, `null`, 0},
		{"lax echoes null for invalid json", lax, `{oops`, http.StatusOK, `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(tt.router, http.MethodPost, "/echo", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			if tt.wantStatus != http.StatusOK {
				assert.NotEmpty(t, decodeError(t, w))
				return
			}

			var got domain.EchoResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, "received", got.Status)
			assert.JSONEq(t, tt.wantSent, string(got.YouSent))
			assert.Equal(t, tt.wantLength, got.Length)
		})
	}
}

func TestHTTPHandler_Save(t *testing.T) {
	t.Run("stores the message", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockMessageService(ctrl)
		svc.EXPECT().Save(gomock.Any(), "hello world").
			Return(&domain.Message{ID: 1, Content: "hello world"}, nil).Times(1)

		w := do(newRouter(svc, true), http.MethodPost, "/save", `{"message":"hello world"}`)

		require.Equal(t, http.StatusOK, w.Code)
		var got domain.SaveResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, domain.SaveResponse{Status: "saved", Message: "hello world"}, got)
	})

	t.Run("strict rejects bad bodies before calling the service", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockMessageService(ctrl)
		svc.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)
		r := newRouter(svc, true)

		for _, body := range []string{``, `{`, `{}`, `{"message":""}`, `{"other":"x"}`} {
			w := do(r, http.MethodPost, "/save", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
	})

	t.Run("lax stores an empty message", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockMessageService(ctrl)
		svc.EXPECT().Save(gomock.Any(), "").Return(&domain.Message{ID: 1}, nil).Times(3)
		r := newRouter(svc, false)

		for _, body := range []string{``, `{}`, `{"message":""}`} {
			w := do(r, http.MethodPost, "/save", body)
			require.Equal(t, http.StatusOK, w.Code, body)
			assert.JSONEq(t, `{"status":"saved","message":""}`, w.Body.String())
		}
	})

	t.Run("database unavailable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockMessageService(ctrl)
		svc.EXPECT().Save(gomock.Any(), "x").Return(nil, database.ErrNotConfigured)

		w := do(newRouter(svc, true), http.MethodPost, "/save", `{"message":"x"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "DB not connected", decodeError(t, w))
	})

	t.Run("statement fault carries the database message", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockMessageService(ctrl)
		svc.EXPECT().Save(gomock.Any(), "x").
			Return(nil, fmt.Errorf("failed to insert message: %w", errors.New("relation \"messages\" does not exist")))

		w := do(newRouter(svc, true), http.MethodPost, "/save", `{"message":"x"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, decodeError(t, w), "relation \"messages\" does not exist")
	})

	t.Run("service rejection maps to 400", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockMessageService(ctrl)
		svc.EXPECT().Save(gomock.Any(), "").Return(nil, service.ErrEmptyMessage)

		w := do(newRouter(svc, false), http.MethodPost, "/save", `{"message":""}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHTTPHandler_Messages(t *testing.T) {
	t.Run("renders id, text and time", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockMessageService(ctrl)
		at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
		svc.EXPECT().Recent(gomock.Any()).Return([]domain.Message{
			{ID: 2, Content: "second", CreatedAt: &at},
			{ID: 1, Content: "first"},
		}, nil)

		w := do(newRouter(svc, true), http.MethodGet, "/messages", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[
			{"id":2,"text":"second","time":"2024-05-01T12:30:00Z"},
			{"id":1,"text":"first","time":null}
		]`, w.Body.String())
	})

	t.Run("empty list is an empty array", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockMessageService(ctrl)
		svc.EXPECT().Recent(gomock.Any()).Return(nil, nil)

		w := do(newRouter(svc, true), http.MethodGet, "/messages", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]", w.Body.String())
	})

	t.Run("database unavailable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockMessageService(ctrl)
		svc.EXPECT().Recent(gomock.Any()).Return(nil, database.ErrUnavailable)

		w := do(newRouter(svc, true), http.MethodGet, "/messages", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "DB not connected", decodeError(t, w))
	})
}

func TestHTTPHandler_HealthCheck(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"connected", nil, "connected"},
		{"disconnected", database.ErrNotConfigured, "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockMessageService(ctrl)
			svc.EXPECT().DatabaseStatus(gomock.Any()).Return(tt.err)

			w := do(newRouter(svc, true), http.MethodGet, "/health", "")

			require.Equal(t, http.StatusOK, w.Code)
			var got domain.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, "ok", got.Status)
			assert.Equal(t, tt.want, got.Database)
			assert.Equal(t, Endpoints, got.Endpoints)
		})
	}
}

func TestHTTPHandler_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := do(newRouter(mocks.NewMockMessageService(ctrl), true), http.MethodGet, "/nope", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", decodeError(t, w))
}
