package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/pavel19a/serverless-lab-render/internal/domain"
	"github.com/pavel19a/serverless-lab-render/internal/service"
	"github.com/pavel19a/serverless-lab-render/pkg/database"
	"github.com/pavel19a/serverless-lab-render/pkg/log"
	"github.com/pavel19a/serverless-lab-render/pkg/response"
)

const (
	greeting = "Hello, Serverless! 🚀\n"

	errDBNotConnected = "DB not connected"
	errInvalidJSON    = "request body must be valid JSON"
	errMessageMissing = "request body must be a JSON object with a non-empty \"message\""
)

// Endpoints is advertised by GET /health.
var Endpoints = map[string]string{
	"GET /":         "greeting",
	"POST /echo":    "echo a JSON body",
	"POST /save":    "store a message",
	"GET /messages": "list the 10 most recent messages",
	"GET /health":   "service and database status",
}

// Options controls request validation.
type Options struct {
	// Strict answers 400 to missing or malformed bodies and empty messages.
	// When false they are treated as an empty message / null payload.
	Strict bool
}

// HTTPHandler handles HTTP requests for the message service.
type HTTPHandler struct {
	messageService service.MessageService
	opts           Options
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(messageService service.MessageService, opts Options) *HTTPHandler {
	return &HTTPHandler{
		messageService: messageService,
		opts:           opts,
	}
}

// RegisterRoutes registers all routes.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Hello)
	r.POST("/echo", h.Echo)
	r.POST("/save", h.Save)
	r.GET("/messages", h.Messages)
	r.GET("/health", h.HealthCheck)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "not found")
	})
}

// Hello answers with a static greeting.
func (h *HTTPHandler) Hello(c *gin.Context) {
	response.Text(c, greeting)
}

// Echo returns the received JSON along with the length of its compact rendering.
func (h *HTTPHandler) Echo(c *gin.Context) {
	l := log.Ctx(c.Request.Context())

	body, err := c.GetRawData()
	if err != nil {
		l.Warn().Err(err).Msg("failed to read echo body")
		response.BadRequest(c, errInvalidJSON)
		return
	}

	var compact bytes.Buffer
	if len(bytes.TrimSpace(body)) == 0 || json.Compact(&compact, body) != nil {
		if h.opts.Strict {
			l.Warn().Msg("invalid echo request")
			response.BadRequest(c, errInvalidJSON)
			return
		}
		compact.Reset()
		compact.WriteString("null")
	}

	length := 0
	if !isEmptyJSON(compact.Bytes()) {
		length = utf8.RuneCount(compact.Bytes())
	}

	response.OK(c, domain.EchoResponse{
		Status:  "received",
		YouSent: json.RawMessage(compact.Bytes()),
		Length:  length,
	})
}

// Save stores the "message" field of the body.
func (h *HTTPHandler) Save(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if h.opts.Strict {
			l.Warn().Err(err).Msg("invalid save request")
			response.BadRequest(c, errMessageMissing)
			return
		}
		req = domain.SaveRequest{}
	}

	content := ""
	if req.Message != nil {
		content = *req.Message
	}
	if h.opts.Strict && content == "" {
		l.Warn().Msg("save request without message")
		response.BadRequest(c, errMessageMissing)
		return
	}

	msg, err := h.messageService.Save(ctx, content)
	if err != nil {
		h.writeError(c, err, "save message failed")
		return
	}

	response.OK(c, domain.SaveResponse{
		Status:  "saved",
		Message: msg.Content,
	})
}

// Messages lists the most recent messages, newest first.
func (h *HTTPHandler) Messages(c *gin.Context) {
	messages, err := h.messageService.Recent(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "list messages failed")
		return
	}

	response.OK(c, domain.ToResponses(messages))
}

// HealthCheck reports process and database status.
func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	status := "connected"
	if err := h.messageService.DatabaseStatus(ctx); err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Msg("database probe failed")
		status = "disconnected"
	}

	response.OK(c, domain.HealthResponse{
		Status:    "ok",
		Database:  status,
		Endpoints: Endpoints,
	})
}

// isEmptyJSON reports whether a compact JSON value is null, false, zero,
// an empty string, an empty array or an empty object.
func isEmptyJSON(v []byte) bool {
	switch string(v) {
	case "null", "false", `""`, "[]", "{}":
		return true
	}
	f, err := strconv.ParseFloat(string(v), 64)
	return err == nil && f == 0
}

func (h *HTTPHandler) writeError(c *gin.Context, err error, msg string) {
	l := log.Ctx(c.Request.Context())

	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		l.Warn().Err(err).Msg(msg)
		response.BadRequest(c, errMessageMissing)
	case errors.Is(err, database.ErrUnavailable):
		l.Error().Err(err).Msg(msg)
		response.InternalError(c, errDBNotConnected)
	default:
		l.Error().Err(err).Msg(msg)
		response.InternalError(c, err.Error())
	}
}
