package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/middleware"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
	ws "github.com/stemsi/speaking-backend/internal/websocket"
)

// maxStreamTopics caps one streamed batch.
const maxStreamTopics = 100

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams batch generation progress over a WebSocket.
type WSHandler struct {
	questionService *service.QuestionService
	log             zerolog.Logger
	upgrader        websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(questionService *service.QuestionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		questionService: questionService,
		log:             log.With().Str("component", "ws_handler").Logger(),
		upgrader:        buildUpgrader(allowedOrigins),
	}
}

// GenerateStream godoc
// WS /api/ws/v1/questions/generate?token=
// Each {"action":"generate","topics":[...]} message runs one batch and
// emits accepted, one topic_generated/topic_failed per topic as it settles,
// then completed.
func (h *WSHandler) GenerateStream(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int("user_id", id.UserID).Logger()
	wsLog.Info().Msg("Generation stream opened")

	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionGenerate:
			if err := h.handleGenerate(c, conn, wsLog, msg.Topics); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed, closing stream")
				return
			}
		case ws.ActionPing:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		default:
			if err := ws.WriteError(conn, "unknown action: "+string(msg.Action)); err != nil {
				return
			}
		}
	}
}

// handleGenerate runs one batch. A non-nil error means the connection is
// no longer writable.
func (h *WSHandler) handleGenerate(c *gin.Context, conn *websocket.Conn, log zerolog.Logger, topics []string) error {
	if len(topics) > maxStreamTopics {
		return ws.WriteError(conn, "too many topics")
	}

	// The batch is validated before acceptance so a rejected batch makes no calls.
	for _, t := range topics {
		if strings.TrimSpace(t) == "" {
			return ws.WriteError(conn, service.ErrEmptyTopic.Error())
		}
	}
	if len(topics) == 0 {
		return ws.WriteError(conn, service.ErrNoTopics.Error())
	}

	if err := ws.WriteTyped(conn, ws.AcceptedResponse{Event: ws.EventAccepted, Total: len(topics)}); err != nil {
		return err
	}

	var writeErr error
	out, err := h.questionService.GenerateBatchStream(c.Request.Context(), topics, func(r service.TopicResult) {
		if writeErr != nil {
			return
		}
		if r.Question != nil {
			writeErr = ws.WriteTyped(conn, ws.TopicGeneratedResponse{Event: ws.EventGenerated, Index: r.Index, Question: *r.Question})
		} else {
			writeErr = ws.WriteTyped(conn, ws.TopicFailedResponse{Event: ws.EventFailed, Index: r.Index, Error: *r.Error})
		}
	})
	if err != nil {
		if errors.Is(err, service.ErrNoTopics) || errors.Is(err, service.ErrEmptyTopic) {
			return ws.WriteError(conn, err.Error())
		}
		log.Error().Err(err).Msg("Streamed batch failed")
		return ws.WriteError(conn, response.GetMessage(response.ErrInternal))
	}
	if writeErr != nil {
		return writeErr
	}

	return ws.WriteTyped(conn, ws.CompletedResponse{
		Event:     ws.EventCompleted,
		Status:    out.Status(),
		Generated: len(out.Generated),
		Failed:    len(out.Errors),
	})
}
