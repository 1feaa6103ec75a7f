package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apihttp "github.com/modforge/scriptbox/internal/api/http"
	"github.com/modforge/scriptbox/internal/config"
	"github.com/modforge/scriptbox/internal/logging"
	"github.com/modforge/scriptbox/internal/monitoring"
	"github.com/modforge/scriptbox/internal/policy"
	"github.com/modforge/scriptbox/internal/sandbox"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Restrict origins at the edge in production
	},
}

// Message is one client request on the stream.
type Message struct {
	Type       string             `json:"type"`
	Source     string             `json:"source,omitempty"`
	EntryPoint string             `json:"entry_point,omitempty"`
	Args       []interface{}      `json:"args,omitempty"`
	Policy     apihttp.PolicySpec `json:"policy"`
	Seed       int64              `json:"seed,omitempty"`
}

// Handler manages WebSocket connections.
type Handler struct {
	sandbox *sandbox.Sandbox
	presets map[string]policy.Preset
	cfg     config.SandboxConfig
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a WebSocket handler.
func NewHandler(
	sb *sandbox.Sandbox,
	presets map[string]policy.Preset,
	cfg config.SandboxConfig,
	logger *logging.Logger,
	metrics *monitoring.Metrics,
) *Handler {
	return &Handler{
		sandbox: sb,
		presets: presets,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// HandleConnection upgrades the request and serves messages until the client
// disconnects. Requests on one connection are handled sequentially, so event
// streams of different executions never interleave.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.WSConnections.Inc()
	defer h.metrics.WSConnections.Dec()

	reqCtx := c.Request.Context()
	h.send(conn, gin.H{"type": "system", "message": "connected to scriptbox stream"})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "execute":
			h.handleExecute(reqCtx, conn, msg)
		case "validate":
			h.handleValidate(conn, msg)
		case "ping":
			h.send(conn, gin.H{"type": "pong"})
		default:
			h.sendError(conn, "unknown message type: "+msg.Type)
		}
	}
}

func (h *Handler) handleExecute(ctx context.Context, conn *websocket.Conn, msg Message) {
	pol, err := msg.Policy.Build(h.cfg, h.presets)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}

	h.metrics.ExecutionsActive.Inc()
	res, err := h.sandbox.Execute(ctx, sandbox.Request{
		Source:     msg.Source,
		EntryPoint: msg.EntryPoint,
		Args:       msg.Args,
		Policy:     pol,
		Seed:       msg.Seed,
		Observer: func(event string) {
			h.send(conn, gin.H{"type": "event", "event": event})
		},
	})
	h.metrics.ExecutionsActive.Dec()
	if err != nil {
		h.logger.Error("streamed execution failed", zap.Error(err))
		h.sendError(conn, "execution failed")
		return
	}

	outcome := "success"
	if res.Err != nil {
		outcome = string(res.Err.Kind)
	}
	h.metrics.RecordExecution(outcome, res.Duration, res.MemoryUsed)

	h.send(conn, gin.H{"type": "result", "result": res})
}

func (h *Handler) handleValidate(conn *websocket.Conn, msg Message) {
	pol, err := msg.Policy.Build(h.cfg, h.presets)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}
	result := h.sandbox.Validate(msg.Source, pol)
	h.send(conn, gin.H{
		"type":       "validation",
		"valid":      result.IsValid(),
		"summary":    result.Summary(),
		"violations": result.Violations,
	})
}

func (h *Handler) send(conn *websocket.Conn, payload interface{}) {
	if err := conn.WriteJSON(payload); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (h *Handler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, gin.H{"type": "error", "message": message})
}
