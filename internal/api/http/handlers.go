package http

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modforge/scriptbox/internal/config"
	"github.com/modforge/scriptbox/internal/logging"
	"github.com/modforge/scriptbox/internal/monitoring"
	"github.com/modforge/scriptbox/internal/policy"
	"github.com/modforge/scriptbox/internal/sandbox"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	sandbox *sandbox.Sandbox
	presets map[string]policy.Preset
	metrics *monitoring.Metrics
	logger  *logging.Logger
	cfg     config.SandboxConfig
	stats   *Stats
}

// NewHandlers creates the handler set.
func NewHandlers(
	sb *sandbox.Sandbox,
	presets map[string]policy.Preset,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
	cfg config.SandboxConfig,
) *Handlers {
	return &Handlers{
		sandbox: sb,
		presets: presets,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		stats:   NewStats(DefaultStatsWindow),
	}
}

// Root handles the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "scriptbox",
		"version": "0.3.0",
	})
}

// Health handles the health check.
func (h *Handlers) Health(c *gin.Context) {
	h.metrics.UpdateUptime()
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"presets": len(h.presets),
	})
}

// Validate runs the static validator without executing anything.
func (h *Handlers) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Source) > h.cfg.MaxSourceBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "source exceeds size limit"})
		return
	}

	pol, err := req.Policy.Build(h.cfg, h.presets)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.sandbox.Validate(req.Source, pol)
	verdict := "valid"
	if !result.IsValid() {
		verdict = "invalid"
	}
	h.metrics.RecordValidation(verdict, result.Violations)

	c.JSON(http.StatusOK, ValidateResponse{
		Valid:      result.IsValid(),
		Summary:    result.Summary(),
		Violations: result.Violations,
	})
}

// Execute runs the full validate, compile, run cycle. Script failures come
// back with HTTP 200 and the terminal state in the body; non-2xx is reserved
// for malformed requests and host faults.
func (h *Handlers) Execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Source) > h.cfg.MaxSourceBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "source exceeds size limit"})
		return
	}

	pol, err := req.Policy.Build(h.cfg, h.presets)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.metrics.ExecutionsActive.Inc()
	res, err := h.sandbox.Execute(c.Request.Context(), sandbox.Request{
		Source:     req.Source,
		EntryPoint: req.EntryPoint,
		Args:       req.Args,
		Policy:     pol,
		Seed:       req.Seed,
	})
	h.metrics.ExecutionsActive.Dec()
	if err != nil {
		h.logger.Error("execution failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "execution failed"})
		return
	}

	outcome := "success"
	if res.Err != nil {
		outcome = string(res.Err.Kind)
	}
	h.metrics.RecordExecution(outcome, res.Duration, res.MemoryUsed)
	h.stats.Record(outcome, res.Duration)

	c.JSON(http.StatusOK, res)
}

// ListPolicies returns the configured policy presets.
func (h *Handlers) ListPolicies(c *gin.Context) {
	names := make([]string, 0, len(h.presets))
	for name := range h.presets {
		names = append(names, name)
	}
	sort.Strings(names)

	presets := make([]policy.Preset, 0, len(names))
	for _, name := range names {
		presets = append(presets, h.presets[name])
	}
	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

// GetStats returns aggregate execution statistics.
func (h *Handlers) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Snapshot())
}
