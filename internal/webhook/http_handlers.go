package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"callscribe/internal/calls"
	"callscribe/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers adapts the event router to the inbound HTTP contract.
// No business logic here: bodies are parsed into envelopes and handed to the
// Router; the Ack goes back verbatim with status 200. Only a malformed
// envelope yields a non-200.
type Handlers struct {
	Router   *Router
	Registry *calls.Registry
}

// Register wires the webhook and health routes onto the engine.
func (h Handlers) Register(r *gin.Engine) {
	wh := r.Group("/webhook")
	{
		wh.POST("", h.HandleEvent)
		wh.POST("/", h.HandleEvent)
		wh.POST("/recording-saved", h.HandleRecordingSaved)
		wh.GET("/health", h.WebhookHealth)
	}
	r.GET("/health", h.Health)
}

// HandleEvent is the main webhook endpoint for provider events.
func (h Handlers) HandleEvent(c *gin.Context) {
	log := logger.FromGin(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Expected JSON"})
		return
	}
	env, err := ParseEnvelope(body)
	if err != nil {
		log.Warn("webhook envelope parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Expected JSON"})
		return
	}

	ack := h.Router.Handle(c.Request.Context(), env)
	c.JSON(http.StatusOK, ack)
}

// HandleRecordingSaved accepts the raw provider payload with no envelope and
// synthesizes one with a fixed event kind before routing.
func (h Handlers) HandleRecordingSaved(c *gin.Context) {
	log := logger.FromGin(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || !json.Valid(body) {
		log.Warn("recording-saved body is not JSON")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Expected JSON"})
		return
	}

	env, err := ParseEnvelope(body)
	if err != nil || env.Data.EventType == "" {
		env = Envelope{Data: EventData{
			EventType: eventRecordingSaved,
			Payload:   body,
		}}
	}

	ack := h.Router.Handle(c.Request.Context(), env)
	c.JSON(http.StatusOK, ack)
}

func (h Handlers) WebhookHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Health reports liveness plus the number of in-flight calls.
func (h Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"active_calls": h.Registry.Len(),
	})
}
