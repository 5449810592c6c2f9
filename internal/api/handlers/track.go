package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/matsimonsen7/tid-er-penge/internal/analytics"
	"github.com/matsimonsen7/tid-er-penge/internal/api/models"
)

// Dispatcher queues events for delivery without blocking.
type Dispatcher interface {
	Dispatch(e analytics.Event)
}

// TrackHandler forwards browser analytics events to the configured sinks.
type TrackHandler struct {
	dispatcher Dispatcher
	project    string
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(d Dispatcher, project string) *TrackHandler {
	if project == "" {
		project = analytics.DefaultProject
	}
	return &TrackHandler{dispatcher: d, project: project}
}

// Track handles POST /api/v1/track
func (h *TrackHandler) Track(c *gin.Context) {
	var req models.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewError(models.CodeInvalidRequest, err.Error()))
		return
	}
	e := analytics.Event{
		Project:    h.project,
		Event:      req.Event,
		VisitorID:  req.VisitorID,
		SessionID:  req.SessionID,
		Referrer:   req.Referrer,
		Pathname:   req.Pathname,
		Properties: req.Properties,
		Timestamp:  time.Now().UTC(),
	}
	if e.VisitorID == "" {
		e.VisitorID = uuid.NewString()
	}
	if e.SessionID == "" {
		e.SessionID = uuid.NewString()
	}
	if e.Pathname == "" {
		e.Pathname = "/"
	}
	h.dispatcher.Dispatch(e)
	c.Status(http.StatusAccepted)
}
