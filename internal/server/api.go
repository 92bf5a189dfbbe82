package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/db"
	"github.com/theakshaypant/gridcal/internal/service"
)

const userIDKey = "userID"

// events builds the event service of the signed-in user.
func (s *Server) events(c *gin.Context) (*service.Events, bool) {
	userID := c.GetString(userIDKey)
	provider, err := s.provider(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	opts := []service.Option{service.WithLogger(s.log), service.WithCalendar(s.cfg.CalendarID)}
	if s.cache != nil {
		opts = append(opts, service.WithCache(s.cache))
	}
	return service.New(provider, s.store, userID, opts...), true
}

// fail maps an error onto the JSON error envelope.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthorized), errors.Is(err, db.ErrUserNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, core.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
	default:
		s.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("user", c.GetString(userIDKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
	}
}

func (s *Server) me(c *gin.Context) {
	user, err := s.store.User(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) listEvents(c *gin.Context) {
	startRaw, endRaw := c.Query("start"), c.Query("end")
	if startRaw == "" || endRaw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_end_required"})
		return
	}
	start, err1 := time.Parse(time.RFC3339, startRaw)
	end, err2 := time.Parse(time.RFC3339, endRaw)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_range"})
		return
	}

	svc, ok := s.events(c)
	if !ok {
		return
	}
	events, err := svc.ListRange(c.Request.Context(), start, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	if events == nil {
		events = []core.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) colors(c *gin.Context) {
	svc, ok := s.events(c)
	if !ok {
		return
	}
	palette, err := svc.Colors(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"colors": palette})
}

func (s *Server) createEvent(c *gin.Context) {
	var p core.EventPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}
	svc, ok := s.events(c)
	if !ok {
		return
	}
	event, err := svc.Create(c.Request.Context(), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

func (s *Server) updateEvent(c *gin.Context) {
	var p core.EventPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}
	svc, ok := s.events(c)
	if !ok {
		return
	}
	event, err := svc.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

func (s *Server) deleteEvent(c *gin.Context) {
	svc, ok := s.events(c)
	if !ok {
		return
	}
	if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type eventStatusRequest struct {
	EventID   string `json:"eventId"`
	Completed *bool  `json:"completed"`
}

func (s *Server) setEventStatus(c *gin.Context) {
	var req eventStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.EventID == "" || req.Completed == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}
	if err := s.store.SetCompleted(c.Request.Context(), c.GetString(userIDKey), req.EventID, *req.Completed); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// requestLogger logs every request through zap.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
