package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tasktray/internal/core/coordinator"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDCtxKey = "request_id"
	streamBuffer    = 32
	keepAlive       = 15 * time.Second
)

// Server serves the control API.
type Server struct {
	controller Controller
	router     *gin.Engine
	http       *http.Server
	onFocus    func()
	log        zerolog.Logger
}

// NewServer builds the router. onFocus, when set, is called for focus
// requests from a second launch.
func NewServer(controller Controller, onFocus func(), log zerolog.Logger) *Server {
	server := &Server{
		controller: controller,
		onFocus:    onFocus,
		log:        log.With().Str("component", "ipc").Logger(),
	}

	router := gin.New()
	router.Use(gin.Recovery(), server.handleRequestID)

	v1 := router.Group("/v1")
	{
		v1.GET("/health", server.handleHealth)
		v1.POST("/messages", server.handleMessage)
		v1.GET("/events", server.handleEvents)
		v1.POST("/focus", server.handleFocus)
	}

	server.router = router
	server.http = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server
}

// Handler returns the router, for tests and embedding.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve blocks serving on listener until Shutdown.
func (server *Server) Serve(listener net.Listener) error {
	server.log.Info().Str("address", listener.Addr().String()).Msg("control API listening")
	err := server.http.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones. Event
// streams end when the coordinator closes its subscribers.
func (server *Server) Shutdown(ctx context.Context) error {
	return server.http.Shutdown(ctx)
}

func (server *Server) handleRequestID(c *gin.Context) {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDCtxKey, requestID)
	c.Header(requestIDHeader, requestID)

	start := time.Now()
	c.Next()

	server.log.Debug().
		Str("request_id", requestID).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Int("status", c.Writer.Status()).
		Dur("latency", time.Since(start)).
		Msg("request handled")
}

func (server *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (server *Server) handleFocus(c *gin.Context) {
	if server.onFocus != nil {
		server.onFocus()
	}
	c.Status(http.StatusNoContent)
}

func (server *Server) handleMessage(c *gin.Context) {
	var message Message
	if err := c.ShouldBindJSON(&message); err != nil {
		server.reject(c, Reply{}, fmt.Errorf("decode message: %v: %w", err, errBadRequest))
		return
	}

	reply, err := server.dispatch(c.Request.Context(), message)
	if err != nil {
		server.log.Debug().
			Err(err).
			Str("request_id", c.GetString(requestIDCtxKey)).
			Str("type", string(message.Type)).
			Str("task_id", message.TaskID).
			Msg("message rejected")
		server.reject(c, reply, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (server *Server) dispatch(ctx context.Context, message Message) (Reply, error) {
	var reply Reply
	var err error

	switch message.Type {
	case MessageStartTimer:
		reply.Snapshot, err = server.controller.StartTask(ctx, message.TaskID)
	case MessagePauseTimer:
		reply.Snapshot, err = server.controller.PauseTask(ctx, message.TaskID)
	case MessageStopTimer:
		reply.Snapshot, err = server.controller.StopTask(ctx, message.TaskID)
	case MessageCompleteTask:
		reply.Snapshot, err = server.controller.CompleteTask(ctx, message.TaskID)
	case MessageResetTimer:
		reply.Snapshot, err = server.controller.ResetTask(ctx, message.TaskID)
	case MessageSetCurrentTask:
		reply.Snapshot, err = server.controller.SetCurrentTask(ctx, message.TaskID)
	case MessageGetCurrentTask:
		reply.Task, reply.Snapshot, err = server.controller.CurrentTask(ctx)
	case MessageUpdateUncompletedTasks:
		if message.Count == nil || *message.Count < 0 {
			return reply, fmt.Errorf("count must be a non-negative number: %w", errBadRequest)
		}
		reply.Snapshot, err = server.controller.UpdateUncompletedTasks(ctx, *message.Count)
	default:
		return reply, fmt.Errorf("unknown message type %q: %w", message.Type, errBadRequest)
	}
	return reply, err
}

func (server *Server) reject(c *gin.Context, reply Reply, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		server.log.Error().Err(err).Str("request_id", c.GetString(requestIDCtxKey)).Msg("message failed")
	}
	reply.Error = err.Error()
	reply.Code = code
	c.AbortWithStatusJSON(status, reply)
}

// handleEvents streams broadcasts. The subscription is registered before
// the response headers are flushed, so a client that has seen the headers
// cannot miss a later broadcast.
func (server *Server) handleEvents(c *gin.Context) {
	events, dispose := server.controller.Subscribe(streamBuffer)
	defer dispose()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	requestID := c.GetString(requestIDCtxKey)
	server.log.Debug().Str("request_id", requestID).Msg("event stream opened")

	heartbeat := time.NewTicker(keepAlive)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-heartbeat.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Type), event)
			return true
		}
	})

	server.log.Debug().Str("request_id", requestID).Msg("event stream closed")
}

var _ Controller = (*coordinator.Coordinator)(nil)
