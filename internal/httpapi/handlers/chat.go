package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/alira/internal/chat"
	"github.com/suPer8Hu/alira/internal/common"
	"github.com/suPer8Hu/alira/internal/httpapi/middleware"
	"github.com/suPer8Hu/alira/internal/metrics"
	"go.uber.org/zap"
)

const (
	msgInvalidRequest  = "invalid request body"
	msgNotConfigured   = "API key not configured"
	msgProviderMissing = "AI provider not configured"
	msgTurnFailed      = "Failed to process chat message"
)

// StreamChat relays one conversation turn. Failures before the first
// fragment get a JSON error; after that the body is raw text and a provider
// failure aborts the response.
func (h *Handler) StreamChat(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.Logger.With(zap.String("request_id", middleware.RequestIDFrom(c)))
	finish := h.Metrics.TurnStarted(h.Provider)
	start := time.Now()

	var req chat.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		finish(metrics.OutcomeInvalid)
		common.Fail(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := req.Validate(); err != nil {
		finish(metrics.OutcomeInvalid)
		common.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	stream, err := h.Relay.Open(ctx, req)
	if err != nil {
		var cfgErr *chat.ConfigurationError
		switch {
		case errors.As(err, &cfgErr):
			log.Error("relay not configured", zap.Error(err))
			finish(metrics.OutcomeConfiguration)
			if cfgErr.MissingCredential() {
				common.Fail(c, http.StatusInternalServerError, msgNotConfigured)
			} else {
				common.Fail(c, http.StatusInternalServerError, msgProviderMissing)
			}
		case ctx.Err() != nil:
			log.Debug("client went away before first fragment", zap.Error(err))
			finish(metrics.OutcomeCanceled)
		default:
			log.Error("provider call failed", zap.Error(err))
			finish(metrics.OutcomeProvider)
			common.Fail(c, http.StatusInternalServerError, msgTurnFailed)
		}
		_ = c.Error(err)
		return
	}
	h.Metrics.ObserveFirstFragment(time.Since(start))

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		finish(metrics.OutcomeStreamError)
		common.Fail(c, http.StatusInternalServerError, msgTurnFailed)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // helpful if behind nginx
	c.Status(http.StatusOK)
	flusher.Flush()

	for {
		frag, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			finish(metrics.OutcomeCompleted)
			log.Debug("turn completed", zap.Int("fragments", stream.Delivered()))
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				finish(metrics.OutcomeCanceled)
				log.Debug("client went away mid-stream", zap.Int("fragments", stream.Delivered()))
				return
			}
			finish(metrics.OutcomeStreamError)
			log.Error("provider failed mid-stream", zap.Error(err), zap.Int("fragments", stream.Delivered()))
			_ = c.Error(err)
			panic(http.ErrAbortHandler)
		}

		if _, err := io.WriteString(c.Writer, frag); err != nil {
			finish(metrics.OutcomeCanceled)
			log.Debug("write to client failed", zap.Error(err))
			return
		}
		flusher.Flush()
		h.Metrics.AddFragment(len(frag))
	}
}
