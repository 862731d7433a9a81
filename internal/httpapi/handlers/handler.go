package handlers

import (
	"github.com/suPer8Hu/alira/internal/chat"
	"github.com/suPer8Hu/alira/internal/metrics"
	"go.uber.org/zap"
)

type Handler struct {
	Relay    *chat.Relay
	Metrics  *metrics.Collector
	Logger   *zap.Logger
	Provider string
}

func NewHandler(relay *chat.Relay, collector *metrics.Collector, logger *zap.Logger, provider string) *Handler {
	return &Handler{
		Relay:    relay,
		Metrics:  collector,
		Logger:   logger.With(zap.String("component", "relay")),
		Provider: provider,
	}
}
