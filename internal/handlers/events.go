package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"safeflow/internal/services/realtime"
	"safeflow/internal/utils"
)

const heartbeatInterval = 15 * time.Second

type SubscriberGauge interface {
	SubscriberOpened()
	SubscriberClosed()
}

// EventsHandler streams realtime refetch hints as server-sent events.
type EventsHandler struct {
	broker    realtime.Broker
	gauge     SubscriberGauge
	logger    *slog.Logger
	heartbeat time.Duration
}

func NewEventsHandler(broker realtime.Broker, gauge SubscriberGauge, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{broker: broker, gauge: gauge, logger: logger, heartbeat: heartbeatInterval}
}

func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	// The stream outlives this handler, so it cannot use the request context.
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.UserContext()))
	events, err := h.broker.Subscribe(ctx, userID)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe: %w", err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	if h.gauge != nil {
		h.gauge.SubscriberOpened()
	}
	log := h.logger.With("user_id", userID)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		if h.gauge != nil {
			defer h.gauge.SubscriberClosed()
		}

		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()

		fmt.Fprint(w, "retry: 3000\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case evt, ok := <-events:
				if !ok {
					return
				}
				payload, err := json.Marshal(evt)
				if err != nil {
					log.Error("encode event", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			// A failed flush means the client went away.
			if err := w.Flush(); err != nil {
				log.Debug("event stream closed", "error", err)
				return
			}
		}
	}))

	return nil
}
