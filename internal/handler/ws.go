package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"tractorbid/internal/realtime"
)

type WSHandler struct {
	Hub    *realtime.Hub
	Logger *zap.Logger
}

func (h *WSHandler) Register(r *gin.Engine) {
	r.GET("/ws/auctions/:id", h.auction)
}

// auction upgrades the request and streams hub events for one auction topic
// until the client goes away. Sealed-auction payload filtering happens at
// emit time; everything arriving on the topic is safe to forward.
func (h *WSHandler) auction(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusServiceUnavailable, "realtime unavailable", nil)
		return
	}
	auctionID := uint64Param(c, "id")
	if auctionID == 0 {
		Error(c, http.StatusBadRequest, "invalid auction id", nil)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin checks happen at the edge gateway
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	ctx := c.Request.Context()
	events, cancel := h.Hub.Subscribe(realtime.AuctionTopic(auctionID))
	defer cancel()

	// Reader only serves to notice the peer closing.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case <-ping.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, 10*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			writeCancel()
			if err != nil {
				return
			}
		}
	}
}
