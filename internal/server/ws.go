package server

import (
	"encoding/json"
	"net/http"

	"github.com/olahol/melody"
	"go.uber.org/zap"

	"github.com/ayusman/cardsight/internal/app"
)

// Message types sent to WebSocket clients.
const (
	MessageLedger = "ledger"
	MessageTick   = "tick"
)

// Message is the envelope of every WebSocket message.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub broadcasts tick results to WebSocket clients. New clients first
// receive the current ledger.
type Hub struct {
	melody   *melody.Melody
	logger   *zap.Logger
	snapshot func() interface{}
}

// NewHub creates a Hub. snapshot supplies the ledger sent on connect.
func NewHub(logger *zap.Logger, snapshot func() interface{}) *Hub {
	h := &Hub{
		melody:   melody.New(),
		logger:   logger,
		snapshot: snapshot,
	}

	h.melody.HandleConnect(func(s *melody.Session) {
		if h.snapshot == nil {
			return
		}
		msg, err := encode(MessageLedger, h.snapshot())
		if err != nil {
			h.logger.Error("encode ledger", zap.Error(err))
			return
		}
		if err := s.Write(msg); err != nil {
			h.logger.Debug("write ledger", zap.Error(err))
		}
	})
	h.melody.HandleError(func(s *melody.Session, err error) {
		h.logger.Debug("websocket session error", zap.Error(err))
	})

	return h
}

// ServeHTTP upgrades the request to a WebSocket session.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.melody.HandleRequest(w, r); err != nil {
		h.logger.Warn("websocket upgrade", zap.Error(err))
	}
}

// BroadcastTick sends result to every connected client.
func (h *Hub) BroadcastTick(result *app.TickResult) {
	if h.melody.Len() == 0 {
		return
	}

	msg, err := encode(MessageTick, result)
	if err != nil {
		h.logger.Error("encode tick", zap.Error(err))
		return
	}
	if err := h.melody.Broadcast(msg); err != nil {
		h.logger.Debug("broadcast tick", zap.Error(err))
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	return h.melody.Len()
}

// Close disconnects every client.
func (h *Hub) Close() error {
	return h.melody.Close()
}

func encode(kind string, v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: kind, Data: data})
}
