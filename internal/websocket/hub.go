package websocket

import (
	"encoding/json"
	"sync"
)

// Updates are best-effort: they are sent only after the ledger transaction
// committed, and a slow or gone client is skipped rather than retried.

type WalletUpdate struct {
	WalletID  string `json:"wallet_id"`
	Balance   string `json:"balance"`
	Available string `json:"available_balance"`
	Locked    string `json:"locked_balance"`
	Currency  string `json:"currency"`
}

type TradeEvent struct {
	Event        string `json:"event"`
	PositionID   string `json:"position_id"`
	CurrencyPair string `json:"currency_pair"`
	Side         string `json:"side"`
	ProfitLoss   string `json:"profit_loss,omitempty"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) BroadcastWallet(userID string, update WalletUpdate) {
	h.broadcast(userID, update)
}

func (h *Hub) BroadcastTrade(userID string, event TradeEvent) {
	h.broadcast(userID, event)
}

func (h *Hub) broadcast(userID string, payload any) {
	message, _ := json.Marshal(payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- message:
		default:
		}
	}
}
