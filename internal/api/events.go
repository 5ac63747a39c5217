package api

import (
	"net/http"
	"sync"

	"MC_monster_miniapp/internal/model"
	"MC_monster_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type questEvent struct {
	Type  string        `json:"type"`
	Quest QuestResponse `json:"quest"`
}

// QuestEventHub fans quest mutations out to the owner's connected
// mini-app clients. Implements service.QuestEventPublisher.
type QuestEventHub struct {
	mu      sync.Mutex
	clients map[int64]map[*websocket.Conn]struct{}
}

func NewQuestEventHub() *QuestEventHub {
	return &QuestEventHub{
		clients: make(map[int64]map[*websocket.Conn]struct{}),
	}
}

func (h *QuestEventHub) Serve(c *gin.Context, ownerID int64) {
	log := logger.Logger()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	h.register(ownerID, conn)
	defer func() {
		h.unregister(ownerID, conn)
		conn.Close()
	}()

	// Clients never send payloads; the read loop only detects disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *QuestEventHub) PublishQuestUpdate(ownerID int64, quest *model.DailyQuest) {
	payload, err := json.Marshal(questEvent{
		Type:  "quest_update",
		Quest: toQuestResponse(quest),
	})
	if err != nil {
		logger.Logger().Error("failed to marshal quest event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients[ownerID] {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.clients[ownerID], conn)
			conn.Close()
		}
	}
}

func (h *QuestEventHub) register(ownerID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[ownerID] == nil {
		h.clients[ownerID] = make(map[*websocket.Conn]struct{})
	}
	h.clients[ownerID][conn] = struct{}{}
}

func (h *QuestEventHub) unregister(ownerID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients[ownerID], conn)
	if len(h.clients[ownerID]) == 0 {
		delete(h.clients, ownerID)
	}
}
