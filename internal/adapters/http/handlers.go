package http

import (
	"net/http"

	"github.com/dkeye/Screenshare/internal/app/orch"
	"github.com/dkeye/Screenshare/internal/config"
	"github.com/dkeye/Screenshare/internal/core"
	"github.com/dkeye/Screenshare/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	orch *orch.Orchestrator
	cfg  *config.Config
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": h.orch.Registry.Len(),
		"rooms":    len(h.orch.Rooms.List()),
	})
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.orch.Rooms.List()})
}

func (h *handlers) lookupRoom(c *gin.Context) (core.RoomService, bool) {
	id := c.Param("id")
	if !domain.ValidRoomID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidRoomID.Error()})
		return nil, false
	}
	room, ok := h.orch.Rooms.GetRoom(domain.RoomID(id))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room-not-found"})
		return nil, false
	}
	return room, true
}

func (h *handlers) getRoom(c *gin.Context) {
	room, ok := h.lookupRoom(c)
	if !ok {
		return
	}
	r := room.Room()
	c.JSON(http.StatusOK, core.RoomInfo{
		ID:          r.ID,
		MemberCount: room.MemberCount(),
		CreatedAt:   r.CreatedAt,
	})
}

func (h *handlers) roomMembers(c *gin.Context) {
	room, ok := h.lookupRoom(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": room.Room().ID, "users": room.MembersSnapshot()})
}

func (h *handlers) peers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"peers": h.orch.Registry.Peers()})
}

func (h *handlers) iceServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": h.cfg.WebRTCICEServers()})
}

type profileRequest struct {
	Username string `json:"username" binding:"required,max=36"`
}

func (h *handlers) getProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"username": c.GetString(usernameKey)})
}

func (h *handlers) putProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	name, err := domain.NormalizeUsername(req.Username)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := sessions.Default(c)
	s.Set(usernameKey, name)
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": name})
}
