// Package server exposes the local-first store over a small REST facade. All
// reads answer from the local store immediately; writes commit locally and
// never fail on an unreachable remote API.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pbaranSii/TalentTrack/internal/auth"
	"github.com/pbaranSii/TalentTrack/internal/localdb"
	"github.com/pbaranSii/TalentTrack/internal/model"
	"github.com/pbaranSii/TalentTrack/internal/outbox"
	"github.com/pbaranSii/TalentTrack/internal/repo"
	"github.com/pbaranSii/TalentTrack/internal/syncer"
)

var (
	errMissingStore  = errors.New("server: store dependency required")
	errMissingRepos  = errors.New("server: repository dependencies required")
	errMissingSyncer = errors.New("server: syncer dependency required")
	errMissingOutbox = errors.New("server: outbox dependency required")
)

// Dependencies carries everything the HTTP facade serves from. Sessions is
// optional: without a validator every write is stamped anonymous.
type Dependencies struct {
	Store        *localdb.Store
	Outbox       *outbox.Queue
	Players      *repo.Players
	Matches      *repo.Matches
	Observations *repo.Observations
	Invitations  *repo.Invitations
	Dictionaries *repo.Dictionaries
	Clubs        *repo.Clubs
	Teams        *repo.Teams
	Persons      *repo.Persons
	Syncer       *syncer.Syncer
	Sessions     *auth.SessionValidator
	Logger       *zap.Logger
}

// NewHTTPHandler builds the gin handler serving the local-first API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Store == nil {
		return nil, errMissingStore
	}
	if deps.Outbox == nil {
		return nil, errMissingOutbox
	}
	if deps.Players == nil || deps.Matches == nil || deps.Observations == nil ||
		deps.Invitations == nil || deps.Dictionaries == nil || deps.Clubs == nil ||
		deps.Teams == nil || deps.Persons == nil {
		return nil, errMissingRepos
	}
	if deps.Syncer == nil {
		return nil, errMissingSyncer
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	handler := &httpHandler{deps: deps, logger: logger}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group("/api")
	api.GET("/players", handler.handleListPlayers)
	api.POST("/players", handler.handleCreatePlayer)
	api.GET("/players/:id", handler.handleGetPlayer)
	api.PATCH("/players/:id", handler.handleUpdatePlayer)

	api.GET("/matches", handler.handleListMatches)
	api.POST("/matches", handler.handleCreateMatch)

	api.GET("/observations", handler.handleListObservations)
	api.POST("/observations", handler.handleCreateObservation)

	api.GET("/invitations", handler.handleListInvitations)
	api.POST("/invitations", handler.handleCreateInvitation)
	api.POST("/invitations/freeform", handler.handleCreateFreeformInvitation)

	api.GET("/dictionaries", handler.handleListDictionaries)

	api.GET("/clubs", handler.handleListClubs)
	api.POST("/clubs", handler.handleCreateClub)

	api.GET("/teams", handler.handleListTeams)
	api.POST("/teams", handler.handleCreateTeam)

	api.GET("/persons", handler.handleListPersons)
	api.POST("/persons", handler.handleCreatePerson)

	api.GET("/watchlist", handler.handleGetWatchlist)
	api.PUT("/watchlist", handler.handlePutWatchlist)

	api.POST("/sync/flush", handler.handleSyncFlush)
	api.POST("/sync/refresh", handler.handleSyncRefresh)
	api.GET("/sync/outbox", handler.handleSyncOutbox)

	return router, nil
}

type httpHandler struct {
	deps   Dependencies
	logger *zap.Logger
}

// userID resolves the acting scout from the session cookie. A missing or
// invalid session is not an error here: the record is stamped anonymous.
func (h *httpHandler) userID(c *gin.Context) string {
	if h.deps.Sessions == nil {
		return ""
	}
	claims, err := h.deps.Sessions.ValidateRequest(c.Request)
	if err != nil {
		return ""
	}
	return claims.UserID
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleListPlayers(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Players.GetAllLocal())
}

func (h *httpHandler) handleGetPlayer(c *gin.Context) {
	player := h.deps.Players.GetByIDLocal(c.Param("id"))
	if player == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "player not found"})
		return
	}
	c.JSON(http.StatusOK, player)
}

func (h *httpHandler) handleCreatePlayer(c *gin.Context) {
	var input model.CreatePlayerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid player payload"})
		return
	}
	created, err := h.deps.Players.CreateLocalFirst(c.Request.Context(), input, h.userID(c))
	if err != nil {
		h.logger.Error("player create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "player create failed"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleUpdatePlayer(c *gin.Context) {
	var patch model.UpdatePlayerInput
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid player patch"})
		return
	}
	updated, err := h.deps.Players.UpdateLocalFirst(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.logger.Error("player update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "player update failed"})
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "player not found"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleListMatches(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Matches.GetAllLocal())
}

func (h *httpHandler) handleCreateMatch(c *gin.Context) {
	var input model.CreateMatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid match payload"})
		return
	}
	created, err := h.deps.Matches.CreateLocalFirst(c.Request.Context(), input, h.userID(c))
	if err != nil {
		h.logger.Error("match create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "match create failed"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleListObservations(c *gin.Context) {
	if playerID := c.Query("playerId"); playerID != "" {
		c.JSON(http.StatusOK, h.deps.Observations.GetByPlayerIDLocal(playerID))
		return
	}
	c.JSON(http.StatusOK, h.deps.Observations.GetAllLocal())
}

func (h *httpHandler) handleCreateObservation(c *gin.Context) {
	var input model.CreateObservationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid observation payload"})
		return
	}
	created, err := h.deps.Observations.CreateLocalFirst(c.Request.Context(), input, h.userID(c))
	if err != nil {
		h.logger.Error("observation create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "observation create failed"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleListInvitations(c *gin.Context) {
	if playerID := c.Query("playerId"); playerID != "" {
		c.JSON(http.StatusOK, h.deps.Invitations.GetByPlayerIDLocal(playerID))
		return
	}
	c.JSON(http.StatusOK, h.deps.Invitations.GetAllLocal())
}

func (h *httpHandler) handleCreateInvitation(c *gin.Context) {
	var input model.CreateInvitationInput
	if err := c.ShouldBindJSON(&input); err != nil || input.PlayerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid invitation payload"})
		return
	}
	created, err := h.deps.Invitations.CreateLocalFirst(c.Request.Context(), input, h.userID(c))
	if err != nil {
		h.logger.Error("invitation create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "invitation create failed"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleCreateFreeformInvitation(c *gin.Context) {
	var input model.CreateFreeformInvitationInput
	if err := c.ShouldBindJSON(&input); err != nil ||
		input.PlayerFirstName == "" || input.PlayerLastName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid freeform invitation payload"})
		return
	}
	created, err := h.deps.Invitations.CreateFreeformLocalFirst(input, h.userID(c))
	if err != nil {
		h.logger.Error("freeform invitation create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "invitation create failed"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleListDictionaries(c *gin.Context) {
	if dictType := c.Query("type"); dictType != "" {
		c.JSON(http.StatusOK, h.deps.Dictionaries.GetByTypeLocal(model.DictionaryType(dictType)))
		return
	}
	c.JSON(http.StatusOK, h.deps.Dictionaries.GetAllLocal())
}

func (h *httpHandler) handleListClubs(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Clubs.GetAllLocal())
}

func (h *httpHandler) handleCreateClub(c *gin.Context) {
	var input model.CreateClubInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid club payload"})
		return
	}
	created, err := h.deps.Clubs.CreateLocalFirst(c.Request.Context(), input, h.userID(c))
	if err != nil {
		h.logger.Error("club create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "club create failed"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleListTeams(c *gin.Context) {
	if clubID := c.Query("clubId"); clubID != "" {
		c.JSON(http.StatusOK, h.deps.Teams.GetByClubIDLocal(clubID))
		return
	}
	c.JSON(http.StatusOK, h.deps.Teams.GetAllLocal())
}

func (h *httpHandler) handleCreateTeam(c *gin.Context) {
	var input model.CreateTeamInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Name == "" || input.ClubID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid team payload"})
		return
	}
	created, err := h.deps.Teams.CreateLocalFirst(c.Request.Context(), input, h.userID(c))
	if err != nil {
		h.logger.Error("team create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "team create failed"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleListPersons(c *gin.Context) {
	if personType := c.Query("type"); personType != "" {
		c.JSON(http.StatusOK, h.deps.Persons.GetByTypeLocal(model.PersonType(personType)))
		return
	}
	c.JSON(http.StatusOK, h.deps.Persons.GetAllLocal())
}

func (h *httpHandler) handleCreatePerson(c *gin.Context) {
	var input model.CreatePersonInput
	if err := c.ShouldBindJSON(&input); err != nil || input.LastName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid person payload"})
		return
	}
	created, err := h.deps.Persons.CreateLocalFirst(c.Request.Context(), input, h.userID(c))
	if err != nil {
		h.logger.Error("person create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "person create failed"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

type watchlistPayload struct {
	PlayerIDs []string `json:"playerIds"`
}

func (h *httpHandler) handleGetWatchlist(c *gin.Context) {
	ids := h.deps.Store.WatchlistPlayerIDs()
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, watchlistPayload{PlayerIDs: ids})
}

func (h *httpHandler) handlePutWatchlist(c *gin.Context) {
	var payload watchlistPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid watchlist payload"})
		return
	}
	if err := h.deps.Store.SetWatchlistPlayerIDs(payload.PlayerIDs); err != nil {
		h.logger.Error("watchlist write failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "watchlist write failed"})
		return
	}
	c.JSON(http.StatusOK, watchlistPayload{PlayerIDs: h.deps.Store.WatchlistPlayerIDs()})
}

func (h *httpHandler) handleSyncFlush(c *gin.Context) {
	result := h.deps.Syncer.Flush(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

// handleSyncRefresh always answers 200: a refresh that cannot reach the
// remote API is a degraded state, not a request failure.
func (h *httpHandler) handleSyncRefresh(c *gin.Context) {
	failures := h.deps.Syncer.RefreshAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ok": len(failures) == 0, "failures": failures})
}

func (h *httpHandler) handleSyncOutbox(c *gin.Context) {
	ops := h.deps.Outbox.List()
	if ops == nil {
		ops = []outbox.Operation{}
	}
	c.JSON(http.StatusOK, ops)
}
