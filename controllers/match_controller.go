package controllers

import (
	"net/http"

	"brandmatch_server/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// MatchController lists matches and updates their status
type MatchController struct {
	MatchService *services.MatchService
	Logger       *zap.Logger
}

// NewMatchController creates a new instance of MatchController
func NewMatchController(matchService *services.MatchService, logger *zap.Logger) *MatchController {
	return &MatchController{MatchService: matchService, Logger: logger}
}

// List handles GET /api/matches?status=
func (c *MatchController) List(w http.ResponseWriter, r *http.Request) {
	matches, err := c.MatchService.ListMatches(r.Context(), userID(r), r.URL.Query().Get("status"))
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, matches)
}

// Get handles GET /api/matches/{matchId}
func (c *MatchController) Get(w http.ResponseWriter, r *http.Request) {
	match, err := c.MatchService.GetMatchWithProfile(r.Context(), mux.Vars(r)["matchId"], userID(r))
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, match)
}

// UpdateStatus handles PATCH /api/matches/{matchId}/status
func (c *MatchController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &in); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	match, err := c.MatchService.UpdateStatus(r.Context(), mux.Vars(r)["matchId"], userID(r), in.Status)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, match)
}
