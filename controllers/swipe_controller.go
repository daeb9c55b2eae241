package controllers

import (
	"net/http"

	"brandmatch_server/services"

	"go.uber.org/zap"
)

// SwipeController records swipes
type SwipeController struct {
	SwipeService *services.SwipeService
	Logger       *zap.Logger
}

// NewSwipeController creates a new instance of SwipeController
func NewSwipeController(swipeService *services.SwipeService, logger *zap.Logger) *SwipeController {
	return &SwipeController{SwipeService: swipeService, Logger: logger}
}

// RecordSwipe handles POST /api/swipes
func (c *SwipeController) RecordSwipe(w http.ResponseWriter, r *http.Request) {
	var in services.SwipeInput
	if err := decodeBody(r, &in); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	result, err := c.SwipeService.RecordSwipe(r.Context(), userID(r), in)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, result)
}

// ListLikes handles GET /api/swipes/likes
func (c *SwipeController) ListLikes(w http.ResponseWriter, r *http.Request) {
	likes, err := c.SwipeService.ListLikes(r.Context(), userID(r))
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, likes)
}
