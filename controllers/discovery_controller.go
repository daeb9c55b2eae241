package controllers

import (
	"net/http"
	"strconv"

	"brandmatch_server/services"

	"go.uber.org/zap"
)

// DiscoveryController serves the swipe feed
type DiscoveryController struct {
	DiscoveryService *services.DiscoveryService
	Logger           *zap.Logger
}

// NewDiscoveryController creates a new instance of DiscoveryController
func NewDiscoveryController(discoveryService *services.DiscoveryService, logger *zap.Logger) *DiscoveryController {
	return &DiscoveryController{DiscoveryService: discoveryService, Logger: logger}
}

// Feed handles GET /api/discover?limit=&eligibleOnly=&campaignId=
func (c *DiscoveryController) Feed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	eligibleOnly, _ := strconv.ParseBool(q.Get("eligibleOnly"))

	items, err := c.DiscoveryService.Feed(r.Context(), userID(r), services.FeedOptions{
		Limit:        limit,
		EligibleOnly: eligibleOnly,
		CampaignID:   q.Get("campaignId"),
	})
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, items)
}
