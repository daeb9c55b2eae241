package controllers

import (
	"net/http"

	"brandmatch_server/services"

	"go.uber.org/zap"
)

// InstagramController links Instagram accounts and syncs stats
type InstagramController struct {
	InstagramService *services.InstagramService
	Logger           *zap.Logger
}

// NewInstagramController creates a new instance of InstagramController
func NewInstagramController(instagramService *services.InstagramService, logger *zap.Logger) *InstagramController {
	return &InstagramController{InstagramService: instagramService, Logger: logger}
}

// AuthURL returns the authorization URL for the caller
func (c *InstagramController) AuthURL(w http.ResponseWriter, r *http.Request) {
	url, err := c.InstagramService.AuthURL(r.Context(), userID(r))
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"url": url})
}

// Callback is the OAuth redirect target. It is unauthenticated; the signed state identifies the user.
func (c *InstagramController) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		c.Logger.Info("instagram authorization denied", zap.String("reason", reason), zap.String("description", q.Get("error_description")))
		WriteError(w, http.StatusBadRequest, "instagram authorization was denied")
		return
	}

	stats, err := c.InstagramService.CompleteAuth(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Instagram account linked",
		"stats":   stats,
	})
}

// Account returns the caller's linked account
func (c *InstagramController) Account(w http.ResponseWriter, r *http.Request) {
	account, err := c.InstagramService.GetAccount(r.Context(), userID(r))
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, account)
}

// Sync refreshes the caller's stats. The body may carry the follower count.
func (c *InstagramController) Sync(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Followers *int `json:"followers,omitempty"`
	}
	if r.ContentLength != 0 {
		if err := decodeBody(r, &in); err != nil {
			respondError(c.Logger, w, r, err)
			return
		}
	}
	stats, err := c.InstagramService.SyncStats(r.Context(), userID(r), in.Followers)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, stats)
}

// Disconnect unlinks the caller's account
func (c *InstagramController) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := c.InstagramService.Disconnect(r.Context(), userID(r)); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Instagram account disconnected"})
}
