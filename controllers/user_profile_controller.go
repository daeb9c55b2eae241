package controllers

import (
	"net/http"

	"brandmatch_server/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// UserProfileController handles requests related to user profiles
type UserProfileController struct {
	UserProfileService *services.UserProfileService
	Logger             *zap.Logger
}

// NewUserProfileController creates a new instance of UserProfileController
func NewUserProfileController(userProfileService *services.UserProfileService, logger *zap.Logger) *UserProfileController {
	return &UserProfileController{UserProfileService: userProfileService, Logger: logger}
}

// GetMyProfile returns the caller's profile
func (c *UserProfileController) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := c.UserProfileService.GetUserProfile(r.Context(), userID(r))
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, profile)
}

// GetUserProfileByID handles fetching a user profile by ID
func (c *UserProfileController) GetUserProfileByID(w http.ResponseWriter, r *http.Request) {
	profile, err := c.UserProfileService.GetUserProfile(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, profile)
}

// UpdateMyProfile applies a partial update to the caller's profile
func (c *UserProfileController) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	var update services.ProfileUpdate
	if err := decodeBody(r, &update); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	profile, err := c.UserProfileService.UpdateUserProfile(r.Context(), userID(r), update)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully",
		"profile": profile,
	})
}

// SaveInstagramHandle links an Instagram handle to the caller's profile
func (c *UserProfileController) SaveInstagramHandle(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Handle string `json:"handle"`
	}
	if err := decodeBody(r, &in); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	profile, err := c.UserProfileService.SaveInstagramHandle(r.Context(), userID(r), in.Handle)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, profile)
}

// DeleteMyProfile deletes the caller's account
func (c *UserProfileController) DeleteMyProfile(w http.ResponseWriter, r *http.Request) {
	if err := c.UserProfileService.DeleteUserProfile(r.Context(), userID(r)); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Profile deleted successfully"})
}
