package controllers

import (
	"net/http"

	"brandmatch_server/services"

	"go.uber.org/zap"
)

// MediaController hands out presigned S3 URLs
type MediaController struct {
	MediaService *services.MediaService
	Logger       *zap.Logger
}

// NewMediaController creates a new instance of MediaController
func NewMediaController(mediaService *services.MediaService, logger *zap.Logger) *MediaController {
	return &MediaController{MediaService: mediaService, Logger: logger}
}

// GeneratePresignedURL handles POST /api/media/upload-url
func (c *MediaController) GeneratePresignedURL(w http.ResponseWriter, r *http.Request) {
	var payload services.UploadInput
	if err := decodeBody(r, &payload); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	upload, err := c.MediaService.GenerateUploadURL(r.Context(), userID(r), payload)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, upload)
}

// GetPresignedReadURL handles POST /api/media/read-url
func (c *MediaController) GetPresignedReadURL(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Key string `json:"key"`
	}
	if err := decodeBody(r, &payload); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	url, err := c.MediaService.GenerateReadURL(r.Context(), userID(r), payload.Key)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"url": url})
}
