package controllers

import (
	"net/http"

	"brandmatch_server/models"
	"brandmatch_server/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CampaignController handles campaign CRUD
type CampaignController struct {
	CampaignService *services.CampaignService
	Logger          *zap.Logger
}

// NewCampaignController creates a new instance of CampaignController
func NewCampaignController(campaignService *services.CampaignService, logger *zap.Logger) *CampaignController {
	return &CampaignController{CampaignService: campaignService, Logger: logger}
}

// Create creates a campaign owned by the caller
func (c *CampaignController) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CampaignInput
	if err := decodeBody(r, &in); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	campaign, err := c.CampaignService.CreateCampaign(r.Context(), userID(r), in)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, campaign)
}

// Get returns a campaign by ID
func (c *CampaignController) Get(w http.ResponseWriter, r *http.Request) {
	campaign, err := c.CampaignService.GetCampaign(r.Context(), mux.Vars(r)["campaignId"])
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, campaign)
}

// Update replaces the editable fields of the caller's campaign
func (c *CampaignController) Update(w http.ResponseWriter, r *http.Request) {
	var in services.CampaignInput
	if err := decodeBody(r, &in); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	campaign, err := c.CampaignService.UpdateCampaign(r.Context(), userID(r), mux.Vars(r)["campaignId"], in)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, campaign)
}

// SetStatus activates, pauses or completes the caller's campaign
func (c *CampaignController) SetStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &in); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	campaign, err := c.CampaignService.SetCampaignStatus(r.Context(), userID(r), mux.Vars(r)["campaignId"], in.Status)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, campaign)
}

// ListMine lists the caller's campaigns
func (c *CampaignController) ListMine(w http.ResponseWriter, r *http.Request) {
	c.list(w, r, userID(r))
}

// ListByCompany lists a company's campaigns
func (c *CampaignController) ListByCompany(w http.ResponseWriter, r *http.Request) {
	c.list(w, r, mux.Vars(r)["companyId"])
}

func (c *CampaignController) list(w http.ResponseWriter, r *http.Request, companyID string) {
	campaigns, err := c.CampaignService.ListCompanyCampaigns(r.Context(), companyID)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}
	WriteJSONResponse(w, http.StatusOK, campaigns)
}
