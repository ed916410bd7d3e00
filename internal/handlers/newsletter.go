package handlers

import (
	"github.com/alimgiray/newsletter-manager/internal/services"
	"github.com/gin-gonic/gin"
)

type NewsletterHandler struct {
	campaignService *services.CampaignService
}

func NewNewsletterHandler(campaignService *services.CampaignService) *NewsletterHandler {
	return &NewsletterHandler{
		campaignService: campaignService,
	}
}

// ListNewsletters returns a page of campaigns with their address counts and
// revenue
func (h *NewsletterHandler) ListNewsletters(c *gin.Context) {
	items, total, err := h.campaignService.ListCampaigns(c.Request.Context(), listQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondList(c, items, total)
}

// ListPreviews returns the campaigns created by the preview renderer
func (h *NewsletterHandler) ListPreviews(c *gin.Context) {
	previews, err := h.campaignService.ListPreviews(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondList(c, previews, len(previews))
}

func (h *NewsletterHandler) CreateNewsletter(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	campaign, err := h.campaignService.CreateCampaign(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, gin.H{"id": campaign.ID})
}

func (h *NewsletterHandler) UpdateNewsletter(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	campaign, err := h.campaignService.UpdateCampaign(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, campaign)
}

func (h *NewsletterHandler) DeleteNewsletter(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.campaignService.DeleteCampaign(c.Request.Context(), fields); err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c)
}
