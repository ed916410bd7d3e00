package handlers

import (
	"github.com/alimgiray/newsletter-manager/internal/services"
	"github.com/gin-gonic/gin"
)

// SubscriptionHandler serves the storefront newsletter forms
type SubscriptionHandler struct {
	subscriptionService *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	created, err := h.subscriptionService.Subscribe(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, gin.H{"created": created})
}

func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	removed, err := h.subscriptionService.Unsubscribe(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, gin.H{"removed": removed})
}

// AccountNewsletter toggles the subscription from the customer account page
func (h *SubscriptionHandler) AccountNewsletter(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	subscribed, err := h.subscriptionService.SetSubscription(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, gin.H{"subscribed": subscribed})
}
