package handlers

import (
	"github.com/alimgiray/newsletter-manager/internal/services"
	"github.com/gin-gonic/gin"
)

type SenderHandler struct {
	senderService *services.SenderService
}

func NewSenderHandler(senderService *services.SenderService) *SenderHandler {
	return &SenderHandler{
		senderService: senderService,
	}
}

func (h *SenderHandler) ListSenders(c *gin.Context) {
	senders, total, err := h.senderService.ListSenders(c.Request.Context(), listQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondList(c, senders, total)
}

func (h *SenderHandler) CreateSender(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	sender, err := h.senderService.CreateSender(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, sender)
}

func (h *SenderHandler) UpdateSender(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	sender, err := h.senderService.UpdateSender(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, sender)
}

func (h *SenderHandler) DeleteSenders(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.senderService.DeleteSenders(c.Request.Context(), fields); err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c)
}
