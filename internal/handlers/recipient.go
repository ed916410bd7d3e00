package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/alimgiray/newsletter-manager/internal/services"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RecipientHandler struct {
	recipientService *services.RecipientService
	exportService    *services.RecipientExportService
}

func NewRecipientHandler(recipientService *services.RecipientService, exportService *services.RecipientExportService) *RecipientHandler {
	return &RecipientHandler{
		recipientService: recipientService,
		exportService:    exportService,
	}
}

func (h *RecipientHandler) ListRecipients(c *gin.Context) {
	addresses, total, err := h.recipientService.ListRecipients(c.Request.Context(), listQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondList(c, addresses, total)
}

// ExportRecipients streams the filtered recipients as an XLSX download
func (h *RecipientHandler) ExportRecipients(c *gin.Context) {
	var buf bytes.Buffer
	if _, err := h.exportService.ExportRecipients(c.Request.Context(), listQuery(c), &buf); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("recipients-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *RecipientHandler) CreateRecipient(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	address, err := h.recipientService.CreateRecipient(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, address)
}

func (h *RecipientHandler) UpdateRecipient(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	address, err := h.recipientService.UpdateRecipient(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, address)
}

func (h *RecipientHandler) DeleteRecipients(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.recipientService.DeleteRecipients(c.Request.Context(), fields); err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c)
}
