package handlers

import (
	"github.com/alimgiray/newsletter-manager/internal/services"
	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	groupService *services.GroupService
}

func NewGroupHandler(groupService *services.GroupService) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
	}
}

// ListNewsletterGroups returns a page of manual groups
func (h *GroupHandler) ListNewsletterGroups(c *gin.Context) {
	groups, total, err := h.groupService.ListNewsletterGroups(c.Request.Context(), listQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondList(c, groups, total)
}

// ListGroups returns manual and customer groups with member counts
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groupService.ListRecipientGroups(c.Request.Context(), listQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondList(c, groups, len(groups))
}

func (h *GroupHandler) CreateNewsletterGroup(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	group, err := h.groupService.CreateGroup(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, group)
}

func (h *GroupHandler) DeleteRecipientGroups(c *gin.Context) {
	fields, err := requestFields(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.groupService.DeleteGroups(c.Request.Context(), fields); err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c)
}
