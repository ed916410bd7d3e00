package handlers

import (
	"github.com/alimgiray/newsletter-manager/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// aclResource is the resource every admin endpoint is checked against
const aclResource = "newsletter_manager"

type Handlers struct {
	Auth         *AuthHandler
	Health       *HealthHandler
	NotFound     *NotFoundHandler
	Newsletter   *NewsletterHandler
	Recipient    *RecipientHandler
	Sender       *SenderHandler
	Group        *GroupHandler
	Subscription *SubscriptionHandler
}

// RegisterRoutes mounts the admin API under /backend and the storefront
// newsletter forms at the root
func RegisterRoutes(router *gin.Engine, h Handlers, acl middleware.ACL) {
	read := middleware.RequirePrivilege(acl, aclResource, middleware.PrivilegeRead)
	write := middleware.RequirePrivilege(acl, aclResource, middleware.PrivilegeWrite)
	remove := middleware.RequirePrivilege(acl, aclResource, middleware.PrivilegeDelete)

	router.GET("/health", h.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.NoRoute(h.NotFound.NotFound)

	// Storefront forms, sanitized by the input filter
	router.POST("/newsletter", h.Subscription.Subscribe)
	router.POST("/newsletter/unsubscribe", h.Subscription.Unsubscribe)
	router.POST("/account/newsletter", h.Subscription.AccountNewsletter)

	backend := router.Group("/backend")
	backend.Use(middleware.SessionMiddleware())
	{
		backend.GET("/session", h.Auth.Session)
		backend.POST("/logout", h.Auth.Logout)
	}

	admin := backend.Group("/newsletter-manager")
	admin.Use(middleware.AuthRequired())
	{
		admin.GET("/newsletters", read, h.Newsletter.ListNewsletters)
		admin.GET("/newsletters/previews", read, h.Newsletter.ListPreviews)
		admin.POST("/newsletters", write, h.Newsletter.CreateNewsletter)
		admin.PUT("/newsletters/:id", write, h.Newsletter.UpdateNewsletter)
		admin.DELETE("/newsletters/:id", remove, h.Newsletter.DeleteNewsletter)

		admin.GET("/recipients", read, h.Recipient.ListRecipients)
		admin.GET("/recipients/export", read, h.Recipient.ExportRecipients)
		admin.POST("/recipients", write, h.Recipient.CreateRecipient)
		admin.PUT("/recipients/:id", write, h.Recipient.UpdateRecipient)
		admin.DELETE("/recipients", remove, h.Recipient.DeleteRecipients)
		admin.DELETE("/recipients/:id", remove, h.Recipient.DeleteRecipients)

		admin.GET("/senders", read, h.Sender.ListSenders)
		admin.POST("/senders", write, h.Sender.CreateSender)
		admin.PUT("/senders/:id", write, h.Sender.UpdateSender)
		admin.DELETE("/senders", remove, h.Sender.DeleteSenders)
		admin.DELETE("/senders/:id", remove, h.Sender.DeleteSenders)

		admin.GET("/newsletter-groups", read, h.Group.ListNewsletterGroups)
		admin.POST("/newsletter-groups", write, h.Group.CreateNewsletterGroup)
		admin.GET("/groups", read, h.Group.ListGroups)
		admin.DELETE("/recipient-groups", remove, h.Group.DeleteRecipientGroups)
		admin.DELETE("/recipient-groups/:internalId", remove, h.Group.DeleteRecipientGroups)
	}
}
