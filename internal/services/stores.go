package services

import (
	"context"

	"github.com/alimgiray/newsletter-manager/internal/models"
)

// The services depend on these narrow views of the repositories so they can
// be exercised without a database.

type CampaignStore interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	Update(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id int64) (*models.Campaign, error)
	Delete(ctx context.Context, id int64) error
	DeletePreviews(ctx context.Context) (int64, error)
	List(ctx context.Context, q models.ListQuery) ([]*models.Campaign, int, error)
	ListPreviews(ctx context.Context) ([]*models.Campaign, error)
}

type AddressStore interface {
	List(ctx context.Context, q models.ListQuery) ([]*models.Address, int, error)
	Create(ctx context.Context, address *models.Address) error
	GetByID(ctx context.Context, id int64) (*models.Address, error)
	Update(ctx context.Context, address *models.Address) error
	DeleteMany(ctx context.Context, ids []int64) (int, error)
	CountByLastMailing(ctx context.Context, campaignIDs []int64) (map[int64]int, error)
	ExistsInGroup(ctx context.Context, email string, groupID int64) (bool, error)
	DeleteManualByEmail(ctx context.Context, email string) (int64, error)
}

type SenderStore interface {
	List(ctx context.Context, q models.ListQuery) ([]*models.Sender, int, error)
	Create(ctx context.Context, sender *models.Sender) error
	GetByID(ctx context.Context, id int64) (*models.Sender, error)
	Update(ctx context.Context, sender *models.Sender) error
	DeleteMany(ctx context.Context, ids []int64) (int, error)
}

type GroupStore interface {
	List(ctx context.Context, q models.ListQuery) ([]*models.NewsletterGroup, int, error)
	Create(ctx context.Context, group *models.NewsletterGroup) error
	DeleteMany(ctx context.Context, ids []int64) (int, error)
	ListRecipientGroups(ctx context.Context, field, direction string) ([]models.RecipientGroup, error)
}

type RevenueSource interface {
	PartnerRevenue(ctx context.Context) (map[string]float64, error)
}
