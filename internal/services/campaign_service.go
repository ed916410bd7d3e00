package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alimgiray/newsletter-manager/internal/cache"
	"github.com/alimgiray/newsletter-manager/internal/models"
	"github.com/alimgiray/newsletter-manager/pkg/logger"
	"github.com/alimgiray/newsletter-manager/pkg/metrics"
)

// campaignInput is the writable part of a campaign as sent by the admin UI
type campaignInput struct {
	Subject       string                  `mapstructure:"subject"`
	SenderMail    string                  `mapstructure:"senderMail"`
	SenderName    string                  `mapstructure:"senderName"`
	Plaintext     bool                    `mapstructure:"plaintext"`
	Publish       bool                    `mapstructure:"publish"`
	CustomerGroup string                  `mapstructure:"customerGroup"`
	Status        int                     `mapstructure:"status"`
	Recipients    int                     `mapstructure:"recipients"`
	Read          int                     `mapstructure:"read"`
	Clicked       int                     `mapstructure:"clicked"`
	Groups        []models.RecipientGroup `mapstructure:"groups"`
	Containers    []containerInput        `mapstructure:"containers"`
}

// containerInput carries the text as a list because the UI store nests it
// that way; only the first element is used
type containerInput struct {
	Type        string                 `mapstructure:"type"`
	Description string                 `mapstructure:"description"`
	Value       string                 `mapstructure:"value"`
	Position    int                    `mapstructure:"position"`
	Text        []models.ContainerText `mapstructure:"text"`
}

func inputFromCampaign(c *models.Campaign) campaignInput {
	in := campaignInput{
		Subject:       c.Subject,
		SenderMail:    c.SenderMail,
		SenderName:    c.SenderName,
		Plaintext:     c.Plaintext,
		Publish:       c.Publish,
		CustomerGroup: c.CustomerGroup,
		Status:        c.Status,
		Recipients:    c.Recipients,
		Read:          c.Read,
		Clicked:       c.Clicked,
		Groups:        c.Groups.Flatten(),
	}
	for _, container := range c.Containers {
		in.Containers = append(in.Containers, containerInput{
			Type:        container.Type,
			Description: container.Description,
			Value:       container.Value,
			Position:    container.Position,
			Text:        []models.ContainerText{container.Text},
		})
	}
	return in
}

func (in campaignInput) apply(c *models.Campaign) {
	c.Subject = in.Subject
	c.SenderMail = in.SenderMail
	c.SenderName = in.SenderName
	c.Plaintext = in.Plaintext
	c.Publish = in.Publish
	c.CustomerGroup = in.CustomerGroup
	c.Status = in.Status
	c.Recipients = in.Recipients
	c.Read = in.Read
	c.Clicked = in.Clicked
	c.Groups = models.NewGroupSelection(in.Groups)

	c.Containers = make([]models.Container, 0, len(in.Containers))
	for _, ci := range in.Containers {
		container := models.Container{
			Type:        ci.Type,
			Description: ci.Description,
			Value:       ci.Value,
			Position:    ci.Position,
		}
		if len(ci.Text) > 0 {
			container.Text = ci.Text[0]
			container.Text.ID = 0
		}
		c.Containers = append(c.Containers, container)
	}
}

type CampaignService struct {
	campaigns CampaignStore
	addresses AddressStore
	orders    RevenueSource
	revenue   *cache.RevenueCache
}

func NewCampaignService(campaigns CampaignStore, addresses AddressStore, orders RevenueSource, revenue *cache.RevenueCache) *CampaignService {
	return &CampaignService{
		campaigns: campaigns,
		addresses: addresses,
		orders:    orders,
		revenue:   revenue,
	}
}

// ListCampaigns purges preview campaigns, then returns the requested page
// enriched with the address count and, when known, the revenue of each
// campaign
func (s *CampaignService) ListCampaigns(ctx context.Context, q models.ListQuery) ([]models.CampaignListItem, int, error) {
	purged, err := s.campaigns.DeletePreviews(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to purge preview campaigns: %w", err)
	}
	if purged > 0 {
		metrics.PreviewsPurged.Add(float64(purged))
		logger.FromContext(ctx).WithField("count", purged).Info("Purged preview campaigns")
	}

	revenues, err := s.revenue.PartnerRevenue(ctx, s.orders.PartnerRevenue)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load partner revenue: %w", err)
	}

	campaigns, total, err := s.campaigns.List(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}

	ids := make([]int64, len(campaigns))
	for i, c := range campaigns {
		ids[i] = c.ID
	}
	counts, err := s.addresses.CountByLastMailing(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count campaign addresses: %w", err)
	}

	items := make([]models.CampaignListItem, len(campaigns))
	for i, c := range campaigns {
		items[i] = models.CampaignListItem{
			Campaign:  *c,
			Addresses: counts[c.ID],
		}
		if revenue, ok := revenues[c.PartnerKey()]; ok {
			r := revenue
			items[i].Revenue = &r
		}
	}

	return items, total, nil
}

// ListPreviews returns the campaigns currently in preview state
func (s *CampaignService) ListPreviews(ctx context.Context) ([]*models.Campaign, error) {
	return s.campaigns.ListPreviews(ctx)
}

// CreateCampaign stores a new campaign dated now
func (s *CampaignService) CreateCampaign(ctx context.Context, fields Fields) (*models.Campaign, error) {
	in := campaignInput{Publish: true}
	if err := decodeFields(fields, &in); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}

	campaign := &models.Campaign{}
	in.apply(campaign)
	campaign.Date = time.Now()

	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	return campaign, nil
}

// UpdateCampaign overlays the given fields on the stored campaign. Its
// creation date and lock are kept and the containers are replaced.
func (s *CampaignService) UpdateCampaign(ctx context.Context, fields Fields) (*models.Campaign, error) {
	id, err := optionalID(fields)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, &models.ValidationError{Field: "id", Message: "no id passed"}
	}

	campaign, err := s.campaigns.GetByID(ctx, *id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("newsletter", *id, "newsletter not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	in := inputFromCampaign(campaign)
	if _, ok := fields["containers"]; ok {
		in.Containers = nil
	}
	if _, ok := fields["groups"]; ok {
		in.Groups = nil
	}
	if err := decodeFields(fields, &in); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}
	in.apply(campaign)

	err = s.campaigns.Update(ctx, campaign)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("newsletter", *id, "newsletter not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}

	return campaign, nil
}

// DeleteCampaign removes a campaign with its containers
func (s *CampaignService) DeleteCampaign(ctx context.Context, fields Fields) error {
	id, err := optionalID(fields)
	if err != nil {
		return err
	}
	if id == nil {
		return &models.ValidationError{Field: "id", Message: "No ID passed"}
	}

	err = s.campaigns.Delete(ctx, *id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewNotFound("newsletter", *id, "Newsletter not found")
	}
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	return nil
}
