package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/alimgiray/newsletter-manager/internal/models"
)

type groupInput struct {
	Name string `mapstructure:"name"`
}

type GroupService struct {
	groups GroupStore
}

func NewGroupService(groups GroupStore) *GroupService {
	return &GroupService{
		groups: groups,
	}
}

// ListNewsletterGroups returns a page of manual groups
func (s *GroupService) ListNewsletterGroups(ctx context.Context, q models.ListQuery) ([]*models.NewsletterGroup, int, error) {
	return s.groups.List(ctx, q)
}

// ListRecipientGroups returns manual and customer groups with their member
// counts. Only the last sorter is honoured and the result is not paginated.
func (s *GroupService) ListRecipientGroups(ctx context.Context, q models.ListQuery) ([]models.RecipientGroup, error) {
	var field, direction string
	if sort, ok := q.LastSort(); ok {
		field, direction = sort.Property, sort.Direction
	}

	groups, err := s.groups.ListRecipientGroups(ctx, field, direction)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipient groups: %w", err)
	}
	if groups == nil {
		groups = []models.RecipientGroup{}
	}

	return groups, nil
}

func (s *GroupService) CreateGroup(ctx context.Context, fields Fields) (*models.NewsletterGroup, error) {
	var in groupInput
	if err := decodeFields(fields, &in); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, &models.ValidationError{Field: "name", Message: "name needed"}
	}

	group := &models.NewsletterGroup{Name: strings.TrimSpace(in.Name)}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return group, nil
}

// DeleteGroups removes manual groups. Their addresses are kept.
func (s *GroupService) DeleteGroups(ctx context.Context, fields Fields) (int, error) {
	ids, err := idList(fields, "recipientGroup", "internalId")
	if err != nil {
		return 0, err
	}
	deleted, err := s.groups.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete groups: %w", err)
	}
	return deleted, nil
}
