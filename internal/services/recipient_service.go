package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alimgiray/newsletter-manager/internal/models"
)

type recipientInput struct {
	Email   string `mapstructure:"email"`
	GroupID int64  `mapstructure:"groupId"`
}

type RecipientService struct {
	addresses AddressStore
}

func NewRecipientService(addresses AddressStore) *RecipientService {
	return &RecipientService{
		addresses: addresses,
	}
}

// ListRecipients returns a page of addresses with their group name
func (s *RecipientService) ListRecipients(ctx context.Context, q models.ListQuery) ([]*models.Address, int, error) {
	return s.addresses.List(ctx, q)
}

// CreateRecipient adds a manually maintained address to a group
func (s *RecipientService) CreateRecipient(ctx context.Context, fields Fields) (*models.Address, error) {
	var in recipientInput
	if err := decodeFields(fields, &in); err != nil || strings.TrimSpace(in.Email) == "" || in.GroupID == 0 {
		return nil, &models.ValidationError{Message: "email and groupId needed"}
	}

	address := models.NewAddress(strings.TrimSpace(in.Email), in.GroupID)
	if err := s.addresses.Create(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to create recipient: %w", err)
	}

	return address, nil
}

// UpdateRecipient changes the email and group of an address
func (s *RecipientService) UpdateRecipient(ctx context.Context, fields Fields) (*models.Address, error) {
	id, err := optionalID(fields)
	var in recipientInput
	if decodeErr := decodeFields(fields, &in); err != nil || decodeErr != nil ||
		id == nil || *id == 0 || strings.TrimSpace(in.Email) == "" || in.GroupID == 0 {
		return nil, &models.ValidationError{Message: "Id, groupId and email needed"}
	}

	address, err := s.addresses.GetByID(ctx, *id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("recipient", *id, "Recipient not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}

	address.Email = strings.TrimSpace(in.Email)
	address.GroupID = in.GroupID

	err = s.addresses.Update(ctx, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("recipient", *id, "Recipient not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update recipient: %w", err)
	}

	return address, nil
}

// DeleteRecipients removes every resolvable address of the batch
func (s *RecipientService) DeleteRecipients(ctx context.Context, fields Fields) (int, error) {
	ids, err := idList(fields, "recipient", "id")
	if err != nil {
		return 0, err
	}
	deleted, err := s.addresses.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete recipients: %w", err)
	}
	return deleted, nil
}
