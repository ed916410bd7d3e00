package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alimgiray/newsletter-manager/internal/models"
)

type senderInput struct {
	Email string `mapstructure:"email"`
	Name  string `mapstructure:"name"`
}

type SenderService struct {
	senders SenderStore
}

func NewSenderService(senders SenderStore) *SenderService {
	return &SenderService{
		senders: senders,
	}
}

func (s *SenderService) ListSenders(ctx context.Context, q models.ListQuery) ([]*models.Sender, int, error) {
	return s.senders.List(ctx, q)
}

// CreateSender stores a new From identity
func (s *SenderService) CreateSender(ctx context.Context, fields Fields) (*models.Sender, error) {
	var in senderInput
	if err := decodeFields(fields, &in); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, &models.ValidationError{Field: "email", Message: "email needed"}
	}

	sender := &models.Sender{Email: strings.TrimSpace(in.Email), Name: in.Name}
	if err := s.senders.Create(ctx, sender); err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}

	return sender, nil
}

// UpdateSender overlays the given fields on a stored sender
func (s *SenderService) UpdateSender(ctx context.Context, fields Fields) (*models.Sender, error) {
	id, err := optionalID(fields)
	if err != nil {
		return nil, err
	}
	if id == nil || *id == 0 {
		return nil, &models.ValidationError{Field: "id", Message: "No ID passed"}
	}

	sender, err := s.senders.GetByID(ctx, *id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("sender", *id, "Sender not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}

	in := senderInput{Email: sender.Email, Name: sender.Name}
	if err := decodeFields(fields, &in); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}
	sender.Email = in.Email
	sender.Name = in.Name

	err = s.senders.Update(ctx, sender)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("sender", *id, "Sender not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update sender: %w", err)
	}

	return sender, nil
}

// DeleteSenders removes every resolvable sender of the batch in one commit
func (s *SenderService) DeleteSenders(ctx context.Context, fields Fields) (int, error) {
	ids, err := idList(fields, "sender", "id")
	if err != nil {
		return 0, err
	}
	deleted, err := s.senders.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete senders: %w", err)
	}
	return deleted, nil
}
