package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/alimgiray/newsletter-manager/internal/models"
	"github.com/alimgiray/newsletter-manager/pkg/logger"
)

type subscriptionInput struct {
	Email     string `mapstructure:"email"`
	Subscribe bool   `mapstructure:"subscribe"`
}

// SubscriptionService handles storefront newsletter sign-ups
type SubscriptionService struct {
	addresses      AddressStore
	defaultGroupID int64
}

func NewSubscriptionService(addresses AddressStore, defaultGroupID int64) *SubscriptionService {
	return &SubscriptionService{
		addresses:      addresses,
		defaultGroupID: defaultGroupID,
	}
}

// Subscribe adds email to the default group. Subscribing twice is a no-op;
// the second return value reports whether an address was created.
func (s *SubscriptionService) Subscribe(ctx context.Context, fields Fields) (bool, error) {
	email, err := subscriberEmail(fields)
	if err != nil {
		return false, err
	}
	return s.subscribe(ctx, email)
}

// Unsubscribe removes the manually added addresses of email
func (s *SubscriptionService) Unsubscribe(ctx context.Context, fields Fields) (int64, error) {
	email, err := subscriberEmail(fields)
	if err != nil {
		return 0, err
	}
	return s.unsubscribe(ctx, email)
}

// SetSubscription is the account page toggle
func (s *SubscriptionService) SetSubscription(ctx context.Context, fields Fields) (bool, error) {
	var in subscriptionInput
	if err := decodeFields(fields, &in); err != nil {
		return false, &models.ValidationError{Message: err.Error()}
	}
	email, err := subscriberEmail(Fields{"email": in.Email})
	if err != nil {
		return false, err
	}

	if in.Subscribe {
		if _, err := s.subscribe(ctx, email); err != nil {
			return false, err
		}
		return true, nil
	}

	if _, err := s.unsubscribe(ctx, email); err != nil {
		return false, err
	}
	return false, nil
}

func (s *SubscriptionService) subscribe(ctx context.Context, email string) (bool, error) {
	exists, err := s.addresses.ExistsInGroup(ctx, email, s.defaultGroupID)
	if err != nil {
		return false, fmt.Errorf("failed to look up subscription: %w", err)
	}
	if exists {
		return false, nil
	}

	if err := s.addresses.Create(ctx, models.NewAddress(email, s.defaultGroupID)); err != nil {
		return false, fmt.Errorf("failed to add subscription: %w", err)
	}

	logger.FromContext(ctx).WithField("group_id", s.defaultGroupID).Info("Newsletter subscription added")
	return true, nil
}

func (s *SubscriptionService) unsubscribe(ctx context.Context, email string) (int64, error) {
	removed, err := s.addresses.DeleteManualByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("failed to remove subscription: %w", err)
	}

	if removed > 0 {
		logger.FromContext(ctx).WithField("count", removed).Info("Newsletter subscription removed")
	}
	return removed, nil
}

func subscriberEmail(fields Fields) (string, error) {
	var in subscriptionInput
	_ = decodeFields(fields, &in)

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return "", &models.ValidationError{Field: "email", Message: "email needed"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", &models.ValidationError{Field: "email", Message: "invalid email"}
	}
	return email, nil
}
