package models

import (
	"strconv"
	"time"
)

// Address is one newsletter recipient
type Address struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	GroupID     int64     `json:"groupId"`
	GroupName   string    `json:"groupName,omitempty"`
	IsCustomer  bool      `json:"isCustomer"`
	LastMailing int64     `json:"lastMailing"`
	LastRead    int64     `json:"lastRead"`
	Added       time.Time `json:"added"`
}

func NewAddress(email string, groupID int64) *Address {
	return &Address{
		Email:      email,
		GroupID:    groupID,
		IsCustomer: false,
		Added:      time.Now(),
	}
}

// Sender is a From identity used for mailings
type Sender struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewsletterGroup is a manually maintained recipient group
type NewsletterGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
