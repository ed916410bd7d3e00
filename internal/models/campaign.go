package models

import "time"

// CampaignStatusPreview marks transient campaigns created by the preview
// renderer. They are purged before every listing.
const CampaignStatusPreview = -1

type Campaign struct {
	ID            int64          `json:"id"`
	Subject       string         `json:"subject"`
	SenderMail    string         `json:"senderMail"`
	SenderName    string         `json:"senderName"`
	Plaintext     bool           `json:"plaintext"`
	Publish       bool           `json:"publish"`
	CustomerGroup string         `json:"customerGroup"`
	Groups        GroupSelection `json:"groups"`
	Status        int            `json:"status"`
	Locked        *time.Time     `json:"locked"`
	Recipients    int            `json:"recipients"`
	Read          int            `json:"read"`
	Clicked       int            `json:"clicked"`
	Date          time.Time      `json:"date"`
	Containers    []Container    `json:"containers"`
}

// Container is one content block of a campaign. It always owns exactly one
// text.
type Container struct {
	ID          int64         `json:"id"`
	CampaignID  int64         `json:"newsletterId"`
	Type        string        `json:"type"`
	Description string        `json:"description"`
	Value       string        `json:"value"`
	Position    int           `json:"position"`
	Text        ContainerText `json:"text"`
}

type ContainerText struct {
	ID          int64  `json:"id" mapstructure:"id"`
	ContainerID int64  `json:"containerId" mapstructure:"-"`
	Headline    string `json:"headline" mapstructure:"headline"`
	Content     string `json:"content" mapstructure:"content"`
	Image       string `json:"image" mapstructure:"image"`
	Link        string `json:"link" mapstructure:"link"`
	Alignment   string `json:"alignment" mapstructure:"alignment"`
}

// CampaignListItem is a campaign enriched with listing aggregates
type CampaignListItem struct {
	Campaign
	Addresses int      `json:"addresses"`
	Revenue   *float64 `json:"revenue,omitempty"`
}

// PartnerKey is the referral partner identifier orders carry when they were
// placed from a campaign link.
func (c *Campaign) PartnerKey() string {
	return "sCampaign" + itoa(c.ID)
}
