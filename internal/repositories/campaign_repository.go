package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/alimgiray/newsletter-manager/internal/models"
	"github.com/alimgiray/newsletter-manager/pkg/database"
)

var campaignColumns = listColumns{
	"id":            "id",
	"subject":       "subject",
	"senderMail":    "sender_mail",
	"senderName":    "sender_name",
	"customerGroup": "customer_group",
	"status":        "status",
	"recipients":    "recipients",
	"read":          "read_count",
	"clicked":       "clicked",
	"date":          "date",
	"mailing.date":  "date",
}

const campaignSelect = `
	SELECT id, subject, sender_mail, sender_name, plaintext, publish, customer_group,
		group_selection, status, locked, recipients, read_count, clicked, date
	FROM newsletter_campaigns
`

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create inserts the campaign with its containers and texts in one
// transaction and sets all generated IDs
func (r *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	query := `
		INSERT INTO newsletter_campaigns (
			subject, sender_mail, sender_name, plaintext, publish, customer_group,
			group_selection, status, locked, recipients, read_count, clicked, date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			campaign.Subject, campaign.SenderMail, campaign.SenderName, campaign.Plaintext,
			campaign.Publish, campaign.CustomerGroup, campaign.Groups, campaign.Status,
			lockedValue(campaign.Locked), campaign.Recipients, campaign.Read, campaign.Clicked, campaign.Date,
		)
		if err != nil {
			return err
		}

		campaign.ID, err = result.LastInsertId()
		if err != nil {
			return err
		}

		return insertContainers(ctx, tx, campaign)
	})
}

// Update stores the editable fields and replaces all containers. The creation
// date and the lock timestamp are never written here.
func (r *CampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	query := `
		UPDATE newsletter_campaigns
		SET subject = ?, sender_mail = ?, sender_name = ?, plaintext = ?, publish = ?,
			customer_group = ?, group_selection = ?, status = ?, recipients = ?,
			read_count = ?, clicked = ?
		WHERE id = ?
	`

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			campaign.Subject, campaign.SenderMail, campaign.SenderName, campaign.Plaintext,
			campaign.Publish, campaign.CustomerGroup, campaign.Groups, campaign.Status,
			campaign.Recipients, campaign.Read, campaign.Clicked, campaign.ID,
		)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return sql.ErrNoRows
		}

		// texts go with their containers through ON DELETE CASCADE
		if _, err := tx.ExecContext(ctx, `DELETE FROM newsletter_containers WHERE campaign_id = ?`, campaign.ID); err != nil {
			return err
		}

		return insertContainers(ctx, tx, campaign)
	})
}

// GetByID retrieves a campaign with its containers
func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	campaign, err := scanCampaign(r.db.QueryRowContext(ctx, campaignSelect+" WHERE id = ?", id))
	if err != nil {
		return nil, err
	}

	containers, err := r.loadContainers(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	campaign.Containers = containers[id]

	return campaign, nil
}

// Delete removes a campaign together with its containers
func (r *CampaignRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM newsletter_campaigns WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// DeletePreviews removes every preview campaign and commits before returning
func (r *CampaignRepository) DeletePreviews(ctx context.Context) (int64, error) {
	var deleted int64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM newsletter_campaigns WHERE status = ?`, models.CampaignStatusPreview)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

// List returns a page of campaigns with containers and the filtered total.
// Without a usable sorter the newest campaigns come first.
func (r *CampaignRepository) List(ctx context.Context, q models.ListQuery) ([]*models.Campaign, int, error) {
	where, args := whereClause(q.Filters, campaignColumns)

	var total int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM newsletter_campaigns"+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	limit, limitArgs := limitClause(q)
	query := campaignSelect + where + orderClause(q, campaignColumns, "date DESC") + limit

	campaigns, err := r.queryCampaigns(ctx, query, append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ListPreviews returns all preview campaigns with their containers
func (r *CampaignRepository) ListPreviews(ctx context.Context) ([]*models.Campaign, error) {
	return r.queryCampaigns(ctx, campaignSelect+" WHERE status = ? ORDER BY id", models.CampaignStatusPreview)
}

func (r *CampaignRepository) queryCampaigns(ctx context.Context, query string, args ...interface{}) ([]*models.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*models.Campaign{}
	var ids []int64
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
		ids = append(ids, campaign.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	containers, err := r.loadContainers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, campaign := range campaigns {
		campaign.Containers = containers[campaign.ID]
	}

	return campaigns, nil
}

// loadContainers fetches the containers of the given campaigns keyed by
// campaign id. Every campaign gets a non-nil slice.
func (r *CampaignRepository) loadContainers(ctx context.Context, campaignIDs []int64) (map[int64][]models.Container, error) {
	byCampaign := make(map[int64][]models.Container, len(campaignIDs))
	for _, id := range campaignIDs {
		byCampaign[id] = []models.Container{}
	}
	if len(campaignIDs) == 0 {
		return byCampaign, nil
	}

	query := `
		SELECT c.id, c.campaign_id, c.type, c.description, c.value, c.position,
			COALESCE(t.id, 0), COALESCE(t.headline, ''), COALESCE(t.content, ''),
			COALESCE(t.image, ''), COALESCE(t.link, ''), COALESCE(t.alignment, '')
		FROM newsletter_containers c
		LEFT JOIN newsletter_container_texts t ON t.container_id = c.id
		WHERE c.campaign_id IN (` + placeholders(len(campaignIDs)) + `)
		ORDER BY c.campaign_id, c.position, c.id
	`

	rows, err := r.db.QueryContext(ctx, query, int64Args(campaignIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Container
		err := rows.Scan(
			&c.ID, &c.CampaignID, &c.Type, &c.Description, &c.Value, &c.Position,
			&c.Text.ID, &c.Text.Headline, &c.Text.Content,
			&c.Text.Image, &c.Text.Link, &c.Text.Alignment,
		)
		if err != nil {
			return nil, err
		}
		c.Text.ContainerID = c.ID
		byCampaign[c.CampaignID] = append(byCampaign[c.CampaignID], c)
	}

	return byCampaign, rows.Err()
}

// insertContainers writes every container of campaign with its single text
func insertContainers(ctx context.Context, tx *sql.Tx, campaign *models.Campaign) error {
	for i := range campaign.Containers {
		container := &campaign.Containers[i]
		container.CampaignID = campaign.ID

		result, err := tx.ExecContext(ctx, `
			INSERT INTO newsletter_containers (campaign_id, type, description, value, position)
			VALUES (?, ?, ?, ?, ?)
		`, container.CampaignID, container.Type, container.Description, container.Value, container.Position)
		if err != nil {
			return err
		}
		if container.ID, err = result.LastInsertId(); err != nil {
			return err
		}

		text := &container.Text
		text.ContainerID = container.ID
		result, err = tx.ExecContext(ctx, `
			INSERT INTO newsletter_container_texts (container_id, headline, content, image, link, alignment)
			VALUES (?, ?, ?, ?, ?, ?)
		`, text.ContainerID, text.Headline, text.Content, text.Image, text.Link, text.Alignment)
		if err != nil {
			return err
		}
		if text.ID, err = result.LastInsertId(); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	campaign := &models.Campaign{}
	var locked sql.NullTime
	err := row.Scan(
		&campaign.ID, &campaign.Subject, &campaign.SenderMail, &campaign.SenderName,
		&campaign.Plaintext, &campaign.Publish, &campaign.CustomerGroup, &campaign.Groups,
		&campaign.Status, &locked, &campaign.Recipients, &campaign.Read, &campaign.Clicked,
		&campaign.Date,
	)
	if err != nil {
		return nil, err
	}
	if locked.Valid {
		t := locked.Time
		campaign.Locked = &t
	}
	return campaign, nil
}

// lockedValue keeps a nil lock as SQL NULL
func lockedValue(locked *time.Time) interface{} {
	if locked == nil {
		return nil
	}
	return *locked
}
