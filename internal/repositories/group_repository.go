package repositories

import (
	"context"
	"database/sql"

	"github.com/alimgiray/newsletter-manager/internal/models"
)

var newsletterGroupColumns = listColumns{
	"id":   "id",
	"name": "name",
}

// recipientGroupOrder maps the sortable fields of the combined group listing
var recipientGroupOrder = map[string]string{
	"name":       "name",
	"number":     "number",
	"internalId": "internal_id",
}

type GroupRepository struct {
	db *sql.DB
}

func NewGroupRepository(db *sql.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// List returns a page of manual newsletter groups and the filtered total
func (r *GroupRepository) List(ctx context.Context, q models.ListQuery) ([]*models.NewsletterGroup, int, error) {
	where, args := whereClause(q.Filters, newsletterGroupColumns)

	var total int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM newsletter_groups"+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	limit, limitArgs := limitClause(q)
	query := "SELECT id, name FROM newsletter_groups" + where +
		orderClause(q, newsletterGroupColumns, "id ASC") + limit

	rows, err := r.db.QueryContext(ctx, query, append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	groups := []*models.NewsletterGroup{}
	for rows.Next() {
		group := &models.NewsletterGroup{}
		if err := rows.Scan(&group.ID, &group.Name); err != nil {
			return nil, 0, err
		}
		groups = append(groups, group)
	}

	return groups, total, rows.Err()
}

// Create inserts a manual group and sets its ID
func (r *GroupRepository) Create(ctx context.Context, group *models.NewsletterGroup) error {
	result, err := r.db.ExecContext(ctx, `INSERT INTO newsletter_groups (name) VALUES (?)`, group.Name)
	if err != nil {
		return err
	}

	group.ID, err = result.LastInsertId()
	return err
}

// DeleteMany removes the manual groups that exist among ids
func (r *GroupRepository) DeleteMany(ctx context.Context, ids []int64) (int, error) {
	return deleteByIDs(ctx, r.db, "newsletter_groups", ids)
}

// ListRecipientGroups returns manual groups with their manually added member
// count, manual groups without any address, and customer groups with their
// customer-derived member count. field must be one of name, number or
// internalId and direction ASC or DESC; anything else sorts by name DESC.
func (r *GroupRepository) ListRecipientGroups(ctx context.Context, field, direction string) ([]models.RecipientGroup, error) {
	column, ok := recipientGroupOrder[field]
	if !ok || (direction != models.SortASC && direction != models.SortDESC) {
		column, direction = "name", models.SortDESC
	}

	query := `
		SELECT internal_id, number, name, group_key, is_customer_group FROM (
			SELECT g.id AS internal_id, COUNT(a.group_id) AS number, g.name AS name,
				NULL AS group_key, 0 AS is_customer_group
			FROM newsletter_addresses a
			JOIN newsletter_groups g ON a.group_id = g.id
			WHERE a.customer = 0
			GROUP BY a.group_id
			UNION
			SELECT g.id, 0, g.name, NULL, 0
			FROM newsletter_groups g
			WHERE NOT EXISTS (
				SELECT 1 FROM newsletter_addresses a WHERE a.group_id = g.id
			)
			UNION
			SELECT cg.id, COUNT(c.customergroup), cg.description, cg.groupkey, 1
			FROM newsletter_addresses a
			LEFT JOIN customers c ON c.email = a.email
			JOIN customer_groups cg ON c.customergroup = cg.groupkey
			WHERE a.customer = 1
			GROUP BY cg.groupkey
		) AS t
		ORDER BY ` + column + ` ` + direction

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []models.RecipientGroup{}
	for rows.Next() {
		var (
			internalID sql.NullInt64
			groupKey   sql.NullString
			group      models.RecipientGroup
		)
		if err := rows.Scan(&internalID, &group.Number, &group.Name, &groupKey, &group.IsCustomerGroup); err != nil {
			return nil, err
		}
		if internalID.Valid {
			id := internalID.Int64
			group.InternalID = &id
		}
		if groupKey.Valid {
			key := groupKey.String
			group.GroupKey = &key
		}
		groups = append(groups, group)
	}

	return groups, rows.Err()
}
