package repositories

import (
	"context"
	"database/sql"

	"github.com/alimgiray/newsletter-manager/internal/models"
	"github.com/alimgiray/newsletter-manager/pkg/database"
)

var addressColumns = listColumns{
	"id":          "a.id",
	"email":       "a.email",
	"groupId":     "a.group_id",
	"groupName":   "g.name",
	"isCustomer":  "a.customer",
	"lastMailing": "a.last_mailing",
	"lastRead":    "a.last_read",
	"added":       "a.added",
}

type AddressRepository struct {
	db *sql.DB
}

func NewAddressRepository(db *sql.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

// List returns one page of addresses joined with their group name, and the
// number of addresses matching the filters
func (r *AddressRepository) List(ctx context.Context, q models.ListQuery) ([]*models.Address, int, error) {
	from := `
		FROM newsletter_addresses a
		LEFT JOIN newsletter_groups g ON g.id = a.group_id
	`
	where, args := whereClause(q.Filters, addressColumns)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+from+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, limitArgs := limitClause(q)
	query := `
		SELECT a.id, a.email, a.group_id, COALESCE(g.name, ''), a.customer,
			a.last_mailing, a.last_read, a.added
	` + from + where + orderClause(q, addressColumns, "a.id ASC") + limit

	rows, err := r.db.QueryContext(ctx, query, append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	addresses := []*models.Address{}
	for rows.Next() {
		address := &models.Address{}
		err := rows.Scan(
			&address.ID, &address.Email, &address.GroupID, &address.GroupName, &address.IsCustomer,
			&address.LastMailing, &address.LastRead, &address.Added,
		)
		if err != nil {
			return nil, 0, err
		}
		addresses = append(addresses, address)
	}

	return addresses, total, rows.Err()
}

// Create inserts a new address and sets its ID
func (r *AddressRepository) Create(ctx context.Context, address *models.Address) error {
	query := `
		INSERT INTO newsletter_addresses (email, group_id, customer, last_mailing, last_read, added)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		address.Email, address.GroupID, address.IsCustomer,
		address.LastMailing, address.LastRead, address.Added,
	)
	if err != nil {
		return err
	}

	address.ID, err = result.LastInsertId()
	return err
}

// GetByID retrieves an address, sql.ErrNoRows when it does not exist
func (r *AddressRepository) GetByID(ctx context.Context, id int64) (*models.Address, error) {
	query := `
		SELECT a.id, a.email, a.group_id, COALESCE(g.name, ''), a.customer,
			a.last_mailing, a.last_read, a.added
		FROM newsletter_addresses a
		LEFT JOIN newsletter_groups g ON g.id = a.group_id
		WHERE a.id = ?
	`

	address := &models.Address{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&address.ID, &address.Email, &address.GroupID, &address.GroupName, &address.IsCustomer,
		&address.LastMailing, &address.LastRead, &address.Added,
	)
	if err != nil {
		return nil, err
	}

	return address, nil
}

// Update stores email and group of an existing address
func (r *AddressRepository) Update(ctx context.Context, address *models.Address) error {
	query := `
		UPDATE newsletter_addresses
		SET email = ?, group_id = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, address.Email, address.GroupID, address.ID)
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

// DeleteMany removes every address of ids that exists, in one transaction.
// Unknown ids are skipped. It returns the number of deleted rows.
func (r *AddressRepository) DeleteMany(ctx context.Context, ids []int64) (int, error) {
	return deleteByIDs(ctx, r.db, "newsletter_addresses", ids)
}

// CountByLastMailing counts the addresses whose last mailing points at each
// of the given campaign ids. Campaigns without addresses are absent.
func (r *AddressRepository) CountByLastMailing(ctx context.Context, campaignIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int)
	if len(campaignIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT last_mailing, COUNT(*)
		FROM newsletter_addresses
		WHERE last_mailing IN (` + placeholders(len(campaignIDs)) + `)
		GROUP BY last_mailing
	`

	rows, err := r.db.QueryContext(ctx, query, int64Args(campaignIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var campaignID int64
		var count int
		if err := rows.Scan(&campaignID, &count); err != nil {
			return nil, err
		}
		counts[campaignID] = count
	}

	return counts, rows.Err()
}

// ExistsInGroup reports whether email is already subscribed to groupID
func (r *AddressRepository) ExistsInGroup(ctx context.Context, email string, groupID int64) (bool, error) {
	query := `
		SELECT COUNT(*) FROM newsletter_addresses
		WHERE email = ? AND group_id = ?
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, email, groupID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteManualByEmail removes the manually added addresses of email.
// Customer-derived addresses are left to the customer account.
func (r *AddressRepository) DeleteManualByEmail(ctx context.Context, email string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM newsletter_addresses WHERE email = ? AND customer = 0`, email)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// deleteByIDs deletes rows of table by primary key inside one transaction and
// skips ids that do not resolve
func deleteByIDs(ctx context.Context, db *sql.DB, table string, ids []int64) (int, error) {
	deleted := 0
	if len(ids) == 0 {
		return deleted, nil
	}

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "DELETE FROM "+table+" WHERE id = ?")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, id := range ids {
			result, err := stmt.ExecContext(ctx, id)
			if err != nil {
				return err
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			deleted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}
