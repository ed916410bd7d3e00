package repositories

import (
	"context"
	"database/sql"

	"github.com/alimgiray/newsletter-manager/internal/models"
)

var senderColumns = listColumns{
	"id":    "id",
	"email": "email",
	"name":  "name",
}

type SenderRepository struct {
	db *sql.DB
}

func NewSenderRepository(db *sql.DB) *SenderRepository {
	return &SenderRepository{db: db}
}

// List returns a page of senders and the filtered total
func (r *SenderRepository) List(ctx context.Context, q models.ListQuery) ([]*models.Sender, int, error) {
	where, args := whereClause(q.Filters, senderColumns)

	var total int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM newsletter_senders"+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	limit, limitArgs := limitClause(q)
	query := "SELECT id, email, name FROM newsletter_senders" + where +
		orderClause(q, senderColumns, "id ASC") + limit

	rows, err := r.db.QueryContext(ctx, query, append(args, limitArgs...)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	senders := []*models.Sender{}
	for rows.Next() {
		sender := &models.Sender{}
		if err := rows.Scan(&sender.ID, &sender.Email, &sender.Name); err != nil {
			return nil, 0, err
		}
		senders = append(senders, sender)
	}

	return senders, total, rows.Err()
}

// Create inserts a sender and sets its ID
func (r *SenderRepository) Create(ctx context.Context, sender *models.Sender) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO newsletter_senders (email, name) VALUES (?, ?)`,
		sender.Email, sender.Name,
	)
	if err != nil {
		return err
	}

	sender.ID, err = result.LastInsertId()
	return err
}

// GetByID retrieves a sender by ID
func (r *SenderRepository) GetByID(ctx context.Context, id int64) (*models.Sender, error) {
	sender := &models.Sender{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name FROM newsletter_senders WHERE id = ?`, id,
	).Scan(&sender.ID, &sender.Email, &sender.Name)
	if err != nil {
		return nil, err
	}

	return sender, nil
}

// Update stores email and name of an existing sender
func (r *SenderRepository) Update(ctx context.Context, sender *models.Sender) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE newsletter_senders SET email = ?, name = ? WHERE id = ?`,
		sender.Email, sender.Name, sender.ID,
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

	return nil
}

// DeleteMany removes the senders that exist among ids in one transaction
func (r *SenderRepository) DeleteMany(ctx context.Context, ids []int64) (int, error) {
	return deleteByIDs(ctx, r.db, "newsletter_senders", ids)
}
