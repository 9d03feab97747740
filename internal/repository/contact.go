package repository

import (
	"context"
	"fmt"

	"github.com/atharvakonge/papertrade/internal/models"
)

func (r *Repository) InsertContactMessage(ctx context.Context, m *models.ContactMessage) error {
	m.CreatedAt = now()
	q := r.q(ctx)
	err := q.QueryRowxContext(ctx,
		q.Rebind("INSERT INTO contact_messages (name, email, message, created_at) VALUES (?, ?, ?, ?) RETURNING id"),
		m.Name, m.Email, m.Message, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	return nil
}

func (r *Repository) ListContactMessages(ctx context.Context) ([]models.ContactMessage, error) {
	msgs := make([]models.ContactMessage, 0)
	err := r.q(ctx).SelectContext(ctx, &msgs,
		"SELECT id, name, email, message, created_at FROM contact_messages ORDER BY id DESC")
	return msgs, err
}
