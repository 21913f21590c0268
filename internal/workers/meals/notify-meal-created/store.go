// internal/workers/meals/notify-meal-created/store.go
package notifymealcreated

import (
	"context"
	"database/sql"
	"fmt"

	"mealbell/internal/models"
)

// PostgresMembershipStore reads family members from the users table.
// Location and push token columns are nullable; absence maps to a nil
// coordinate / empty token on the Recipient.
type PostgresMembershipStore struct {
	db *sql.DB
}

func NewPostgresMembershipStore(db *sql.DB) *PostgresMembershipStore {
	return &PostgresMembershipStore{db: db}
}

func (s *PostgresMembershipStore) FamilyMembers(ctx context.Context, familyID string) ([]models.Recipient, error) {
	query := `SELECT id, last_lat, last_lng, fcm_token FROM users WHERE family_id = $1`

	rows, err := s.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("query family members: %w", err)
	}
	defer rows.Close()

	var members []models.Recipient
	for rows.Next() {
		var (
			id       string
			lat, lng sql.NullFloat64
			token    sql.NullString
		)
		if err := rows.Scan(&id, &lat, &lng, &token); err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}

		member := models.Recipient{ID: id}
		if lat.Valid && lng.Valid {
			member.LastLocation = models.NewCoordinate(lat.Float64, lng.Float64)
		}
		if token.Valid {
			member.PushToken = token.String
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate family members: %w", err)
	}

	return members, nil
}
