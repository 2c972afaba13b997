package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

// GetProfile returns nil when the customer has never been seen.
func (db *DB) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	profile, err := getProfile(ctx, db.conn, userID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return profile, nil
}

// UpsertProfile merges patch into the stored profile (see models.Profile.Merge).
func (db *DB) UpsertProfile(ctx context.Context, userID int64, patch models.ProfilePatch) (*models.Profile, error) {
	var merged models.Profile
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getProfile(ctx, tx, userID)
		switch {
		case isNoRows(err):
			existing = &models.Profile{UserID: userID}
		case err != nil:
			return fmt.Errorf("loading profile: %w", err)
		}

		merged = existing.Merge(patch)
		merged.UpdatedAt = db.timestamp()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO profiles (user_id, username, first_name, last_name, phone, consent_given, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET
				username = excluded.username,
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				phone = excluded.phone,
				consent_given = MAX(profiles.consent_given, excluded.consent_given),
				updated_at = excluded.updated_at`,
			userID, merged.Username, merged.Name.First, merged.Name.Last, merged.Phone,
			merged.ConsentGiven, merged.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("saving profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

func getProfile(ctx context.Context, q queryer, userID int64) (*models.Profile, error) {
	var (
		profile   models.Profile
		updatedAt time.Time
	)
	err := q.QueryRowContext(ctx,
		`SELECT user_id, username, first_name, last_name, phone, consent_given, updated_at
		 FROM profiles WHERE user_id = ?`, userID,
	).Scan(
		&profile.UserID, &profile.Username, &profile.Name.First, &profile.Name.Last,
		&profile.Phone, &profile.ConsentGiven, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	profile.UpdatedAt = updatedAt.UTC()
	return &profile, nil
}
