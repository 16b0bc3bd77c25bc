package repository

import (
	"context"
	"database/sql"
	"time"

	"clinic-api/core/database"
	"clinic-api/core/logger"
	"clinic-api/modules/calendarsync/entity"

	"github.com/google/uuid"
)

type SyncRepository interface {
	// Connection credential: one row per user, overwritten on re-consent.
	GetConnection(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error)
	SaveConnection(ctx context.Context, userID uuid.UUID, refreshToken string) error
	DeleteConnection(ctx context.Context, userID uuid.UUID) error
	ListConnections(ctx context.Context) ([]entity.CalendarConnection, error)

	// OAuth state tokens
	SaveOAuthState(ctx context.Context, state string, userID uuid.UUID, expiresAt time.Time) error
	ConsumeOAuthState(ctx context.Context, state string) (*entity.OAuthState, error)
	CleanupExpiredOAuthStates(ctx context.Context) error
}

type syncRepository struct {
	db database.Database
}

func NewSyncRepository(db database.Database) SyncRepository {
	return &syncRepository{db: db}
}

func (r *syncRepository) GetConnection(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error) {
	var conn entity.CalendarConnection
	query := `
		SELECT id, user_id, refresh_token, created_at, updated_at
		FROM calendar_connections
		WHERE user_id = $1
	`
	err := r.db.GetContext(ctx, &conn, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("SyncRepository:GetConnection:Error", "error", err, "user_id", userID)
		return nil, err
	}
	return &conn, nil
}

func (r *syncRepository) SaveConnection(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	query := `
		INSERT INTO calendar_connections (id, user_id, refresh_token, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, NOW(), NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET refresh_token = $2, updated_at = NOW()
	`
	err := r.db.ExecContext(ctx, query, userID, refreshToken)
	if err != nil {
		logger.Error("SyncRepository:SaveConnection:Error", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *syncRepository) DeleteConnection(ctx context.Context, userID uuid.UUID) error {
	err := r.db.ExecContext(ctx, `DELETE FROM calendar_connections WHERE user_id = $1`, userID)
	if err != nil {
		logger.Error("SyncRepository:DeleteConnection:Error", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *syncRepository) ListConnections(ctx context.Context) ([]entity.CalendarConnection, error) {
	var conns []entity.CalendarConnection
	query := `
		SELECT id, user_id, refresh_token, created_at, updated_at
		FROM calendar_connections
		ORDER BY created_at
	`
	if err := r.db.SelectContext(ctx, &conns, query); err != nil {
		logger.Error("SyncRepository:ListConnections:Error", "error", err)
		return nil, err
	}
	return conns, nil
}

func (r *syncRepository) SaveOAuthState(ctx context.Context, state string, userID uuid.UUID, expiresAt time.Time) error {
	query := `
		INSERT INTO oauth_states (id, state, user_id, expires_at, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, NOW(), NOW())
	`
	err := r.db.ExecContext(ctx, query, state, userID, expiresAt)
	if err != nil {
		logger.Error("SyncRepository:SaveOAuthState:Error", "error", err, "state", state)
		return err
	}
	return nil
}

// ConsumeOAuthState atomically deletes and returns the state token, so a
// concurrent replay of the same state sees nothing.
func (r *syncRepository) ConsumeOAuthState(ctx context.Context, state string) (*entity.OAuthState, error) {
	var oauthState entity.OAuthState
	query := `
		DELETE FROM oauth_states
		WHERE state = $1 AND expires_at > NOW()
		RETURNING id, state, user_id, expires_at, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, state).Scan(
		&oauthState.ID, &oauthState.State, &oauthState.UserID,
		&oauthState.ExpiresAt, &oauthState.CreatedAt, &oauthState.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("SyncRepository:ConsumeOAuthState:Error", "error", err, "state", state)
		return nil, err
	}
	return &oauthState, nil
}

func (r *syncRepository) CleanupExpiredOAuthStates(ctx context.Context) error {
	err := r.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at < NOW()`)
	if err != nil {
		logger.Error("SyncRepository:CleanupExpiredOAuthStates:Error", "error", err)
		return err
	}
	return nil
}
