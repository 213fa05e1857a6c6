package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TokenStore = (*TokenStore)(nil)

const tokenBundleColumns = `
	id, internal_user_id, external_account_id, user_access_token, page_access_token,
	linked_page_id, display_name, account_kind, expires_at, last_refreshed_at,
	is_connected, granted_scopes, created_at, updated_at`

// TokenStore implements driven.TokenStore. Access tokens pass through the
// sealer on the way in and out.
type TokenStore struct {
	db     *DB
	sealer TokenSealer
	now    func() time.Time
}

// NewTokenStore creates a new TokenStore. A nil sealer stores plaintext and a
// nil clock uses time.Now.
func NewTokenStore(db *DB, sealer TokenSealer, now func() time.Time) *TokenStore {
	if sealer == nil {
		sealer = PlaintextSealer{}
	}
	if now == nil {
		now = time.Now
	}
	return &TokenStore{db: db, sealer: sealer, now: now}
}

type tokenBundleRow struct {
	ID                string         `db:"id"`
	InternalUserID    sql.NullString `db:"internal_user_id"`
	ExternalAccountID string         `db:"external_account_id"`
	UserAccessToken   []byte         `db:"user_access_token"`
	PageAccessToken   []byte         `db:"page_access_token"`
	LinkedPageID      sql.NullString `db:"linked_page_id"`
	DisplayName       sql.NullString `db:"display_name"`
	AccountKind       sql.NullString `db:"account_kind"`
	ExpiresAt         sql.NullInt64  `db:"expires_at"`
	LastRefreshedAt   sql.NullInt64  `db:"last_refreshed_at"`
	IsConnected       bool           `db:"is_connected"`
	GrantedScopes     sql.NullString `db:"granted_scopes"`
	CreatedAt         int64          `db:"created_at"`
	UpdatedAt         int64          `db:"updated_at"`
}

// Upsert inserts or merges a bundle keyed by external account id. NULL
// inputs keep the stored column; is_connected and updated_at always follow
// the input.
func (s *TokenStore) Upsert(ctx context.Context, input *domain.TokenBundleInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	userToken, err := s.seal(input.UserAccessToken)
	if err != nil {
		return persistenceError("upsert token bundle", err)
	}
	pageToken, err := s.seal(input.PageAccessToken)
	if err != nil {
		return persistenceError("upsert token bundle", err)
	}

	var lastRefreshed any
	if !input.LastRefreshedAt.IsZero() {
		lastRefreshed = toMillis(input.LastRefreshedAt)
	}
	now := toMillis(s.now())

	query := `
		INSERT INTO token_bundles (` + tokenBundleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_account_id) DO UPDATE SET
			internal_user_id = COALESCE(EXCLUDED.internal_user_id, token_bundles.internal_user_id),
			user_access_token = COALESCE(EXCLUDED.user_access_token, token_bundles.user_access_token),
			page_access_token = COALESCE(EXCLUDED.page_access_token, token_bundles.page_access_token),
			linked_page_id = COALESCE(EXCLUDED.linked_page_id, token_bundles.linked_page_id),
			display_name = COALESCE(EXCLUDED.display_name, token_bundles.display_name),
			account_kind = COALESCE(EXCLUDED.account_kind, token_bundles.account_kind),
			expires_at = COALESCE(EXCLUDED.expires_at, token_bundles.expires_at),
			last_refreshed_at = COALESCE(EXCLUDED.last_refreshed_at, token_bundles.last_refreshed_at),
			granted_scopes = COALESCE(EXCLUDED.granted_scopes, token_bundles.granted_scopes),
			is_connected = EXCLUDED.is_connected,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, s.db.Rebind(query),
		uuid.NewString(),
		nullString(input.InternalUserID),
		input.ExternalAccountID,
		userToken,
		pageToken,
		nullString(input.LinkedPageID),
		nullString(input.DisplayName),
		nullString(input.AccountKind),
		nullMillis(input.ExpiresAt),
		lastRefreshed,
		input.IsConnected,
		nullString(strings.Join(input.GrantedScopes, ",")),
		now,
		now,
	)
	return persistenceError("upsert token bundle", err)
}

// FindByExternalID retrieves a bundle by Instagram account id
func (s *TokenStore) FindByExternalID(ctx context.Context, externalAccountID string) (*domain.TokenBundle, error) {
	query := `SELECT ` + tokenBundleColumns + ` FROM token_bundles WHERE external_account_id = ?`
	return s.getOne(ctx, "find token bundle", query, externalAccountID)
}

// FindByInternalUserID retrieves the most recently updated bundle for a user
func (s *TokenStore) FindByInternalUserID(ctx context.Context, userID string) (*domain.TokenBundle, error) {
	query := `
		SELECT ` + tokenBundleColumns + `
		FROM token_bundles
		WHERE internal_user_id = ?
		ORDER BY updated_at DESC, created_at DESC
		LIMIT 1
	`
	return s.getOne(ctx, "find user token bundle", query, userID)
}

// Clear disconnects a bundle and nulls every credential-derived column
func (s *TokenStore) Clear(ctx context.Context, bundleID string) error {
	query := `
		UPDATE token_bundles SET
			is_connected = FALSE,
			user_access_token = NULL,
			page_access_token = NULL,
			expires_at = NULL,
			granted_scopes = NULL,
			linked_page_id = NULL,
			updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), toMillis(s.now()), bundleID)
	if err != nil {
		return persistenceError("clear token bundle", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistenceError("clear token bundle", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearByInternalUserID disconnects every bundle owned by userID
func (s *TokenStore) ClearByInternalUserID(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE token_bundles SET
			is_connected = FALSE,
			user_access_token = NULL,
			page_access_token = NULL,
			expires_at = NULL,
			granted_scopes = NULL,
			linked_page_id = NULL,
			updated_at = ?
		WHERE internal_user_id = ?
	`

	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), toMillis(s.now()), userID)
	if err != nil {
		return 0, persistenceError("clear user token bundles", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, persistenceError("clear user token bundles", err)
	}
	return rowsAffected, nil
}

// ListRefreshable returns connected bundles whose user token expires before
// the given time, soonest first
func (s *TokenStore) ListRefreshable(ctx context.Context, before time.Time, limit int) ([]*domain.TokenBundle, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + tokenBundleColumns + `
		FROM token_bundles
		WHERE is_connected
			AND user_access_token IS NOT NULL
			AND expires_at IS NOT NULL
			AND expires_at < ?
		ORDER BY expires_at ASC
		LIMIT ?
	`

	var rows []tokenBundleRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), toMillis(before), limit); err != nil {
		return nil, persistenceError("list refreshable token bundles", err)
	}

	bundles := make([]*domain.TokenBundle, 0, len(rows))
	for i := range rows {
		bundle, err := s.toDomain(&rows[i])
		if err != nil {
			return nil, persistenceError("list refreshable token bundles", err)
		}
		bundles = append(bundles, bundle)
	}
	return bundles, nil
}

func (s *TokenStore) getOne(ctx context.Context, op, query string, args ...any) (*domain.TokenBundle, error) {
	var row tokenBundleRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, persistenceError(op, err)
	}

	bundle, err := s.toDomain(&row)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	return bundle, nil
}

func (s *TokenStore) seal(token string) (any, error) {
	if token == "" {
		return nil, nil
	}
	return s.sealer.Seal(token)
}

func (s *TokenStore) open(blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", nil
	}
	return s.sealer.Open(blob)
}

func (s *TokenStore) toDomain(row *tokenBundleRow) (*domain.TokenBundle, error) {
	userToken, err := s.open(row.UserAccessToken)
	if err != nil {
		return nil, err
	}
	pageToken, err := s.open(row.PageAccessToken)
	if err != nil {
		return nil, err
	}

	bundle := &domain.TokenBundle{
		ID:                row.ID,
		InternalUserID:    row.InternalUserID.String,
		ExternalAccountID: row.ExternalAccountID,
		UserAccessToken:   userToken,
		PageAccessToken:   pageToken,
		LinkedPageID:      row.LinkedPageID.String,
		DisplayName:       row.DisplayName.String,
		AccountKind:       row.AccountKind.String,
		IsConnected:       row.IsConnected,
		CreatedAt:         fromMillis(row.CreatedAt),
		UpdatedAt:         fromMillis(row.UpdatedAt),
	}
	if row.ExpiresAt.Valid {
		t := fromMillis(row.ExpiresAt.Int64)
		bundle.ExpiresAt = &t
	}
	if row.LastRefreshedAt.Valid {
		t := fromMillis(row.LastRefreshedAt.Int64)
		bundle.LastRefreshedAt = &t
	}
	if row.GrantedScopes.Valid && row.GrantedScopes.String != "" {
		bundle.GrantedScopes = strings.Split(row.GrantedScopes.String, ",")
	}
	return bundle, nil
}
