package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PaulFidika/vipkit/entitlements"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres user store. It implements Users and entitlements.Store.
type Store struct {
	pg     *pgxpool.Pool
	schema string
}

func NewStore(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "vipkit"
	}
	return &Store{pg: pg, schema: s}
}

func (s *Store) usersTable() string    { return s.schema + ".users" }
func (s *Store) receiptsTable() string { return s.schema + ".payment_receipts" }

const recordCols = `id, email, full_name, is_vip, is_premium, vip_expires_at, created_at, updated_at`

func scanRecord(row pgx.Row) (*entitlements.Record, error) {
	var (
		r  entitlements.Record
		id uuid.UUID
	)
	if err := row.Scan(&id, &r.Email, &r.FullName, &r.IsVIP, &r.IsPremium, &r.VIPExpiresAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ID = id.String()
	return &r, nil
}

// parseID maps malformed ids to "no such user" rather than a database error.
func parseID(userID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s *Store) CreateUser(ctx context.Context, email, fullName, passwordHash string) (*entitlements.Record, error) {
	row := s.pg.QueryRow(ctx, `INSERT INTO `+s.usersTable()+` (id, email, full_name, password_hash, is_vip, is_premium)
		VALUES ($1, $2, $3, $4, false, false) RETURNING `+recordCols,
		uuid.New(), NormalizeEmail(email), strings.TrimSpace(fullName), passwordHash)
	rec, err := scanRecord(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return rec, nil
}

func (s *Store) GetCredentialsByEmail(ctx context.Context, email string) (*Credentials, error) {
	var (
		c    Credentials
		id   uuid.UUID
		hash string
	)
	err := s.pg.QueryRow(ctx, `SELECT `+recordCols+`, password_hash FROM `+s.usersTable()+` WHERE email=$1 LIMIT 1`, NormalizeEmail(email)).
		Scan(&id, &c.User.Email, &c.User.FullName, &c.User.IsVIP, &c.User.IsPremium, &c.User.VIPExpiresAt, &c.User.CreatedAt, &c.User.UpdatedAt, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.User.ID = id.String()
	c.PasswordHash = hash
	return &c, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	id, ok := parseID(userID)
	if !ok {
		return entitlements.ErrNotFound
	}
	_, err := s.pg.Exec(ctx, `UPDATE `+s.usersTable()+` SET password_hash=$2, updated_at=NOW() WHERE id=$1`, id, passwordHash)
	return err
}

// GetByEmail is used by operator tooling (grant-vip).
func (s *Store) GetByEmail(ctx context.Context, email string) (*entitlements.Record, error) {
	rec, err := scanRecord(s.pg.QueryRow(ctx, `SELECT `+recordCols+` FROM `+s.usersTable()+` WHERE email=$1 LIMIT 1`, NormalizeEmail(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (s *Store) GetByID(ctx context.Context, userID string) (*entitlements.Record, error) {
	id, ok := parseID(userID)
	if !ok {
		return nil, nil
	}
	rec, err := scanRecord(s.pg.QueryRow(ctx, `SELECT `+recordCols+` FROM `+s.usersTable()+` WHERE id=$1 LIMIT 1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// Grant updates the user first so a missing user fails before the receipt's
// foreign key does; a duplicate receipt rolls the update back.
func (s *Store) Grant(ctx context.Context, g entitlements.Grant) (*entitlements.Record, error) {
	id, ok := parseID(g.UserID)
	if !ok {
		return nil, entitlements.ErrNotFound
	}
	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := scanRecord(tx.QueryRow(ctx, `UPDATE `+s.usersTable()+`
		SET is_vip=true, is_premium=true,
		    vip_expires_at=GREATEST(COALESCE(vip_expires_at, $2), $2),
		    updated_at=NOW()
		WHERE id=$1 RETURNING `+recordCols, id, g.ExpiresAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entitlements.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if r := g.Receipt; r != nil {
		tag, err := tx.Exec(ctx, `INSERT INTO `+s.receiptsTable()+` (gateway, transaction_id, payment_id, amount, user_id, applied_at)
			VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (gateway, transaction_id) DO NOTHING`,
			r.Gateway, r.TransactionID, r.PaymentID, r.Amount, id, r.AppliedAt)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			_ = tx.Rollback(ctx)
			existing, err := s.getReceipt(ctx, r.Gateway, r.TransactionID)
			if err != nil {
				return nil, err
			}
			return nil, &entitlements.AppliedError{Existing: existing}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) getReceipt(ctx context.Context, gateway, txnID string) (entitlements.Receipt, error) {
	var (
		r   entitlements.Receipt
		uid uuid.UUID
	)
	err := s.pg.QueryRow(ctx, `SELECT gateway, transaction_id, payment_id, amount, user_id, applied_at FROM `+s.receiptsTable()+`
		WHERE gateway=$1 AND transaction_id=$2`, gateway, txnID).
		Scan(&r.Gateway, &r.TransactionID, &r.PaymentID, &r.Amount, &uid, &r.AppliedAt)
	if err != nil {
		return entitlements.Receipt{}, err
	}
	r.UserID = uid.String()
	return r, nil
}

// expiredPredicate must stay in step with entitlements.Expired.
const expiredPredicate = `is_vip AND (vip_expires_at IS NULL OR vip_expires_at <= $1)`

func (s *Store) RevokeIfExpired(ctx context.Context, userID string, now time.Time) (*entitlements.Record, error) {
	id, ok := parseID(userID)
	if !ok {
		return nil, nil
	}
	rec, err := scanRecord(s.pg.QueryRow(ctx, `UPDATE `+s.usersTable()+`
		SET is_vip=false, is_premium=false, vip_expires_at=NULL, updated_at=NOW()
		WHERE id=$2 AND `+expiredPredicate+` RETURNING `+recordCols, now, id))
	if errors.Is(err, pgx.ErrNoRows) {
		// Not expired any more, already revoked by the sweep, or gone.
		return s.GetByID(ctx, userID)
	}
	return rec, err
}

func (s *Store) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pg.Exec(ctx, `UPDATE `+s.usersTable()+`
		SET is_vip=false, is_premium=false, vip_expires_at=NULL, updated_at=NOW()
		WHERE `+expiredPredicate, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.pg.QueryRow(ctx, `SELECT COUNT(*) FROM `+s.usersTable()+` WHERE `+expiredPredicate, now).Scan(&n)
	return n, err
}

var (
	_ Users              = (*Store)(nil)
	_ entitlements.Store = (*Store)(nil)
)
