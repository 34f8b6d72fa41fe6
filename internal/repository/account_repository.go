package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"conecta/internal/interfaces"
	"conecta/internal/models"
)

const accountColumns = `id, email, name, document, phone_number, city, state,
		COALESCE(image_key, ''), COALESCE(resume_key, ''), password_hash,
		COALESCE(reset_token_hash, ''), reset_token_expires_at, last_access_at, created_at`

// accountQueries holds the statements for one account table. Table names are
// part of the constant text; nothing is interpolated at runtime.
type accountQueries struct {
	insert             string
	findByEmail        string
	getByID            string
	touchLastAccess    string
	setResetToken      string
	consumeResetToken  string
	updatePasswordHash string
	setImageKey        string
}

var companyQueries = accountQueries{
	insert: `
		INSERT INTO companies (id, email, name, document, phone_number, city, state, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`,
	findByEmail: `
		SELECT ` + accountColumns + `
		FROM companies
		WHERE LOWER(email) = LOWER($1)
	`,
	getByID: `
		SELECT ` + accountColumns + `
		FROM companies
		WHERE id = $1
	`,
	touchLastAccess:    `UPDATE companies SET last_access_at = $1 WHERE id = $2`,
	setResetToken:      `UPDATE companies SET reset_token_hash = $1, reset_token_expires_at = $2 WHERE id = $3`,
	consumeResetToken: `
		UPDATE companies
		SET password_hash = $1, reset_token_hash = NULL, reset_token_expires_at = NULL
		WHERE reset_token_hash = $2 AND reset_token_expires_at > $3
		RETURNING id
	`,
	updatePasswordHash: `UPDATE companies SET password_hash = $1, reset_token_hash = NULL, reset_token_expires_at = NULL WHERE id = $2`,
	setImageKey:        `UPDATE companies SET image_key = $1 WHERE id = $2`,
}

var candidateQueries = accountQueries{
	insert: `
		INSERT INTO candidates (id, email, name, document, phone_number, city, state, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`,
	findByEmail: `
		SELECT ` + accountColumns + `
		FROM candidates
		WHERE LOWER(email) = LOWER($1)
	`,
	getByID: `
		SELECT ` + accountColumns + `
		FROM candidates
		WHERE id = $1
	`,
	touchLastAccess:    `UPDATE candidates SET last_access_at = $1 WHERE id = $2`,
	setResetToken:      `UPDATE candidates SET reset_token_hash = $1, reset_token_expires_at = $2 WHERE id = $3`,
	consumeResetToken: `
		UPDATE candidates
		SET password_hash = $1, reset_token_hash = NULL, reset_token_expires_at = NULL
		WHERE reset_token_hash = $2 AND reset_token_expires_at > $3
		RETURNING id
	`,
	updatePasswordHash: `UPDATE candidates SET password_hash = $1, reset_token_hash = NULL, reset_token_expires_at = NULL WHERE id = $2`,
	setImageKey:        `UPDATE candidates SET image_key = $1 WHERE id = $2`,
}

const setCandidateResumeKey = `UPDATE candidates SET resume_key = $1 WHERE id = $2`

func queriesFor(role models.Role) (*accountQueries, error) {
	switch role {
	case models.RoleCompany:
		return &companyQueries, nil
	case models.RoleCandidate:
		return &candidateQueries, nil
	default:
		return nil, interfaces.ErrUnknownRole
	}
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) interfaces.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Insert(ctx context.Context, account *models.Account) error {
	q, err := queriesFor(account.Role)
	if err != nil {
		return err
	}

	err = r.db.QueryRowContext(ctx, q.insert,
		account.ID, account.Email, account.Name, account.Document, account.PhoneNumber,
		account.City, account.State, account.PasswordHash, account.CreatedAt,
	).Scan(&account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return interfaces.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, role models.Role, email string) (*models.Account, error) {
	q, err := queriesFor(role)
	if err != nil {
		return nil, err
	}
	return scanAccount(role, r.db.QueryRowContext(ctx, q.findByEmail, email))
}

func (r *accountRepository) GetByID(ctx context.Context, role models.Role, id string) (*models.Account, error) {
	q, err := queriesFor(role)
	if err != nil {
		return nil, err
	}
	return scanAccount(role, r.db.QueryRowContext(ctx, q.getByID, id))
}

func (r *accountRepository) TouchLastAccess(ctx context.Context, role models.Role, id string, at time.Time) error {
	q, err := queriesFor(role)
	if err != nil {
		return err
	}
	return r.execOne(ctx, q.touchLastAccess, at, id)
}

func (r *accountRepository) SetResetToken(ctx context.Context, role models.Role, id string, tokenHash string, expiresAt time.Time) error {
	q, err := queriesFor(role)
	if err != nil {
		return err
	}
	return r.execOne(ctx, q.setResetToken, tokenHash, expiresAt, id)
}

func (r *accountRepository) ConsumeResetToken(ctx context.Context, role models.Role, tokenHash string, passwordHash string, now time.Time) (string, error) {
	q, err := queriesFor(role)
	if err != nil {
		return "", err
	}

	var id string
	err = r.db.QueryRowContext(ctx, q.consumeResetToken, passwordHash, tokenHash, now).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", interfaces.ErrAccountNotFound
		}
		return "", err
	}
	return id, nil
}

func (r *accountRepository) UpdatePasswordHash(ctx context.Context, role models.Role, id string, passwordHash string) error {
	q, err := queriesFor(role)
	if err != nil {
		return err
	}
	return r.execOne(ctx, q.updatePasswordHash, passwordHash, id)
}

func (r *accountRepository) SetImageKey(ctx context.Context, role models.Role, id string, key string) error {
	q, err := queriesFor(role)
	if err != nil {
		return err
	}
	return r.execOne(ctx, q.setImageKey, key, id)
}

func (r *accountRepository) SetResumeKey(ctx context.Context, id string, key string) error {
	return r.execOne(ctx, setCandidateResumeKey, key, id)
}

// execOne runs an update that must touch exactly one row.
func (r *accountRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return interfaces.ErrAccountNotFound
	}
	return nil
}

func scanAccount(role models.Role, row *sql.Row) (*models.Account, error) {
	var (
		a            models.Account
		resetExpires sql.NullTime
		lastAccess   sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.Email, &a.Name, &a.Document, &a.PhoneNumber, &a.City, &a.State,
		&a.ImageKey, &a.ResumeKey, &a.PasswordHash,
		&a.ResetTokenHash, &resetExpires, &lastAccess, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrAccountNotFound
		}
		return nil, err
	}

	a.Role = role
	a.Capabilities = role.Capabilities()
	if resetExpires.Valid {
		a.ResetTokenExpiresAt = &resetExpires.Time
	}
	if lastAccess.Valid {
		a.LastAccessAt = &lastAccess.Time
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation
}
