package interfaces

import (
	"context"
	"time"

	"conecta/internal/models"
)

// AccountRepository persists company and candidate accounts. Every method takes
// the role explicitly; the role selects the table.
type AccountRepository interface {
	Insert(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, role models.Role, email string) (*models.Account, error)
	GetByID(ctx context.Context, role models.Role, id string) (*models.Account, error)
	TouchLastAccess(ctx context.Context, role models.Role, id string, at time.Time) error
	SetResetToken(ctx context.Context, role models.Role, id string, tokenHash string, expiresAt time.Time) error
	// ConsumeResetToken stores passwordHash and clears the reset token in one
	// conditional write. It succeeds only while the stored token hash still
	// equals tokenHash and has not expired at now.
	ConsumeResetToken(ctx context.Context, role models.Role, tokenHash string, passwordHash string, now time.Time) (string, error)
	// UpdatePasswordHash also clears any outstanding reset token.
	UpdatePasswordHash(ctx context.Context, role models.Role, id string, passwordHash string) error
	SetImageKey(ctx context.Context, role models.Role, id string, key string) error
	SetResumeKey(ctx context.Context, id string, key string) error
}
