package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"conecta/internal/errutil"
	"conecta/internal/interfaces"
	"conecta/internal/models"
)

var tracer = otel.Tracer("conecta/auth")

// ResetNotifier delivers a reset link to the account owner. Implementations
// must not block on delivery.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, account *models.Account, token string) error
}

// EventRecorder counts auth outcomes.
type EventRecorder interface {
	RecordAuthEvent(operation string, role models.Role, outcome string)
}

// Session is the result of a successful registration or login.
type Session struct {
	Account   *models.Account
	Token     string
	ExpiresAt time.Time
}

// Options tune a Service. Zero values are usable.
type Options struct {
	// StoreTimeout bounds each credential store call. Zero disables it.
	StoreTimeout time.Duration
	Logger       *slog.Logger
	Recorder     EventRecorder
	Now          func() time.Time
}

// Service is the authority for accounts, credentials and password resets.
type Service struct {
	accounts     interfaces.AccountRepository
	hasher       PasswordHasher
	tokens       *TokenIssuer
	notifier     ResetNotifier
	logger       *slog.Logger
	recorder     EventRecorder
	storeTimeout time.Duration
	now          func() time.Time
	dummyHash    string
}

// NewService creates a Service. The dummy hash used for unknown emails is
// computed once here so every login pays the same hashing cost.
func NewService(accounts interfaces.AccountRepository, hasher PasswordHasher, tokens *TokenIssuer, notifier ResetNotifier, opts Options) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("token issuer is required")
	}
	if notifier == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("reset notifier is required")
	}

	s := &Service{
		accounts:     accounts,
		hasher:       hasher,
		tokens:       tokens,
		notifier:     notifier,
		logger:       opts.Logger,
		recorder:     opts.Recorder,
		storeTimeout: opts.StoreTimeout,
		now:          opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	dummy, err := hasher.Hash(context.Background(), uuid.NewString())
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").With("operation", "hash dummy password").Wrap(err)
	}
	s.dummyHash = dummy

	return s, nil
}

// Register creates an account and signs a session token for it.
func (s *Service) Register(ctx context.Context, in models.RegisterInput) (sess *Session, err error) {
	ctx, span := s.start(ctx, "auth.register", in.Role)
	defer func() { s.finish(span, "register", in.Role, err) }()

	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	email := models.NormalizeEmail(in.Email)

	_, err = s.findByEmail(ctx, in.Role, email)
	switch {
	case err == nil:
		return nil, ErrDuplicateAccount
	case !errors.Is(err, interfaces.ErrAccountNotFound):
		return nil, s.backend("find account by email", err)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, s.hashErr(err)
	}

	account := &models.Account{
		ID:           uuid.NewString(),
		Role:         in.Role,
		Email:        email,
		Name:         in.Name,
		Document:     in.Document,
		PhoneNumber:  in.PhoneNumber,
		City:         in.City,
		State:        in.State,
		Capabilities: in.Role.Capabilities(),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	storeCtx, cancel := s.storeContext(ctx)
	err = s.accounts.Insert(storeCtx, account)
	cancel()
	if err != nil {
		if errors.Is(err, interfaces.ErrDuplicateEmail) {
			return nil, ErrDuplicateAccount
		}
		return nil, s.backend("insert account", err)
	}

	return s.issue(account)
}

// Login checks credentials. Unknown emails and wrong passwords produce the
// same error after the same amount of hashing work.
func (s *Service) Login(ctx context.Context, role models.Role, email, password string) (sess *Session, err error) {
	ctx, span := s.start(ctx, "auth.login", role)
	defer func() { s.finish(span, "login", role, err) }()

	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	account, err := s.findByEmail(ctx, role, models.NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, interfaces.ErrAccountNotFound) {
			return nil, s.backend("find account by email", err)
		}
		if _, verr := s.hasher.Verify(ctx, password, s.dummyHash); verr != nil && ctx.Err() != nil {
			return nil, s.backend("verify password", verr)
		}
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, password, account.PasswordHash)
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.backend("verify password", err)
		}
		s.logger.WarnContext(ctx, "stored password hash is unusable", "account_id", account.ID, "role", role, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	storeCtx, cancel := s.storeContext(ctx)
	if err := s.accounts.TouchLastAccess(storeCtx, role, account.ID, now); err != nil {
		s.logger.WarnContext(ctx, "failed to record last access", "account_id", account.ID, "role", role, "error", err)
	} else {
		account.LastAccessAt = &now
	}
	cancel()

	return s.issue(account)
}

// RequestPasswordReset issues a reset token and hands it to the notifier.
// The caller always gets the same answer; store and delivery failures are
// only logged. A newer request replaces any outstanding token.
func (s *Service) RequestPasswordReset(ctx context.Context, role models.Role, email string) (err error) {
	ctx, span := s.start(ctx, "auth.request_reset", role)
	defer func() { s.finish(span, "request_reset", role, err) }()

	if !role.Valid() {
		return ErrInvalidRole
	}

	account, err := s.findByEmail(ctx, role, models.NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, interfaces.ErrAccountNotFound) {
			errutil.LogError(s.logger, "password reset lookup failed", s.backend("find account by email", err))
		}
		return nil
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		errutil.LogError(s.logger, "password reset token generation failed",
			oops.Code("RESET_TOKEN_GENERATE_FAILED").With("account_id", account.ID).Wrap(err))
		return nil
	}

	expiresAt := s.now().UTC().Add(ResetTokenTTL)
	storeCtx, cancel := s.storeContext(ctx)
	err = s.accounts.SetResetToken(storeCtx, role, account.ID, hash, expiresAt)
	cancel()
	if err != nil {
		errutil.LogError(s.logger, "password reset token not stored",
			oops.Code("RESET_REQUEST_FAILED").With("account_id", account.ID).With("role", string(role)).Wrap(err))
		return nil
	}

	if err := s.notifier.NotifyPasswordReset(ctx, account, token); err != nil {
		errutil.LogError(s.logger, "password reset email not queued",
			oops.Code("RESET_NOTIFY_FAILED").With("account_id", account.ID).Wrap(err))
	}
	return nil
}

// FulfillPasswordReset replaces the password of the account holding token.
// Wrong, expired, consumed and wrong-role tokens are indistinguishable.
func (s *Service) FulfillPasswordReset(ctx context.Context, token string, role models.Role, newPassword string) (err error) {
	ctx, span := s.start(ctx, "auth.fulfill_reset", role)
	defer func() { s.finish(span, "fulfill_reset", role, err) }()

	if !role.Valid() || token == "" {
		return ErrInvalidOrExpiredToken
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return s.hashErr(err)
	}

	storeCtx, cancel := s.storeContext(ctx)
	_, err = s.accounts.ConsumeResetToken(storeCtx, role, HashResetToken(token), hash, s.now().UTC())
	cancel()
	if err != nil {
		if errors.Is(err, interfaces.ErrAccountNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return s.backend("consume reset token", err)
	}
	return nil
}

// VerifySessionToken checks a bearer token without touching the store.
func (s *Service) VerifySessionToken(token string) (Principal, error) {
	return s.tokens.Verify(token)
}

// Profile loads the account behind a verified principal.
func (s *Service) Profile(ctx context.Context, p Principal) (*models.Account, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	account, err := s.accounts.GetByID(storeCtx, p.Role, p.AccountID)
	if err != nil {
		if errors.Is(err, interfaces.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, s.backend("get account", err)
	}
	return account, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, p Principal, oldPassword, newPassword string) (err error) {
	ctx, span := s.start(ctx, "auth.change_password", p.Role)
	defer func() { s.finish(span, "change_password", p.Role, err) }()

	account, err := s.Profile(ctx, p)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(ctx, oldPassword, account.PasswordHash)
	if err != nil && ctx.Err() != nil {
		return s.backend("verify password", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return s.hashErr(err)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.accounts.UpdatePasswordHash(storeCtx, p.Role, p.AccountID, hash); err != nil {
		if errors.Is(err, interfaces.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return s.backend("update password hash", err)
	}
	return nil
}

func (s *Service) issue(account *models.Account) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(Principal{AccountID: account.ID, Role: account.Role})
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_SIGN_FAILED").With("account_id", account.ID).Wrap(err)
	}
	return &Session{Account: account, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) findByEmail(ctx context.Context, role models.Role, email string) (*models.Account, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.accounts.FindByEmail(storeCtx, role, email)
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// backend wraps a store failure so callers can match ErrBackendUnavailable.
func (s *Service) backend(operation string, err error) error {
	return oops.Code("AUTH_BACKEND_UNAVAILABLE").
		With("operation", operation).
		Wrap(errors.Join(ErrBackendUnavailable, err))
}

func (s *Service) hashErr(err error) error {
	if errors.Is(err, ErrEmptyPassword) || errors.Is(err, ErrPasswordTooLong) {
		return err
	}
	return s.backend("hash password", err)
}

func (s *Service) start(ctx context.Context, name string, role models.Role) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("account.role", string(role))))
}

func (s *Service) finish(span trace.Span, operation string, role models.Role, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Outcome(err))
	}
	span.End()
	if s.recorder != nil {
		s.recorder.RecordAuthEvent(operation, role, Outcome(err))
	}
}

// Outcome is a stable label for err, used in metrics and spans.
func Outcome(err error) string {
	var authErr *AuthError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrDuplicateAccount):
		return "duplicate"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return "invalid_token"
	case errors.Is(err, ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.As(err, &authErr):
		return authErr.Kind.String()
	case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrEmptyPassword), errors.Is(err, ErrPasswordTooLong):
		return "invalid_input"
	default:
		return "error"
	}
}
