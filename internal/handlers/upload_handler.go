package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"conecta/internal/auth"
	"conecta/internal/errutil"
	"conecta/internal/interfaces"
	"conecta/internal/middleware"
	"conecta/internal/models"
	"conecta/internal/services"
)

// AccountAssets records where an account's uploaded files live.
type AccountAssets interface {
	GetByID(ctx context.Context, role models.Role, id string) (*models.Account, error)
	SetImageKey(ctx context.Context, role models.Role, id string, key string) error
	SetResumeKey(ctx context.Context, id string, key string) error
}

type uploadKind struct {
	role    models.Role
	prefix  string
	maxSize int64
	allowed []string
	// current returns the key this upload replaces.
	current func(a *models.Account) string
}

func imageKey(a *models.Account) string { return a.ImageKey }
func resumeKey(a *models.Account) string { return a.ResumeKey }

var (
	candidatePhoto = uploadKind{
		role:    models.RoleCandidate,
		prefix:  "candidates/photos",
		maxSize: 5 << 20,
		allowed: []string{"image/jpeg", "image/png", "image/webp"},
		current: imageKey,
	}
	candidateResume = uploadKind{
		role:    models.RoleCandidate,
		prefix:  "candidates/resumes",
		maxSize: 10 << 20,
		allowed: []string{"application/pdf"},
		current: resumeKey,
	}
	companyLogo = uploadKind{
		role:    models.RoleCompany,
		prefix:  "companies/logos",
		maxSize: 5 << 20,
		allowed: []string{"image/jpeg", "image/png", "image/webp", "image/svg+xml"},
		current: imageKey,
	}
)

type UploadHandler struct {
	store    services.ObjectStore
	accounts AccountAssets
	logger   *slog.Logger
}

// NewUploadHandler accepts a nil store; uploads then answer 503.
func NewUploadHandler(store services.ObjectStore, accounts AccountAssets, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{store: store, accounts: accounts, logger: logger}
}

// @Tags Candidates
// @Summary Upload profile photo
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "JPEG, PNG or WebP image up to 5MB"
// @Success 201 {object} models.UploadResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 415 {object} map[string]interface{}
// @Router /api/v1/candidate/photo [post]
func (h *UploadHandler) UploadCandidatePhoto(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, candidatePhoto, func(ctx context.Context, id, key string) error {
		return h.accounts.SetImageKey(ctx, models.RoleCandidate, id, key)
	})
}

// @Tags Candidates
// @Summary Upload resume
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF up to 10MB"
// @Success 201 {object} models.UploadResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 415 {object} map[string]interface{}
// @Router /api/v1/candidate/resume [post]
func (h *UploadHandler) UploadCandidateResume(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, candidateResume, h.accounts.SetResumeKey)
}

// @Tags Companies
// @Summary Upload company logo
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image up to 5MB"
// @Success 201 {object} models.UploadResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 415 {object} map[string]interface{}
// @Router /api/v1/company/logo [post]
func (h *UploadHandler) UploadCompanyLogo(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, companyLogo, func(ctx context.Context, id, key string) error {
		return h.accounts.SetImageKey(ctx, models.RoleCompany, id, key)
	})
}

func (h *UploadHandler) upload(w http.ResponseWriter, r *http.Request, kind uploadKind, save func(ctx context.Context, id, key string) error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeJSONErrorResponse(w, http.StatusUnauthorized, "missing_token", "Missing Authorization header")
		return
	}
	if h.store == nil {
		writeJSONErrorResponse(w, http.StatusServiceUnavailable, "storage_unavailable", "File storage is not configured")
		return
	}

	account, err := h.accounts.GetByID(r.Context(), kind.role, p.AccountID)
	if err != nil {
		h.writeAccountError(w, p, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, kind.maxSize+(1<<20))
	if err := r.ParseMultipartForm(kind.maxSize); err != nil {
		writeJSONErrorResponse(w, http.StatusBadRequest, "invalid_request", "Failed to parse form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONErrorResponse(w, http.StatusBadRequest, "validation_error", "file is required")
		return
	}
	defer file.Close()

	if header.Size > kind.maxSize {
		writeJSONErrorResponse(w, http.StatusBadRequest, "validation_error", "file is too large")
		return
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		writeJSONErrorResponse(w, http.StatusBadRequest, "invalid_request", "Failed to read file")
		return
	}
	if !mimetype.EqualsAny(mtype.String(), kind.allowed...) {
		writeJSONErrorResponse(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "File type is not allowed")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeJSONErrorResponse(w, http.StatusBadRequest, "invalid_request", "Failed to read file")
		return
	}

	key := path.Join(kind.prefix, uuid.NewString()+mtype.Extension())
	if err := h.store.Put(r.Context(), key, mtype.String(), file); err != nil {
		errutil.LogError(h.logger, "upload failed",
			oops.Code("UPLOAD_FAILED").With("key", key).With("account_id", p.AccountID).Wrap(err))
		writeJSONErrorResponse(w, http.StatusBadGateway, "upload_failed", "Failed to store file")
		return
	}

	if err := save(r.Context(), p.AccountID, key); err != nil {
		h.discard(r.Context(), key)
		h.writeAccountError(w, p, err)
		return
	}
	if previous := kind.current(account); previous != "" && previous != key {
		h.discard(r.Context(), previous)
	}

	writeJSON(w, http.StatusCreated, models.UploadResponse{
		Key:         key,
		URL:         h.store.URL(key),
		ContentType: mtype.String(),
		Size:        header.Size,
	})
}

func (h *UploadHandler) writeAccountError(w http.ResponseWriter, p auth.Principal, err error) {
	if errors.Is(err, interfaces.ErrAccountNotFound) {
		writeJSONErrorResponse(w, http.StatusNotFound, "not_found", "Account not found")
		return
	}
	errutil.LogError(h.logger, "upload account access failed",
		oops.Code("UPLOAD_ACCOUNT_FAILED").With("account_id", p.AccountID).Wrap(err))
	writeJSONErrorResponse(w, http.StatusServiceUnavailable, "service_unavailable", "Service temporarily unavailable")
}

// discard removes an object no account points at. Failures are logged only.
func (h *UploadHandler) discard(ctx context.Context, key string) {
	if err := h.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		errutil.LogError(h.logger, "removing stale upload failed",
			oops.Code("UPLOAD_CLEANUP_FAILED").With("key", key).Wrap(err))
	}
}
