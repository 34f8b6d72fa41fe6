package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleCompany   Role = "company"
	RoleCandidate Role = "candidate"
)

func (r Role) Valid() bool {
	return r == RoleCompany || r == RoleCandidate
}

// Capabilities is what an account may do on the job board, derived from its role.
type Capabilities struct {
	CanPostJobs bool `json:"can_post_jobs"`
	CanApply    bool `json:"can_apply"`
}

func (r Role) Capabilities() Capabilities {
	switch r {
	case RoleCompany:
		return Capabilities{CanPostJobs: true}
	case RoleCandidate:
		return Capabilities{CanApply: true}
	default:
		return Capabilities{}
	}
}

// Account is a company or a candidate. Both live in tables of the same shape.
type Account struct {
	ID           string       `json:"id"`
	Role         Role         `json:"role"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	Document     string       `json:"document,omitempty"`
	PhoneNumber  string       `json:"phone_number,omitempty"`
	City         string       `json:"city,omitempty"`
	State        string       `json:"state,omitempty"`
	ImageKey     string       `json:"image_key,omitempty"`
	ResumeKey    string       `json:"resume_key,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
	LastAccessAt *time.Time   `json:"last_access_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`

	PasswordHash        string     `json:"-"`
	ResetTokenHash      string     `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterInput carries the role-specific profile of a new account.
type RegisterInput struct {
	Role        Role
	Email       string
	Password    string
	Name        string
	Document    string
	PhoneNumber string
	City        string
	State       string
}

type RegisterCandidateRequest struct {
	FullName    string `json:"full_name" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=30"`
	City        string `json:"city" validate:"omitempty,max=100"`
	State       string `json:"state" validate:"omitempty,len=2"`
}

func (r RegisterCandidateRequest) Input() RegisterInput {
	return RegisterInput{
		Role:        RoleCandidate,
		Email:       r.Email,
		Password:    r.Password,
		Name:        r.FullName,
		PhoneNumber: r.PhoneNumber,
		City:        r.City,
		State:       r.State,
	}
}

type RegisterCompanyRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	CNPJ        string `json:"cnpj" validate:"omitempty,max=20"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=30"`
	City        string `json:"city" validate:"omitempty,max=100"`
	State       string `json:"state" validate:"omitempty,len=2"`
}

func (r RegisterCompanyRequest) Input() RegisterInput {
	return RegisterInput{
		Role:        RoleCompany,
		Email:       r.Email,
		Password:    r.Password,
		Name:        r.Name,
		Document:    r.CNPJ,
		PhoneNumber: r.PhoneNumber,
		City:        r.City,
		State:       r.State,
	}
}

type LoginRequest struct {
	Role     Role   `json:"role" validate:"required,oneof=company candidate"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by registration and login.
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int64    `json:"expires_in"`
	Account     *Account `json:"account"`
}

type ForgotPasswordRequest struct {
	Role  Role   `json:"role" validate:"required,oneof=company candidate"`
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Role        Role   `json:"role" validate:"required,oneof=company candidate"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// UploadResponse describes a stored profile asset.
type UploadResponse struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
