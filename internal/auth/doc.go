// Package auth owns account credentials for the job board.
//
// Service is the only component that creates accounts, checks passwords,
// issues session tokens and runs the password-reset lifecycle. Route guards
// in internal/middleware call Service.VerifySessionToken and never touch the
// database.
//
// Session tokens are stateless HS256 JWTs. Reset tokens are random 256-bit
// values; only their SHA-256 digest is stored, next to the owning account,
// and they are consumed by a single conditional update.
package auth
