package services

// EmailSender delivers one HTML email.
type EmailSender interface {
	Send(to string, subject string, htmlBody string) error
}
