package auth

import "context"

// Mailer abstracts password-reset mail dispatch. SendPasswordReset
// receives the plaintext token; the transport builds the reset link.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}
