// Package provider declares the outbound integration interfaces the
// services depend on. Concrete implementations live under
// infra/provider.
package provider

import "context"

// EmailSender delivers a message to a user out of band. Delivery is
// fire-and-forget: the caller logs failures but never blocks or fails
// a request on them.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
