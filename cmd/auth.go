package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/lumen/internal/credentials"
	"github.com/urfave/cli/v3"
)

// AuthToken obtains a credential (reusing a valid cached one) and reports its status.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	session, err := r.credentialSession(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("force") {
		if err := session.Clear(ctx); err != nil {
			return err
		}
	}

	token, err := session.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain credential: %w", err)
	}

	status := session.Status(ctx)
	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Token string `json:"token,omitempty"`
			credentials.Status
		}{Token: reveal(token, cmd.Bool("show")), Status: status}, true)
	}

	r.writePlain("✓ Credential ready (issuer: %s)\n", status.Issuer)
	if cmd.Bool("show") {
		r.writePlain("Value: %s\n", token)
	}
	r.writeStatus(status)
	return nil
}

// AuthStatus reports the cached credential without issuing a new one.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	session, err := r.credentialSession(ctx)
	if err != nil {
		return err
	}

	status := session.Status(ctx)
	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("Credential Status")
	r.writePlain("Issuer: %s\n", status.Issuer)
	if !status.Present {
		return r.writePlain("Credential: ✗ None cached\n")
	}
	r.writeStatus(status)
	return nil
}

// AuthClear deletes the cached credential.
func (r *Runner) AuthClear(ctx context.Context, cmd *cli.Command) error {
	session, err := r.credentialSession(ctx)
	if err != nil {
		return err
	}
	if err := session.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	r.logger.Info("credential cleared")
	return r.writePlain("✓ Cached credential cleared\n")
}

func (r *Runner) writeStatus(s credentials.Status) {
	if s.Valid {
		r.writePlain("Credential: ✓ Valid\n")
	} else {
		r.writePlain("Credential: ✗ Expired\n")
	}
	if !s.IssuedAt.IsZero() {
		r.writePlain("Issued: %s\n", s.IssuedAt.Local().Format(time.RFC1123))
	}
	if !s.ExpiresAt.IsZero() {
		r.writePlain("Expires: %s (in %s)\n", s.ExpiresAt.Local().Format(time.RFC1123), time.Until(s.ExpiresAt).Round(time.Second))
	}
}

func reveal(token string, show bool) string {
	if show {
		return token
	}
	return ""
}
