package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/revu/internal/session"
	"github.com/desertthunder/revu/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal reports whether stdin is interactive.
var isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// AuthLogin logs in, prompting for the password and one-time code as needed.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email, err := r.argOrPrompt(cmd, "email", "Email")
	if err != nil {
		return err
	}
	password, err := r.secret(cmd.String("password"), "Password")
	if err != nil {
		return err
	}

	res, err := r.session.Login(ctx, email, password)
	if err != nil {
		return err
	}

	if res.RequiresTwoFactor {
		code := cmd.String("otp")
		if code == "" {
			if code, err = r.prompt("One-time code"); err != nil {
				return err
			}
		}
		user, err := r.session.VerifyTwoFactor(ctx, code)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Logged in as %s\n", user.Email)
	}

	return r.writePlain("✓ Logged in as %s\n", res.User.Email)
}

func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	email, err := r.argOrPrompt(cmd, "email", "Email")
	if err != nil {
		return err
	}
	password, err := r.secret(cmd.String("password"), "Password")
	if err != nil {
		return err
	}

	if err := r.session.Signup(ctx, email, password); err != nil {
		return err
	}
	return r.writePlain("✓ Account created. Check %s for a verification link.\n", email)
}

// AuthLogout ends the session locally at once; the server is told in the
// background and the runner waits for that before exiting.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.session.Logout(ctx)
	return r.writePlain("✓ Logged out\n")
}

func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	snap := r.session.Snapshot()

	if cmd.Bool("json") {
		out := map[string]any{
			"state":         snap.State.String(),
			"hasCredential": snap.HasCredential,
			"user":          snap.User,
		}
		if !snap.Expiry.IsZero() {
			out["expiry"] = snap.Expiry
		}
		return r.writeJSON(out, true)
	}

	if snap.State != session.Authenticated || snap.User == nil {
		return r.writePlain("Not logged in\n")
	}
	if err := r.writePlain("Logged in as %s\n", snap.User.Email); err != nil {
		return err
	}
	if snap.User.TwoFactorEnabled {
		if err := r.writePlain("Two-factor authentication: enabled\n"); err != nil {
			return err
		}
	}
	if !snap.Expiry.IsZero() {
		return r.writePlain("Access token expires: %s\n", snap.Expiry.Local().Format("Mon, Jan 2 15:04"))
	}
	return nil
}

func (r *Runner) AuthForgot(ctx context.Context, cmd *cli.Command) error {
	email, err := r.argOrPrompt(cmd, "email", "Email")
	if err != nil {
		return err
	}
	if err := r.session.ForgotPassword(ctx, email); err != nil {
		return err
	}
	return r.writePlain("✓ If an account exists for %s, a reset link is on its way.\n", email)
}

func (r *Runner) AuthVerifyReset(ctx context.Context, cmd *cli.Command) error {
	token, err := r.argOrPrompt(cmd, "token", "Reset token")
	if err != nil {
		return err
	}
	if err := r.session.VerifyResetToken(ctx, token); err != nil {
		return err
	}
	return r.writePlain("✓ Reset token is valid\n")
}

func (r *Runner) AuthReset(ctx context.Context, cmd *cli.Command) error {
	token, err := r.argOrPrompt(cmd, "token", "Reset token")
	if err != nil {
		return err
	}
	if err := r.session.VerifyResetToken(ctx, token); err != nil {
		return err
	}
	password, err := r.secret(cmd.String("password"), "New password")
	if err != nil {
		return err
	}
	if err := r.session.ResetPassword(ctx, token, password); err != nil {
		return err
	}
	return r.writePlain("✓ Password updated. You can now log in.\n")
}

func (r *Runner) AuthVerifyEmail(ctx context.Context, cmd *cli.Command) error {
	msg, err := r.session.VerifyEmail(ctx, cmd.StringArg("token"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s\n", msg)
}

// AuthGoogle opens the server's Google OAuth flow. The server keeps the
// resulting Google tokens.
func (r *Runner) AuthGoogle(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}
	link := r.google.OAuthStartURL()
	if !r.config.Google.OpenBrowser {
		return r.writePlain("Open this link to connect Google Calendar:\n%s\n", link)
	}
	if err := shared.OpenBrowser(link); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		return r.writePlain("Open this link to connect Google Calendar:\n%s\n", link)
	}
	return r.writePlain("Opened Google sign-in in your browser\n")
}

func (r *Runner) argOrPrompt(cmd *cli.Command, name, label string) (string, error) {
	if v := strings.TrimSpace(cmd.StringArg(name)); v != "" {
		return v, nil
	}
	return r.prompt(label)
}

func (r *Runner) prompt(label string) (string, error) {
	if _, err := fmt.Fprintf(r.errOut, "%s: ", label); err != nil {
		return "", err
	}
	line, err := r.input.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, strings.ToLower(label))
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, strings.ToLower(label))
	}
	return line, nil
}

// secret returns value, or reads it without echo when stdin is a terminal.
func (r *Runner) secret(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	if !isTerminal() {
		return r.prompt(label)
	}

	fmt.Fprintf(r.errOut, "%s: ", label)
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(r.errOut)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	if len(pw) == 0 {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, strings.ToLower(label))
	}
	return string(pw), nil
}
