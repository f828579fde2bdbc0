// Package cli implements the interactive keyvault shell: account lifecycle
// commands plus the two sides of the key exchange handshake.
package cli

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/keyvault/internal/account"
	"github.com/dmitrijs2005/keyvault/internal/config"
	"github.com/dmitrijs2005/keyvault/internal/cryptox"
	"github.com/dmitrijs2005/keyvault/internal/exchange"
	"github.com/dmitrijs2005/keyvault/internal/logging"
	"github.com/dmitrijs2005/keyvault/internal/session"
	"github.com/dmitrijs2005/keyvault/internal/store"
	"github.com/dmitrijs2005/keyvault/internal/store/postgres"
	"github.com/dmitrijs2005/keyvault/internal/store/s3"
)

type App struct {
	controller *account.Controller
	protocol   *exchange.Protocol
	store      store.DocumentStore

	email  string
	reader *bufio.Reader
	out    io.Writer
}

// NewApp wires the full application from configuration: document store
// (Postgres or in-memory), optional S3 vault blob backend, session manager,
// account controller and exchange protocol. Logs go to stderr so they do
// not interleave with the interactive prompt.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	st, err := newDocumentStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sm := session.NewManager(st, logger)
	ctrl := account.NewController(st, sm, []byte(cfg.SecretKey), cfg.TokenValidityDuration, logger)
	proto := exchange.NewProtocol(sm, st, logger)

	return &App{
		controller: ctrl,
		protocol:   proto,
		store:      st,
		reader:     bufio.NewReader(os.Stdin),
		out:        os.Stdout,
	}, nil
}

func newDocumentStore(ctx context.Context, cfg *config.Config) (store.DocumentStore, error) {
	var base store.DocumentStore

	if cfg.DatabaseDSN != "" {
		pg, err := postgres.Open(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		base = pg
	} else {
		base = store.NewInMemoryStore()
	}

	if cfg.S3BaseEndpoint != "" {
		blobs, err := s3.NewBlobStore(ctx, s3.Config{
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("blob store init error: %w", err)
		}
		base = store.WithVaultBlobs(base, blobs)
	}

	return base, nil
}

func (a *App) isLoggedIn() bool {
	return a.controller.IsUnlocked()
}

func (a *App) Signup(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer cryptox.WipeByteArray(password)

	if _, err := a.controller.Signup(ctx, email, password); err != nil {
		fmt.Fprintln(a.out, "Signup failed:", err.Error())
		return err
	}

	a.email = email
	fmt.Fprintln(a.out, "Account created, vault unlocked.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer cryptox.WipeByteArray(password)

	if _, err := a.controller.Login(ctx, email, password); err != nil {
		fmt.Fprintln(a.out, "Login failed:", err.Error())
		return err
	}

	a.email = email
	fmt.Fprintln(a.out, "Vault unlocked.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.controller.Logout(ctx)
	a.email = ""
	fmt.Fprintln(a.out, "Vault locked.")
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	oldPassword, err := GetPassword(a.out, "Current password")
	if err != nil {
		return err
	}
	defer cryptox.WipeByteArray(oldPassword)

	newPassword, err := GetPassword(a.out, "New password")
	if err != nil {
		return err
	}
	defer cryptox.WipeByteArray(newPassword)

	if err := a.controller.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		fmt.Fprintln(a.out, "Password change failed:", err.Error())
		return err
	}

	fmt.Fprintln(a.out, "Password changed.")
	return nil
}

// Initiate starts a key exchange for the given conversation. The recipient
// is looked up by email; only their public key is used.
func (a *App) Initiate(ctx context.Context, conversationID string) error {
	email, err := GetSimpleText(a.reader, "Enter recipient email", a.out)
	if err != nil {
		return err
	}

	recipient, err := a.store.GetAccountByEmail(ctx, email)
	if err != nil {
		fmt.Fprintln(a.out, "Recipient lookup failed:", err.Error())
		return err
	}

	if _, err := a.protocol.Initiate(ctx, conversationID, recipient.ID, recipient.KEMPublicKey); err != nil {
		fmt.Fprintln(a.out, "Initiate failed:", err.Error())
		return err
	}

	fmt.Fprintf(a.out, "Exchange started for conversation %s; waiting for %s to respond.\n", conversationID, email)
	return nil
}

func (a *App) Respond(ctx context.Context, conversationID string) error {
	if err := a.protocol.Respond(ctx, conversationID); err != nil {
		fmt.Fprintln(a.out, "Respond failed:", err.Error())
		return err
	}

	fmt.Fprintf(a.out, "Exchange completed for conversation %s.\n", conversationID)
	return nil
}

func (a *App) ShowSecret(conversationID string) error {
	secret, ok := a.controller.GetSecret(conversationID)
	if !ok {
		fmt.Fprintf(a.out, "No key for conversation %s.\n", conversationID)
		return nil
	}
	defer cryptox.WipeByteArray(secret)

	fmt.Fprintf(a.out, "%s: %s\n", conversationID, hex.EncodeToString(secret))
	return nil
}

func (a *App) getStatus() string {
	if a.email != "" {
		return fmt.Sprintf("(%s)", a.email)
	}
	return ""
}

func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "keyvault CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
