package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Signup(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	Initiate(ctx context.Context, conversationID string) error
	Respond(ctx context.Context, conversationID string) error
	ShowSecret(conversationID string) error
}

// runREPL starts a simple read-eval-print loop for the keyvault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands while logged out: signup, login, exit. While logged in: passwd,
// initiate <id>, respond <id>, secret <id>, logout, exit.
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("kv> %s ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: passwd, initiate <id>, respond <id>, secret <id>, logout, exit")
			} else {
				printlnFn("Available commands: signup, login, exit")
			}

		case "signup":
			_ = a.Signup(ctx)

		case "login":
			_ = a.Login(ctx)

		case "passwd":
			_ = a.ChangePassword(ctx)

		case "initiate":
			if len(args) == 0 {
				printlnFn("Usage: initiate <conversation-id>")
				continue
			}
			_ = a.Initiate(ctx, args[0])

		case "respond":
			if len(args) == 0 {
				printlnFn("Usage: respond <conversation-id>")
				continue
			}
			_ = a.Respond(ctx, args[0])

		case "secret":
			if len(args) == 0 {
				printlnFn("Usage: secret <conversation-id>")
				continue
			}
			_ = a.ShowSecret(args[0])

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
