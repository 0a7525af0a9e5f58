package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs. The real
// App type satisfies it; tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Channels(ctx context.Context) error
	Direct(ctx context.Context) error
	Users(ctx context.Context) error
	Recent(ctx context.Context) error
	Starred(ctx context.Context) error
	Open(ctx context.Context, arg string) error
	Send(ctx context.Context, text string) error
	Back(ctx context.Context) error
}

// runREPL reads a line, parses the first token as the command and
// dispatches to methods on a. Unknown commands are reported back. The loop
// exits on scanner EOF or "exit"/"quit".
//
// Command handlers log their own errors; the loop ignores returned errors
// to stay resilient.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("discuss %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: channels, direct, users, recent, starred, open <id>, send <text>, back, logout, exit")
			} else {
				printlnFn("Available commands: login, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "channels":
			_ = a.Channels(ctx)

		case "direct":
			_ = a.Direct(ctx)

		case "users":
			_ = a.Users(ctx)

		case "recent":
			_ = a.Recent(ctx)

		case "starred":
			_ = a.Starred(ctx)

		case "open":
			if len(args) == 0 {
				printlnFn("Usage: open <channel id>")
				continue
			}
			_ = a.Open(ctx, args[0])

		case "send":
			if len(args) == 0 {
				printlnFn("Usage: send <text>")
				continue
			}
			_ = a.Send(ctx, strings.Join(args, " "))

		case "back":
			_ = a.Back(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
