package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests use a recording stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	NewOrder(ctx context.Context) error
	Capture(ctx context.Context, args []string, release bool) error
	Folios(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Report(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Studies(ctx context.Context) error
	History(ctx context.Context, args []string) error
	Users(ctx context.Context) error
	AddUser(ctx context.Context) error
	Passwd(ctx context.Context, args []string) error
	TempPass(ctx context.Context, args []string) error
	DelUser(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: login, help, exit"
	helpLoggedIn  = `Available commands:
  neworder                 register a patient order (reception)
  capture <folio>          capture results, status capturado (lab)
  sign <folio>             capture and release results, status firmado (lab)
  folios [status...]       list folios, optionally by status
  show <folio>             show an order
  report <folio>           show parsed results of an order
  search [text]            search all orders, accents and case ignored
  export [text]            export matching orders to CSV
  studies                  list active catalog studies
  history [folio]          audit trail of a folio, or latest events
  passwd [user]            change a password
  users | adduser | temppass <user> | deluser <user>   (admin)
  whoami | logout | exit`
)

// runREPL reads commands from reader until EOF or "exit"/"quit" and
// dispatches them to a. The reader is shared with the prompts that command
// handlers open, so both see the same buffered input.
//
// Errors from handlers are printed and the loop goes on; an error never
// ends the session.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("lab%s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami":
			cmdErr = a.WhoAmI(ctx)

		case "neworder":
			cmdErr = a.NewOrder(ctx)
		case "capture":
			cmdErr = a.Capture(ctx, args, false)
		case "sign":
			cmdErr = a.Capture(ctx, args, true)
		case "folios":
			cmdErr = a.Folios(ctx, args)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "report":
			cmdErr = a.Report(ctx, args)
		case "search":
			cmdErr = a.Search(ctx, args)
		case "export":
			cmdErr = a.Export(ctx, args)
		case "studies":
			cmdErr = a.Studies(ctx)
		case "history":
			cmdErr = a.History(ctx, args)

		case "users":
			cmdErr = a.Users(ctx)
		case "adduser":
			cmdErr = a.AddUser(ctx)
		case "passwd":
			cmdErr = a.Passwd(ctx, args)
		case "temppass":
			cmdErr = a.TempPass(ctx, args)
		case "deluser":
			cmdErr = a.DelUser(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
		if err != nil {
			return
		}
	}
}
