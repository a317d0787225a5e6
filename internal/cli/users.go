package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/labkeeper/internal/auth"
	"github.com/dmitrijs2005/labkeeper/internal/common"
	"github.com/dmitrijs2005/labkeeper/internal/credentials"
)

func (a *App) Users(ctx context.Context) error {
	ctx, _, err := a.session(ctx, auth.ActionManageUsers)
	if err != nil {
		return err
	}

	accounts, err := a.users.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Username\tRole\tName")
	for _, acc := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", acc.Username, acc.Role, acc.Name)
	}
	return tw.Flush()
}

// AddUser creates a user or replaces the password and role of an existing
// one.
func (a *App) AddUser(ctx context.Context) error {
	ctx, _, err := a.session(ctx, auth.ActionManageUsers)
	if err != nil {
		return err
	}

	var req credentials.UpsertRequest
	if req.Username, err = a.ask("Username (email)"); err != nil {
		return err
	}
	if req.Name, err = a.ask("Full name (empty keeps the current one)"); err != nil {
		return err
	}
	role, err := a.ask("Role (admin, recepcion, lab, medico)")
	if err != nil {
		return err
	}
	req.Role = auth.Role(strings.ToLower(role))

	if req.Password, err = a.askNewPassword(); err != nil {
		return err
	}

	if err := a.users.Upsert(ctx, req); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User %s saved\n", req.Username)
	return nil
}

// Passwd changes the caller's own password, or another user's when the
// caller may manage users.
func (a *App) Passwd(ctx context.Context, args []string) error {
	ctx, id, err := a.session(ctx, "")
	if err != nil {
		return err
	}

	target := id.Username
	if len(args) > 0 && args[0] != id.Username {
		if err := auth.Authorize(id.Role, auth.ActionManageUsers); err != nil {
			return err
		}
		target = args[0]
	}

	password, err := a.askPassword("New password")
	if err != nil {
		return err
	}
	confirm, err := a.askPassword("Repeat password")
	if err != nil {
		return err
	}

	if err := a.users.SetPassword(ctx, target, password, confirm); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Password for %s updated\n", target)
	return nil
}

func (a *App) TempPass(ctx context.Context, args []string) error {
	ctx, _, err := a.session(ctx, auth.ActionManageUsers)
	if err != nil {
		return err
	}
	username, err := a.argOrAsk(args, "Username")
	if err != nil {
		return err
	}

	pw, err := a.users.ResetTemporaryPassword(ctx, username)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Temporary password for %s: %s\n", username, pw)
	return nil
}

func (a *App) DelUser(ctx context.Context, args []string) error {
	ctx, id, err := a.session(ctx, auth.ActionManageUsers)
	if err != nil {
		return err
	}
	username, err := a.argOrAsk(args, "Username")
	if err != nil {
		return err
	}

	if err := a.users.Delete(ctx, id.Username, username); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User %s deleted\n", username)
	return nil
}

func (a *App) askNewPassword() (string, error) {
	password, err := a.askPassword("Password")
	if err != nil {
		return "", err
	}
	confirm, err := a.askPassword("Repeat password")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", common.ErrPasswordMismatch
	}
	return password, nil
}
