package cli

import (
	"context"
	"fmt"
)

func (a *App) Login(ctx context.Context) error {
	userName, err := a.ask("-Enter username (email)")
	if err != nil {
		return err
	}
	password, err := a.askPassword("Enter password")
	if err != nil {
		return err
	}

	id, err := a.users.Login(ctx, userName, password)
	if err != nil {
		return err
	}

	token, err := a.sessions.Issue(id)
	if err != nil {
		return fmt.Errorf("issue session: %w", err)
	}
	a.token, a.userName = token, id.Username

	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", id.Username, id.Role)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	a.logger.Info(ctx, "logout", "user", a.userName)
	a.token, a.userName = "", ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	_, id, err := a.session(ctx, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", id.Username, id.Role)
	return nil
}
