package commands

import (
	"context"
	"fmt"
)

// LoginCmd signs in and persists the session locally.
type LoginCmd struct {
	Email    string `arg:"" help:"Account email address."`
	Password string `help:"Account password. Prompted when omitted." short:"p"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	mgr, _, err := newSession(globals)
	if err != nil {
		return err
	}

	pass := c.Password
	if pass == "" {
		if pass, err = promptPassword("Password"); err != nil {
			return err
		}
	}

	if err := mgr.Login(ctx, c.Email, pass); err != nil {
		return friendlyAuthError(err)
	}

	user := mgr.CurrentUser()
	fmt.Printf("Signed in as %s\n", user.Email)

	return nil
}
