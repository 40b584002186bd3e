package commands

import (
	"context"
	"errors"
	"fmt"
)

// RegisterCmd creates an account, then signs it in. Registration alone never
// authenticates.
type RegisterCmd struct {
	Email    string `arg:"" help:"Email address for the new account."`
	Password string `help:"Password for the new account. Prompted when omitted." short:"p"`
	Confirm  string `help:"Password confirmation. Prompted when the password is prompted."`
}

func (c *RegisterCmd) Run(ctx context.Context, globals *Globals) error {
	mgr, _, err := newSession(globals)
	if err != nil {
		return err
	}

	pass, confirm := c.Password, c.Confirm
	if pass == "" {
		if pass, err = promptPassword("Password"); err != nil {
			return err
		}
		if confirm, err = promptPassword("Confirm password"); err != nil {
			return err
		}
	}

	if confirm != "" && confirm != pass {
		return errors.New("passwords don't match")
	}

	if err := mgr.Register(ctx, c.Email, pass); err != nil {
		return friendlyAuthError(err)
	}

	if err := mgr.Login(ctx, c.Email, pass); err != nil {
		return fmt.Errorf("account created, but sign-in failed: %w", friendlyAuthError(err))
	}

	fmt.Printf("Account created, signed in as %s\n", c.Email)

	return nil
}
