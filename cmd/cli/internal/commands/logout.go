package commands

import (
	"context"
	"fmt"
)

// LogoutCmd clears the stored session. Logging out while signed out is fine.
type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	mgr, _, err := newSession(globals)
	if err != nil {
		return err
	}

	mgr.Logout()
	fmt.Println("Signed out")

	return nil
}
