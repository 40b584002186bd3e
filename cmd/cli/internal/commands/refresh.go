package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/demianzx/gamefeed/internal/session"
)

// RefreshCmd renews the stored session using the refresh token.
type RefreshCmd struct{}

func (c *RefreshCmd) Run(ctx context.Context, globals *Globals) error {
	mgr, _, err := newSession(globals)
	if err != nil {
		return err
	}

	if err := mgr.Refresh(ctx); err != nil {
		if errors.Is(err, session.ErrNoRefreshToken) {
			return errors.New("no session to refresh, run: gamefeed-cli login <email>")
		}
		// A failed refresh has already cleared the session.
		return fmt.Errorf("session expired, sign in again: %w", err)
	}

	fmt.Println("Session renewed")

	return nil
}
