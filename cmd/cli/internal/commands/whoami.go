package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// WhoamiCmd shows the signed-in user derived from the stored session.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	mgr, _, err := newSession(globals)
	if err != nil {
		return err
	}

	if !mgr.Authenticated() {
		fmt.Println("Not signed in.")
		fmt.Println()
		fmt.Println("To sign in:")
		fmt.Println("  gamefeed-cli login <email>")
		return nil
	}

	user := mgr.CurrentUser()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE")
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", user.ID, user.Email, user.Name, user.Role)

	return w.Flush()
}
