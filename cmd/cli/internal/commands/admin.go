package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/demianzx/gamefeed/internal/guard"
)

// AdminCmd groups the back-office commands. Every subcommand requires a
// signed-in session with the Administrator role.
type AdminCmd struct {
	Posts AdminPostsCmd `cmd:"" help:"List posts with admin visibility"`
}

// AdminPostsCmd lists posts including unpublished drafts.
type AdminPostsCmd struct{}

func (c *AdminPostsCmd) Run(ctx context.Context, globals *Globals) error {
	mgr, gw, err := newSession(globals)
	if err != nil {
		return err
	}

	switch guard.CanEnter(mgr.Snapshot(), roleAdmin) {
	case guard.RedirectToLogin:
		return errors.New("admin access requires signing in, run: gamefeed-cli login <email>")
	case guard.RedirectToForbidden:
		return errors.New("your account does not have admin access")
	}

	posts, err := gw.ListPosts(ctx, mgr.BearerToken())
	if err != nil {
		return fmt.Errorf("failed to list posts: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE")
	for _, post := range posts {
		fmt.Fprintf(w, "%s\t%s\n", post.ID, post.Title)
	}

	return w.Flush()
}
