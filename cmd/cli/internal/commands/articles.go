package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// ArticlesCmd browses the public article feed.
type ArticlesCmd struct {
	List ArticlesListCmd `cmd:"" default:"1" help:"List published articles"`
}

// ArticlesListCmd lists article titles. Works signed out; a signed-in session
// is attached when present.
type ArticlesListCmd struct{}

func (c *ArticlesListCmd) Run(ctx context.Context, globals *Globals) error {
	mgr, gw, err := newSession(globals)
	if err != nil {
		return err
	}

	posts, err := gw.ListPosts(ctx, mgr.BearerToken())
	if err != nil {
		return fmt.Errorf("failed to list articles: %w", err)
	}

	if len(posts) == 0 {
		fmt.Println("No articles published yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE")
	for _, post := range posts {
		fmt.Fprintf(w, "%s\t%s\n", post.ID, post.Title)
	}

	return w.Flush()
}
