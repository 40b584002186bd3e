// Package guard gates access to protected views based on the current session
// state and an optional role requirement.
package guard

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/demianzx/gamefeed/internal/session"
)

// Decision is the outcome of an access check.
type Decision int

const (
	// Allow grants access.
	Allow Decision = iota
	// RedirectToLogin denies access because no session is held.
	RedirectToLogin
	// RedirectToForbidden denies access because the session lacks the
	// required role.
	RedirectToForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect-to-login"
	case RedirectToForbidden:
		return "redirect-to-forbidden"
	default:
		return "unknown"
	}
}

// CanEnter decides whether the session may enter a view requiring
// requiredRole. An empty requiredRole means any authenticated session is
// allowed. Role comparison is a case-sensitive exact match.
func CanEnter(snap session.Snapshot, requiredRole string) Decision {
	if !snap.Authenticated() {
		return RedirectToLogin
	}

	if requiredRole == "" {
		return Allow
	}

	if snap.User != nil && snap.User.Role == requiredRole {
		return Allow
	}

	return RedirectToForbidden
}

type contextKey string

const userContextKey contextKey = "user"

// RequireAuth protects HTTP routes with the session manager's state. Denied
// requests are redirected to loginURL or forbiddenURL with an error_code
// query parameter. On success the signed-in user is added to the request
// context.
func RequireAuth(mgr *session.Manager, requiredRole, loginURL, forbiddenURL string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			snap := mgr.Snapshot()

			switch CanEnter(snap, requiredRole) {
			case RedirectToLogin:
				log.Debug().Str("path", r.URL.Path).Msg("no session, redirecting to login")
				http.Redirect(w, r, loginURL+"?error_code=unauthenticated", http.StatusFound)
				return
			case RedirectToForbidden:
				log.Debug().Str("path", r.URL.Path).Str("requiredRole", requiredRole).Msg("role mismatch, redirecting")
				http.Redirect(w, r, forbiddenURL+"?error_code=forbidden", http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, snap.User)
			next(w, r.WithContext(ctx))
		}
	}
}

// UserFromContext extracts the signed-in user placed by RequireAuth.
func UserFromContext(ctx context.Context) (*session.User, bool) {
	user, ok := ctx.Value(userContextKey).(*session.User)
	return user, ok
}
