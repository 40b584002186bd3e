// Package session owns the client-side authentication lifecycle: obtaining,
// persisting, refreshing, and discarding the signed-in user's credentials,
// and publishing the derived authorization state to subscribers.
package session

// Status is the authentication state of the session.
type Status int

const (
	// StatusUnauthenticated means no valid session is held.
	StatusUnauthenticated Status = iota
	// StatusAuthenticating means a login, registration, or refresh is in flight.
	StatusAuthenticating
	// StatusAuthenticated means a token pair is held in memory and on disk.
	StatusAuthenticated
	// StatusRefreshFailed is the transient state observed while a failed
	// refresh tears the session down. The settled state is Unauthenticated.
	StatusRefreshFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusRefreshFailed:
		return "refresh-failed"
	default:
		return "unknown"
	}
}

// User is the identity derived from the access token. It is never set
// independently of a token.
type User struct {
	ID    string
	Email string
	Name  string
	Role  string
}

// Snapshot is an immutable copy of the session state, handed to subscribers
// and readers. LastError holds the normalized failure from the most recent
// operation, if any.
type Snapshot struct {
	Status       Status
	User         *User
	AccessToken  string
	RefreshToken string
	LastError    error
}

// Authenticated reports whether the snapshot holds a signed-in session.
func (s Snapshot) Authenticated() bool {
	return s.Status == StatusAuthenticated
}
