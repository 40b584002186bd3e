package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/demianzx/gamefeed/internal/gateway"
	"github.com/demianzx/gamefeed/internal/session"
	"github.com/demianzx/gamefeed/internal/store"
)

// Globals holds the root flags shared by every command.
type Globals struct {
	APIURL   string
	StateDir string
	Debug    bool
	Version  string
}

// roleAdmin is the role required for the admin back-office.
const roleAdmin = "Administrator"

// newSession wires the store, gateway, and session manager for a command.
func newSession(globals *Globals) (*session.Manager, *gateway.Client, error) {
	st, err := store.New(globals.StateDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	gw := gateway.New(globals.APIURL)

	return session.New(st, gw), gw, nil
}

// promptPassword reads a password from stdin when it wasn't passed as a flag.
func promptPassword(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	pass := strings.TrimRight(line, "\r\n")
	if pass == "" {
		return "", errors.New("password must not be empty")
	}

	return pass, nil
}

// friendlyAuthError rewrites the normalized auth errors into the messages
// shown to the user; anything unrecognized passes through unchanged.
func friendlyAuthError(err error) error {
	switch {
	case errors.Is(err, gateway.ErrInvalidCredentials):
		return errors.New("invalid email or password")
	case errors.Is(err, gateway.ErrDuplicateAccount):
		return errors.New("this email is already registered")
	case errors.Is(err, gateway.ErrNetwork):
		return errors.New("the gamefeed API is unreachable, try again later")
	}
	return err
}
