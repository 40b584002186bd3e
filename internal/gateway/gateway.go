// Package gateway is a thin HTTP client for the gamefeed REST API. It owns
// transport policy (timeouts, retry of idempotent reads) and normalizes
// identity API failures into the error taxonomy in errors.go. It never
// touches persisted session state; callers decide what to store.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/demianzx/gamefeed/internal/password"
)

const (
	loginPath    = "/api/users/login"
	registerPath = "/api/users/register"
	refreshPath  = "/api/users/refresh"
	postsPath    = "/api/posts"

	requestTimeout = 10 * time.Second
)

// Tokens is the credential pair returned by login and refresh.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// PostSummary is the minimal public view of a published post.
type PostSummary struct {
	ID    string
	Title string
}

// Client issues requests against the gamefeed API.
type Client struct {
	auth    *resty.Client
	content *resty.Client
}

// New creates a client for the API at baseURL.
//
// Identity calls are never retried: a login or registration must reach the
// server at most once. Content reads are idempotent and retry on transient
// failures.
func New(baseURL string) *Client {
	return &Client{
		auth: newResty(baseURL),
		content: newResty(baseURL).
			SetRetryCount(2).
			SetRetryWaitTime(200 * time.Millisecond).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			}),
	}
}

func newResty(baseURL string) *resty.Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(requestTimeout)

	rc.JSONMarshal = json.Marshal
	rc.JSONUnmarshal = json.Unmarshal

	rc.OnBeforeRequest(func(c *resty.Client, r *resty.Request) error {
		r.SetHeader("X-Request-Id", uuid.NewString())
		return nil
	})

	return rc
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges an email/password pair for a token pair.
func (c *Client) Login(ctx context.Context, email, pass string) (Tokens, error) {
	resp, err := c.auth.R().
		SetContext(ctx).
		SetBody(credentialsRequest{Email: email, Password: pass}).
		Post(loginPath)
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return Tokens{}, ErrInvalidCredentials
	case resp.StatusCode() >= http.StatusInternalServerError:
		return Tokens{}, fmt.Errorf("%w: server returned %d", ErrNetwork, resp.StatusCode())
	case resp.IsError():
		return Tokens{}, normalizeErrorBody(resp.Body(), resp.StatusCode())
	}

	return tokensFromBody(resp.Body())
}

// Register creates a new account. It does not sign the account in; callers
// chain a Login once registration succeeds.
func (c *Client) Register(ctx context.Context, email, pass string) error {
	resp, err := c.auth.R().
		SetContext(ctx).
		SetBody(credentialsRequest{Email: email, Password: pass}).
		Post(registerPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode() >= http.StatusInternalServerError:
		return fmt.Errorf("%w: server returned %d", ErrNetwork, resp.StatusCode())
	case resp.IsError():
		return normalizeErrorBody(resp.Body(), resp.StatusCode())
	}

	log.Debug().Str("email", email).Msg("account registered")

	return nil
}

// Refresh exchanges a refresh token for a fresh token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	resp, err := c.auth.R().
		SetContext(ctx).
		SetBody(refreshRequest{RefreshToken: refreshToken}).
		Post(refreshPath)
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusBadRequest:
		return Tokens{}, ErrInvalidRefreshToken
	case resp.IsError():
		return Tokens{}, fmt.Errorf("%w: server returned %d", ErrNetwork, resp.StatusCode())
	}

	return tokensFromBody(resp.Body())
}

// ListPosts fetches published post summaries. accessToken is optional; the
// endpoint is public but returns additional entries for signed-in staff.
func (c *Client) ListPosts(ctx context.Context, accessToken string) ([]PostSummary, error) {
	req := c.content.R().SetContext(ctx)
	if accessToken != "" {
		req.SetHeader("Authorization", "Bearer "+accessToken)
	}

	resp, err := req.Get(postsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("%w: server returned %d", ErrNetwork, resp.StatusCode())
	}

	items := gjson.GetBytes(resp.Body(), "items")
	if !items.Exists() {
		items = gjson.ParseBytes(resp.Body())
	}

	var posts []PostSummary
	items.ForEach(func(_, item gjson.Result) bool {
		posts = append(posts, PostSummary{
			ID:    item.Get("id").String(),
			Title: item.Get("title").String(),
		})
		return true
	})

	return posts, nil
}

// tokensFromBody extracts the token pair from a success response. A success
// response without an access token is a failure; the client must never
// proceed with an absent token.
func tokensFromBody(body []byte) (Tokens, error) {
	tokens := Tokens{
		AccessToken:  gjson.GetBytes(body, "accessToken").String(),
		RefreshToken: gjson.GetBytes(body, "refreshToken").String(),
	}

	if tokens.AccessToken == "" {
		return Tokens{}, fmt.Errorf("%w: missing access token", ErrInvalidResponse)
	}

	return tokens, nil
}

// serverPasswordRules maps identity API validation keys to policy rules, in
// the order they are reported to the user.
var serverPasswordRules = []struct {
	key    string
	rule   password.Rule
	detail string
}{
	{"PasswordTooShort", password.RuleMinLength, "password must be at least 8 characters"},
	{"PasswordRequiresUpper", password.RuleUppercase, "password must contain an uppercase letter"},
	{"PasswordRequiresDigit", password.RuleDigit, "password must contain a digit"},
	{"PasswordRequiresNonAlphanumeric", password.RuleSpecial, "password must contain a special character"},
}

var duplicateAccountKeys = []string{"DuplicateUserName", "DuplicateEmail"}

// normalizeErrorBody maps an identity API error body onto the error taxonomy,
// preferring the most specific failure: a named password rule, then a
// duplicate account, then any validation message, then the response title.
func normalizeErrorBody(body []byte, status int) error {
	errs := gjson.GetBytes(body, "errors")

	if errs.Exists() {
		for _, sr := range serverPasswordRules {
			if v := errs.Get(sr.key); v.Exists() {
				detail := firstMessage(v)
				if detail == "" {
					detail = sr.detail
				}
				return &password.PolicyError{Rule: sr.rule, Detail: detail}
			}
		}

		for _, key := range duplicateAccountKeys {
			if v := errs.Get(key); v.Exists() {
				if msg := firstMessage(v); msg != "" {
					return fmt.Errorf("%w: %s", ErrDuplicateAccount, msg)
				}
				return ErrDuplicateAccount
			}
		}

		var detail string
		errs.ForEach(func(_, v gjson.Result) bool {
			detail = firstMessage(v)
			return detail == ""
		})
		if detail != "" {
			return &ValidationError{Detail: detail}
		}
	}

	if title := gjson.GetBytes(body, "title").String(); title != "" {
		return &ValidationError{Detail: title}
	}

	return &ValidationError{Detail: http.StatusText(status)}
}

// firstMessage returns the first string from a validation entry, which the
// API may encode as either a string or an array of strings.
func firstMessage(v gjson.Result) string {
	if v.IsArray() {
		arr := v.Array()
		if len(arr) == 0 {
			return ""
		}
		return arr[0].String()
	}
	return v.String()
}
