package kite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/dhanvan/kitefeed/pkg/core"
)

// Login flow errors
var (
	ErrNoRequestToken = errors.New("request token not present in redirect")
	ErrTwoFARejected  = errors.New("two factor code rejected")
)

// errFoundToken aborts the redirect chain once the request token shows up
var errFoundToken = errors.New("request token captured")

// loginResponse is the payload of the /api/login step
type loginResponse struct {
	RequestID string `json:"request_id"`
	TwoFAType string `json:"twofa_type"`
}

// sessionResponse is the payload of the /session/token exchange
type sessionResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	PublicToken  string `json:"public_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginURL returns the interactive login URL for this API key.
func (c *Client) LoginURL() string {
	return fmt.Sprintf("%s/connect/login?v=%s&api_key=%s", c.loginURL, kiteVersion, c.apiKey)
}

// Login runs the full automated login flow: credential submission,
// TOTP two-factor step, request token capture from the redirect chain
// and the final access token exchange. The returned session is ready
// to persist.
func (c *Client) Login(ctx context.Context) (*core.Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	// The interactive flow needs its own client: cookies carry the
	// authenticated web session between steps, and the redirect chain
	// must be intercepted before it reaches the app's redirect URL.
	flow := &http.Client{
		Timeout: requestTimeout,
		Jar:     jar,
	}
	if transport := c.http.Transport; transport != nil {
		flow.Transport = transport
	}

	c.log.WithField("user_id", c.userID).Info("starting automated login")

	requestID, err := c.submitCredentials(ctx, flow)
	if err != nil {
		return nil, err
	}

	if err := c.submitTwoFA(ctx, flow, requestID); err != nil {
		return nil, err
	}

	requestToken, err := c.captureRequestToken(ctx, flow)
	if err != nil {
		return nil, err
	}
	c.log.Debug("request token captured")

	session, err := c.GenerateSession(ctx, requestToken)
	if err != nil {
		return nil, err
	}

	c.log.WithField("user_id", session.UserID).Info("login completed")
	return session, nil
}

// submitCredentials posts user id and password, returning the 2FA request id
func (c *Client) submitCredentials(ctx context.Context, flow *http.Client) (string, error) {
	form := url.Values{}
	form.Set("user_id", c.userID)
	form.Set("password", c.password)

	var login loginResponse
	if err := c.postForm(ctx, flow, c.loginURL+"/api/login", form, &login); err != nil {
		return "", fmt.Errorf("credential submission failed: %w", err)
	}

	if login.TwoFAType != "" && login.TwoFAType != "totp" && login.TwoFAType != "app_code" {
		c.log.WithField("twofa_type", login.TwoFAType).Warn("unexpected two factor type")
	}

	return login.RequestID, nil
}

// submitTwoFA posts the TOTP code. A rejected code is retried once
// after the next time window opens.
func (c *Client) submitTwoFA(ctx context.Context, flow *http.Client, requestID string) error {
	attempt := func() error {
		code, err := totpCode(c.totpKey, time.Now())
		if err != nil {
			return err
		}

		form := url.Values{}
		form.Set("user_id", c.userID)
		form.Set("request_id", requestID)
		form.Set("twofa_value", code)
		form.Set("twofa_type", "totp")
		form.Set("skip_session", "true")

		return c.postForm(ctx, flow, c.loginURL+"/api/twofa", form, nil)
	}

	err := attempt()
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadRequest {
		return fmt.Errorf("two factor submission failed: %w", err)
	}

	wait := c.retryWait(time.Now())
	c.log.WithField("wait", wait.String()).Warn("totp rejected, retrying on next window")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
	}

	if err := attempt(); err != nil {
		return fmt.Errorf("%w: %s", ErrTwoFARejected, err)
	}
	return nil
}

// captureRequestToken follows the connect login redirect chain with
// the authenticated cookies and pulls the request token out of the
// first redirect that carries one.
func (c *Client) captureRequestToken(ctx context.Context, flow *http.Client) (string, error) {
	var requestToken string

	flow.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if token := req.URL.Query().Get("request_token"); token != "" {
			requestToken = token
			return errFoundToken
		}
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	}
	defer func() { flow.CheckRedirect = nil }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.LoginURL(), nil)
	if err != nil {
		return "", err
	}

	res, err := flow.Do(req)
	if err != nil && !errors.Is(err, errFoundToken) {
		return "", fmt.Errorf("connect login failed: %w", err)
	}
	if res != nil {
		defer res.Body.Close()
		// The final URL itself may carry the token when the chain
		// ends without interception.
		if requestToken == "" {
			requestToken = res.Request.URL.Query().Get("request_token")
		}
	}

	if requestToken == "" {
		return "", ErrNoRequestToken
	}
	return requestToken, nil
}

// GenerateSession exchanges a request token for an access token using
// the documented checksum scheme.
func (c *Client) GenerateSession(ctx context.Context, requestToken string) (*core.Session, error) {
	checksum := sha256.Sum256([]byte(c.apiKey + requestToken + c.apiSecret))

	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("request_token", requestToken)
	form.Set("checksum", hex.EncodeToString(checksum[:]))

	var data sessionResponse
	if err := c.do(ctx, http.MethodPost, "/session/token", form, &data); err != nil {
		return nil, fmt.Errorf("access token exchange failed: %w", err)
	}

	c.accessToken = data.AccessToken

	return &core.Session{
		UserID:       data.UserID,
		APIKey:       c.apiKey,
		RequestToken: requestToken,
		AccessToken:  data.AccessToken,
		PublicToken:  data.PublicToken,
		RefreshToken: data.RefreshToken,
		CreatedAt:    time.Now(),
	}, nil
}

// InvalidateSession revokes the current access token.
func (c *Client) InvalidateSession(ctx context.Context) error {
	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("access_token", c.accessToken)

	if err := c.do(ctx, http.MethodDelete, "/session/token?"+form.Encode(), nil, nil); err != nil {
		return fmt.Errorf("session invalidation failed: %w", err)
	}

	c.accessToken = ""
	return nil
}

// postForm submits a form to the login host and decodes the response
// envelope. Login host errors use the same envelope as the API.
func (c *Client) postForm(ctx context.Context, client *http.Client, rawURL string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Kite-Version", kiteVersion)

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	return decodeEnvelope(res.StatusCode, body, out)
}
