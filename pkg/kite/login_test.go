package kite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey    = "testkey"
	testAPISecret = "testsecret"
	testUserID    = "AB1234"
	testTOTPKey   = "JBSWY3DPEHPK3PXP"
)

// brokerCounters tracks fake broker traffic and lets a test reject the
// first N TOTP submissions.
type brokerCounters struct {
	loginCalls  atomic.Int32
	twofaCalls  atomic.Int32
	rejectTwoFA atomic.Int32
}

// newFakeBroker spins up a test server implementing the login flow and
// the session token exchange.
func newFakeBroker(t *testing.T) (*httptest.Server, *brokerCounters) {
	t.Helper()

	counters := &brokerCounters{}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		counters.loginCalls.Add(1)
		require.NoError(t, r.ParseForm())

		if r.Form.Get("user_id") != testUserID || r.Form.Get("password") != "hunter2" {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"status":"error","error_type":"UserException","message":"Invalid username or password"}`)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: "kf_session", Value: "web-session"})
		fmt.Fprint(w, `{"status":"success","data":{"request_id":"req-1","twofa_type":"totp"}}`)
	})

	mux.HandleFunc("/api/twofa", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "req-1", r.Form.Get("request_id"))

		calls := counters.twofaCalls.Add(1)
		if calls <= counters.rejectTwoFA.Load() || !totp.Validate(r.Form.Get("twofa_value"), testTOTPKey) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"status":"error","error_type":"TwoFAException","message":"Invalid TOTP"}`)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: "kf_auth", Value: "two-fa-ok", Path: "/"})
		fmt.Fprint(w, `{"status":"success","data":{}}`)
	})

	mux.HandleFunc("/connect/login", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("kf_auth"); err != nil {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"status":"error","error_type":"TokenException","message":"not authenticated"}`)
			return
		}
		http.Redirect(w, r, "http://127.0.0.1:1/callback?action=login&status=success&request_token=rtok-42", http.StatusFound)
	})

	mux.HandleFunc("/session/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			fmt.Fprint(w, `{"status":"success","data":true}`)
			return
		}

		require.NoError(t, r.ParseForm())

		sum := sha256.Sum256([]byte(testAPIKey + "rtok-42" + testAPISecret))
		if r.Form.Get("checksum") != hex.EncodeToString(sum[:]) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"status":"error","error_type":"TokenException","message":"checksum mismatch"}`)
			return
		}

		fmt.Fprint(w, `{"status":"success","data":{"user_id":"AB1234","access_token":"atok-99","public_token":"ptok-7"}}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, counters
}

func newTestClient(server *httptest.Server, password string) *Client {
	return NewClient(Credentials{
		UserID:    testUserID,
		Password:  password,
		APIKey:    testAPIKey,
		APISecret: testAPISecret,
		TOTPKey:   testTOTPKey,
	}, testLogger(), WithBaseURL(server.URL, server.URL))
}

func TestClient_Login(t *testing.T) {
	server, _ := newFakeBroker(t)
	client := newTestClient(server, "hunter2")

	session, err := client.Login(context.Background())
	require.NoError(t, err)

	require.Equal(t, "AB1234", session.UserID)
	require.Equal(t, "rtok-42", session.RequestToken)
	require.Equal(t, "atok-99", session.AccessToken)
	require.Equal(t, "ptok-7", session.PublicToken)
	require.WithinDuration(t, time.Now(), session.CreatedAt, time.Minute)

	// The client is ready for authenticated calls afterwards.
	require.Equal(t, "atok-99", client.AccessToken())
}

func TestClient_LoginRetriesRejectedTOTP(t *testing.T) {
	server, counters := newFakeBroker(t)
	counters.rejectTwoFA.Store(1)

	client := newTestClient(server, "hunter2")
	client.retryWait = func(time.Time) time.Duration { return time.Millisecond }

	session, err := client.Login(context.Background())
	require.NoError(t, err)
	require.Equal(t, "atok-99", session.AccessToken)
	require.Equal(t, int32(2), counters.twofaCalls.Load())
}

func TestClient_LoginTwoFARejected(t *testing.T) {
	server, counters := newFakeBroker(t)
	counters.rejectTwoFA.Store(2)

	client := newTestClient(server, "hunter2")
	client.retryWait = func(time.Time) time.Duration { return time.Millisecond }

	_, err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrTwoFARejected)

	// One retry, no more.
	require.Equal(t, int32(2), counters.twofaCalls.Load())
}

func TestClient_LoginInvalidCredentials(t *testing.T) {
	server, _ := newFakeBroker(t)
	client := newTestClient(server, "wrong")

	_, err := client.Login(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "UserException", apiErr.ErrorType)
	require.Contains(t, apiErr.Message, "Invalid username or password")
}

func TestClient_GenerateSessionChecksum(t *testing.T) {
	server, _ := newFakeBroker(t)
	client := newTestClient(server, "hunter2")

	session, err := client.GenerateSession(context.Background(), "rtok-42")
	require.NoError(t, err)
	require.Equal(t, "atok-99", session.AccessToken)

	_, err = client.GenerateSession(context.Background(), "bogus-token")
	require.Error(t, err)
}

func TestClient_LoginURL(t *testing.T) {
	server, _ := newFakeBroker(t)
	client := newTestClient(server, "hunter2")

	require.Equal(t, server.URL+"/connect/login?v=3&api_key=testkey", client.LoginURL())
}

func TestClient_CaptureRequestTokenMissing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"success","data":{"request_id":"req-1","twofa_type":"totp"}}`)
	})
	mux.HandleFunc("/api/twofa", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"success","data":{}}`)
	})
	mux.HandleFunc("/connect/login", func(w http.ResponseWriter, r *http.Request) {
		// No request_token anywhere in the chain
		fmt.Fprint(w, "<html>stuck on an interstitial page</html>")
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := newTestClient(server, "hunter2")

	_, err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrNoRequestToken)
}
