package kitefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dhanvan/kitefeed/pkg/config"
	"github.com/dhanvan/kitefeed/pkg/core"
	"github.com/dhanvan/kitefeed/pkg/kite"
	"github.com/dhanvan/kitefeed/pkg/logger"
	logadapter "github.com/dhanvan/kitefeed/pkg/logger/zerolog"
	"github.com/dhanvan/kitefeed/pkg/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	session *core.Session
}

func (m *memStore) Save(s *core.Session) error {
	m.session = s
	return nil
}

func (m *memStore) Load() (*core.Session, error) {
	if m.session == nil {
		return nil, session.ErrNoSession
	}
	return m.session, nil
}

func (m *memStore) Clear() error {
	m.session = nil
	return nil
}

type recordingNotifier struct {
	messages []string
	errors   []error
}

func (r *recordingNotifier) Notify(text string) {
	r.messages = append(r.messages, text)
}

func (r *recordingNotifier) OnError(err error) {
	r.errors = append(r.errors, err)
}

func testConfig() *config.Config {
	return &config.Config{
		Credentials: config.Credentials{
			Email:     "trader@example.com",
			Password:  "hunter2",
			UserID:    "AB1234",
			APIKey:    "testkey",
			APISecret: "testsecret",
			TOTPKey:   "JBSWY3DPEHPK3PXP",
		},
		TokenFile: "unused.json",
	}
}

func nopLogger() logger.Logger {
	nop := zerolog.Nop()
	return logadapter.NewAdapter(&nop)
}

func writeSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": data})
}

// newLoginServer serves both the login host and API host endpoints of a
// successful login flow, counting login attempts.
func newLoginServer(t *testing.T, logins *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		writeSuccess(w, map[string]any{"request_id": "rid-1", "twofa_type": "totp"})
	})
	mux.HandleFunc("/api/twofa", func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, true)
	})
	mux.HandleFunc("/connect/login", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/callback?status=success&request_token=rtok-1", http.StatusFound)
	})
	mux.HandleFunc("/session/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			writeSuccess(w, true)
			return
		}
		writeSuccess(w, map[string]any{
			"user_id":      "AB1234",
			"access_token": "atok-1",
			"public_token": "ptok-1",
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestKitefeed(t *testing.T, store core.TokenStorage, notifier core.Notifier, logins *atomic.Int32) *Kitefeed {
	t.Helper()

	server := newLoginServer(t, logins)

	options := []Option{
		WithLogger(nopLogger()),
		WithTokenStore(store),
		WithClientOptions(kite.WithBaseURL(server.URL, server.URL)),
	}
	if notifier != nil {
		options = append(options, WithNotifier(notifier))
	}

	kf, err := New(testConfig(), options...)
	require.NoError(t, err)
	return kf
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&config.Config{})
	require.Error(t, err)
}

func TestKitefeed_EnsureSessionReusesFreshSession(t *testing.T) {
	var logins atomic.Int32
	stored := &core.Session{
		UserID:      "AB1234",
		AccessToken: "atok-stored",
		CreatedAt:   time.Now(),
	}
	store := &memStore{session: stored}
	kf := newTestKitefeed(t, store, nil, &logins)

	sess, err := kf.EnsureSession(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, "atok-stored", sess.AccessToken)
	require.Equal(t, int32(0), logins.Load())
	require.Equal(t, "atok-stored", kf.Client().AccessToken())
}

func TestKitefeed_EnsureSessionLogsInWhenEmpty(t *testing.T) {
	var logins atomic.Int32
	store := &memStore{}
	notifier := &recordingNotifier{}
	kf := newTestKitefeed(t, store, notifier, &logins)

	sess, err := kf.EnsureSession(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, "atok-1", sess.AccessToken)
	require.Equal(t, int32(1), logins.Load())

	// A fresh login is persisted and announced.
	require.NotNil(t, store.session)
	require.Equal(t, "atok-1", store.session.AccessToken)
	require.Len(t, notifier.messages, 1)
	require.Contains(t, notifier.messages[0], "AB1234")
}

func TestKitefeed_EnsureSessionReplacesStaleSession(t *testing.T) {
	var logins atomic.Int32
	store := &memStore{session: &core.Session{
		UserID:      "AB1234",
		AccessToken: "atok-old",
		CreatedAt:   time.Now().AddDate(0, 0, -2),
	}}
	kf := newTestKitefeed(t, store, nil, &logins)

	sess, err := kf.EnsureSession(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, "atok-1", sess.AccessToken)
	require.Equal(t, int32(1), logins.Load())
}

func TestKitefeed_EnsureSessionForce(t *testing.T) {
	var logins atomic.Int32
	store := &memStore{session: &core.Session{
		UserID:      "AB1234",
		AccessToken: "atok-stored",
		CreatedAt:   time.Now(),
	}}
	kf := newTestKitefeed(t, store, nil, &logins)

	sess, err := kf.EnsureSession(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, "atok-1", sess.AccessToken)
	require.Equal(t, int32(1), logins.Load())
}

func TestKitefeed_Logout(t *testing.T) {
	var logins atomic.Int32
	store := &memStore{}
	kf := newTestKitefeed(t, store, nil, &logins)

	_, err := kf.EnsureSession(context.Background(), false)
	require.NoError(t, err)

	require.NoError(t, kf.Logout(context.Background()))
	require.Nil(t, store.session)

	_, err = store.Load()
	require.ErrorIs(t, err, session.ErrNoSession)
}
