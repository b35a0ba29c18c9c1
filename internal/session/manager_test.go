package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xybclock/internal/common/apierrors"
	"xybclock/internal/common/logger"
	"xybclock/internal/devicecode"
	"xybclock/internal/xyb"
)

func newManager(t *testing.T, baseURL string) (*Manager, *CacheStore) {
	t.Helper()
	client := xyb.NewClient(xyb.Options{
		BaseURL:   baseURL,
		UserAgent: "test-agent",
		Profile:   devicecode.Profile{Brand: "b", Model: "m", System: "s", Platform: "p"},
	}, logger.NewTestLogger(t))
	cache := tempCache(t, time.Hour)
	return NewManager(client, cache, logger.NewTestLogger(t)), cache
}

// exchangeServer serves the happy-path two-step login.
func exchangeServer(t *testing.T, calls *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls = append(*calls, r.URL.Path)
		switch r.URL.Path {
		case "/common/getOpenId.action":
			w.Write([]byte(`{"code": "200", "data": {
				"openId": "o-9", "unionId": "u-9",
				"encryptValue": "ev-seed", "sessionId": "sid-seed"}}`))
		case "/login/login!wx.action":
			w.Write([]byte(`{"code": "200", "data": {"encryptValue": "ev-final", "sessionId": "sid-final"}}`))
		default:
			t.Fatalf("unexpected call: %s", r.URL.Path)
		}
	}))
}

func TestLoginExchangesCodeAndCaches(t *testing.T) {
	var calls []string
	srv := exchangeServer(t, &calls)
	defer srv.Close()

	m, cache := newManager(t, srv.URL)
	s, err := m.Login(context.Background(), "071NewCode", true)
	require.NoError(t, err)
	assert.Equal(t, "sid-final", s.SessionID)
	assert.Equal(t, "ev-final", s.EncryptValue)
	assert.Equal(t, "o-9", s.OpenID)
	assert.Equal(t, []string{"/common/getOpenId.action", "/login/login!wx.action"}, calls)

	cached, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "sid-final", cached.SessionID)
}

func TestLoginCacheHitSkipsExchange(t *testing.T) {
	var calls []string
	srv := exchangeServer(t, &calls)
	defer srv.Close()

	m, cache := newManager(t, srv.URL)
	require.NoError(t, cache.Save(sampleSession()))

	s, err := m.Login(context.Background(), "", true)
	require.NoError(t, err)
	assert.Equal(t, "sess-abc", s.SessionID)
	assert.Empty(t, calls, "cache hit must not touch the network")
}

func TestLoginBypassCacheForcesExchange(t *testing.T) {
	var calls []string
	srv := exchangeServer(t, &calls)
	defer srv.Close()

	m, cache := newManager(t, srv.URL)
	require.NoError(t, cache.Save(sampleSession()))

	s, err := m.Login(context.Background(), "071NewCode", false)
	require.NoError(t, err)
	assert.Equal(t, "sid-final", s.SessionID)
	assert.Len(t, calls, 2)
}

func TestLoginWithoutCodeOrCacheFails(t *testing.T) {
	var calls []string
	srv := exchangeServer(t, &calls)
	defer srv.Close()

	m, _ := newManager(t, srv.URL)
	_, err := m.Login(context.Background(), "", true)
	assert.True(t, apierrors.Is(err, apierrors.ErrCodeLocalInputInvalid))
	assert.Empty(t, calls)
}

func TestLoginExpiredCodeSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "202", "msg": "code无效"}`))
	}))
	defer srv.Close()

	m, _ := newManager(t, srv.URL)
	_, err := m.Login(context.Background(), "071Stale", false)
	assert.True(t, apierrors.Is(err, apierrors.ErrCodeAuthCodeExpired))
}

func TestInvalidationSignalClearsCacheAutomatically(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "205", "msg": "未登录"}`))
	}))
	defer srv.Close()

	m, cache := newManager(t, srv.URL)
	require.NoError(t, cache.Save(sampleSession()))

	valid, err := m.CheckValidity(context.Background(), sampleSession())
	require.NoError(t, err)
	assert.False(t, valid)

	cached, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, cached, "dead session must not survive in the cache")
}

func TestCheckValidityEmptyPlanStillValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "200", "data": []}`))
	}))
	defer srv.Close()

	m, _ := newManager(t, srv.URL)
	valid, err := m.CheckValidity(context.Background(), sampleSession())
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestCheckValidityNetworkTroubleIsIndeterminate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	m, _ := newManager(t, srv.URL)
	_, err := m.CheckValidity(context.Background(), sampleSession())
	assert.True(t, apierrors.Is(err, apierrors.ErrCodeNetworkError))
}

func TestEnsureTraineeIDFetchesAndCaches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "200", "data": [{"dateList": [{"traineeId": 424242}]}]}`))
	}))
	defer srv.Close()

	m, cache := newManager(t, srv.URL)
	s := sampleSession()
	s.TraineeID = ""
	require.NoError(t, cache.Save(s))

	id, err := m.EnsureTraineeID(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "424242", id)

	cached, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "424242", cached.TraineeID)
}

func TestEnsureTraineeIDUsesExistingValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("must not call the server when the id is known")
	}))
	defer srv.Close()

	m, _ := newManager(t, srv.URL)
	id, err := m.EnsureTraineeID(context.Background(), sampleSession())
	require.NoError(t, err)
	assert.Equal(t, "777", id)
}
