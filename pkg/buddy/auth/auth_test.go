package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUsers_RegisterAndAuthenticate(t *testing.T) {
	t.Parallel()
	u := NewUsers(bcrypt.MinCost)

	require.NoError(t, u.Register("a@b.c", "secret"))
	assert.ErrorIs(t, u.Register("a@b.c", "other"), ErrEmailTaken)
	assert.ErrorIs(t, u.Register("", "x"), ErrMissingFields)
	assert.ErrorIs(t, u.Register("x@y.z", ""), ErrMissingFields)

	assert.NoError(t, u.Authenticate("a@b.c", "secret"))
	assert.ErrorIs(t, u.Authenticate("a@b.c", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, u.Authenticate("nobody@b.c", "secret"), ErrInvalidCredentials)
	assert.Equal(t, 1, u.Count())
}

// requestWith replays the Set-Cookie headers of a recorder on a new request.
func requestWith(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestSessions_LoginLogout(t *testing.T) {
	t.Parallel()
	s := NewSessions(Config{Secret: "k"})

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := s.User(anon)
	assert.False(t, ok)

	rec := httptest.NewRecorder()
	s.Login(rec, anon, "a@b.c")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "buddy_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := requestWith(rec)
	user, ok := s.User(req)
	require.True(t, ok)
	assert.Equal(t, "a@b.c", user)

	s.Logout(httptest.NewRecorder(), req)
	_, ok = s.User(req)
	assert.False(t, ok)
}

func TestSessions_FlashesAreConsumedOnce(t *testing.T) {
	t.Parallel()
	s := NewSessions(Config{})

	rec := httptest.NewRecorder()
	s.AddFlash(rec, httptest.NewRequest(http.MethodPost, "/login", nil), FlashError, "Invalid email or password")

	req := requestWith(rec)
	assert.Equal(t, []Flash{{FlashError, "Invalid email or password"}}, s.Flashes(req))
	assert.Empty(t, s.Flashes(req))
}

func TestSessions_LoginKeepsFlashes(t *testing.T) {
	t.Parallel()
	s := NewSessions(Config{})

	rec := httptest.NewRecorder()
	s.AddFlash(rec, httptest.NewRequest(http.MethodGet, "/", nil), FlashInfo, "hello")

	rec2 := httptest.NewRecorder()
	s.Login(rec2, requestWith(rec), "u@x")

	assert.Equal(t, []Flash{{FlashInfo, "hello"}}, s.Flashes(requestWith(rec2)))
	assert.Equal(t, 1, s.Len())
}

func TestSessions_RejectsTamperedCookie(t *testing.T) {
	t.Parallel()
	s := NewSessions(Config{Secret: "k"})

	rec := httptest.NewRecorder()
	s.Login(rec, httptest.NewRequest(http.MethodGet, "/", nil), "u@x")
	c := rec.Result().Cookies()[0]

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value + "x"})
	_, ok := s.User(r)
	assert.False(t, ok)

	other := NewSessions(Config{Secret: "different"})
	_, ok = other.User(requestWith(rec))
	assert.False(t, ok)
}

func TestSessions_ExpiryAndSweep(t *testing.T) {
	t.Parallel()
	s := NewSessions(Config{TTL: time.Minute})
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	s.Login(rec, httptest.NewRequest(http.MethodGet, "/", nil), "u@x")
	rec2 := httptest.NewRecorder()
	s.Login(rec2, httptest.NewRequest(http.MethodGet, "/", nil), "v@x")
	require.Equal(t, 2, s.Len())

	now = now.Add(30 * time.Second)
	_, ok := s.User(requestWith(rec))
	assert.True(t, ok, "touching refreshes idle time")

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, s.Sweep())

	_, ok = s.User(requestWith(rec))
	assert.True(t, ok)
	_, ok = s.User(requestWith(rec2))
	assert.False(t, ok)
}
