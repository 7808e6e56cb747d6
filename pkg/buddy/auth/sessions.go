package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Flash categories used by the login and registration pages.
const (
	FlashError   = "error"
	FlashSuccess = "success"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

// Config configures the session cookie.
type Config struct {
	// CookieName defaults to "buddy_session".
	CookieName string `yaml:"cookie_name"`

	// TTL is the idle expiry of a session.
	TTL time.Duration `yaml:"ttl"`

	// Secret signs cookie values. A random secret is generated when empty,
	// which invalidates sessions on restart.
	Secret string `yaml:"secret"`

	// Secure marks the cookie HTTPS-only.
	Secure bool `yaml:"secure"`
}

// DefaultConfig returns a 24h idle session.
func DefaultConfig() Config {
	return Config{
		CookieName: "buddy_session",
		TTL:        24 * time.Hour,
	}
}

type session struct {
	user     string
	flashes  []Flash
	lastSeen time.Time
}

// Sessions keeps server-side session state keyed by a signed cookie.
type Sessions struct {
	cfg    Config
	secret []byte
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessions creates a session manager.
func NewSessions(cfg Config) *Sessions {
	if cfg.CookieName == "" {
		cfg.CookieName = "buddy_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
	}
	return &Sessions{
		cfg:      cfg,
		secret:   secret,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// User returns the logged-in email for the request.
func (s *Sessions) User(r *http.Request) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lookupLocked(r)
	if sess == nil || sess.user == "" {
		return "", false
	}
	return sess.user, true
}

// Login binds user to a fresh session ID, carrying over pending flashes.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, user string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flashes []Flash
	if old := s.lookupLocked(r); old != nil {
		flashes = old.flashes
		s.deleteLocked(r)
	}
	id := s.createLocked(w)
	s.sessions[id].user = user
	s.sessions[id].flashes = flashes
}

// Logout forgets the user but keeps the session for flash messages.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.lookupLocked(r); sess != nil {
		sess.user = ""
	}
}

// AddFlash queues a message for the next page render, creating an anonymous
// session when the request has none.
func (s *Sessions) AddFlash(w http.ResponseWriter, r *http.Request, category, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lookupLocked(r)
	if sess == nil {
		sess = s.sessions[s.createLocked(w)]
	}
	sess.flashes = append(sess.flashes, Flash{Category: category, Message: message})
}

// Flashes returns and clears the queued messages.
func (s *Sessions) Flashes(r *http.Request) []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lookupLocked(r)
	if sess == nil {
		return nil
	}
	out := sess.flashes
	sess.flashes = nil
	return out
}

// Sweep drops sessions idle for longer than the TTL and returns the count.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.cfg.TTL)
	n := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ---------- Internal ----------

// createLocked allocates a session and sets its cookie (caller holds mu).
func (s *Sessions) createLocked(w http.ResponseWriter) string {
	id := uuid.NewString()
	s.sessions[id] = &session{lastSeen: s.now()}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    s.sign(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.TTL.Seconds()),
	})
	return id
}

// lookupLocked resolves the request cookie to a live session (caller holds mu).
func (s *Sessions) lookupLocked(r *http.Request) *session {
	id, ok := s.idFromRequest(r)
	if !ok {
		return nil
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	now := s.now()
	if now.Sub(sess.lastSeen) > s.cfg.TTL {
		delete(s.sessions, id)
		return nil
	}
	sess.lastSeen = now
	return sess
}

func (s *Sessions) deleteLocked(r *http.Request) {
	if id, ok := s.idFromRequest(r); ok {
		delete(s.sessions, id)
	}
}

func (s *Sessions) idFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(s.cfg.CookieName)
	if err != nil {
		return "", false
	}
	return s.verify(c.Value)
}

// sign returns "<id>.<mac>".
func (s *Sessions) sign(id string) string {
	return id + "." + s.mac(id)
}

func (s *Sessions) verify(value string) (string, bool) {
	id, mac, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !compareTokens(mac, s.mac(id)) {
		return "", false
	}
	return id, true
}

func (s *Sessions) mac(id string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// compareTokens performs timing-safe comparison by hashing both inputs with
// SHA-256 before calling ConstantTimeCompare.
func compareTokens(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
