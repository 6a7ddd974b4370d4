package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// sessionTTL bounds how long an issued token stays valid. A tap-game
// session is minutes long; tokens are cheap to reissue on the next
// launch.
const sessionTTL = 6 * time.Hour

type session struct {
	userID  int64
	expires time.Time
}

// sessionStore maps bearer tokens to user IDs. Tokens are issued on
// session start after the visit is recorded; expired entries are swept
// lazily on each issue.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// issue creates a token for the user.
func (s *sessionStore) issue(userID int64) string {
	token := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sess := range s.sessions {
		if now.After(sess.expires) {
			delete(s.sessions, key)
		}
	}
	s.sessions[token] = session{userID: userID, expires: now.Add(s.ttl)}
	return token
}

// resolve returns the user behind a token, if it is valid.
func (s *sessionStore) resolve(token string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || s.now().After(sess.expires) {
		return 0, false
	}
	return sess.userID, true
}
