package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"

	"github.com/talkincode/toughcrm/internal/domain"
)

// UserStore keeps registered users keyed by email and issues tokens for them
type UserStore struct {
	mu     sync.RWMutex
	users  map[string]domain.User
	ids    *snowflake.Node
	hasher *Hasher
	tokens *TokenManager
}

func NewUserStore(hasher *Hasher, tokens *TokenManager) (*UserStore, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, errors.Wrap(err, "init id generator")
	}
	return &UserStore{
		users:  make(map[string]domain.User),
		ids:    node,
		hasher: hasher,
		tokens: tokens,
	}, nil
}

// normalizeEmail is the user key: emails differing only in case or
// surrounding space name the same user.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user. The hash is computed outside the lock; the
// existence check and insert happen under it.
func (s *UserStore) Register(email, password string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, errors.Wrap(domain.ErrValidation, "email and password are required")
	}

	s.mu.RLock()
	_, exists := s.users[email]
	s.mu.RUnlock()
	if exists {
		return domain.User{}, errors.Wrapf(domain.ErrConflict, "email %s", email)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return domain.User{}, errors.Wrapf(domain.ErrConflict, "email %s", email)
	}
	user := domain.User{
		ID:           s.ids.Generate().Int64(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	s.users[email] = user
	return user, nil
}

// Authenticate returns the user when the credentials match
func (s *UserStore) Authenticate(username, password string) (domain.User, error) {
	s.mu.RLock()
	user, ok := s.users[normalizeEmail(username)]
	s.mu.RUnlock()

	if !ok || !s.hasher.Verify(user.PasswordHash, password) {
		return domain.User{}, errors.Wrap(domain.ErrUnauthorized, "invalid credentials")
	}
	return user, nil
}

// IssueToken exchanges credentials for a signed access token
func (s *UserStore) IssueToken(username, password string) (Token, error) {
	user, err := s.Authenticate(username, password)
	if err != nil {
		return Token{}, err
	}
	return s.tokens.Issue(user)
}

// VerifyToken is the check used by every protected route
func (s *UserStore) VerifyToken(token string) (*Claims, error) {
	return s.tokens.Verify(token)
}

// Restore inserts users loaded from a snapshot, keeping existing entries
func (s *UserStore) Restore(users []domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		if _, ok := s.users[u.Email]; !ok {
			s.users[u.Email] = u
		}
	}
}

// List returns a copy of all users, in no particular order
func (s *UserStore) List() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out
}

func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
