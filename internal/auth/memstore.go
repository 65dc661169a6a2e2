package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps users and verification codes in process memory. It
// satisfies both UserStore and CodeStore and is meant for tests and local runs.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]User
	codes map[string]VerificationCode
	Now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]User),
		codes: make(map[string]VerificationCode),
		Now:   time.Now,
	}
}

func (s *MemoryStore) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *MemoryStore) CreateUser(_ context.Context, u NewUser) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := NormalizeEmail(u.Email)
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return nil, ErrDuplicateUsername
		}
		if existing.Email == email {
			return nil, ErrDuplicateEmail
		}
	}

	now := s.now()
	user := User{
		ID:           uuid.NewString(),
		Username:     u.Username,
		Email:        email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user
	return &user, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findLocked(func(u User) bool { return u.Email == NormalizeEmail(email) }), nil
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findLocked(func(u User) bool { return u.Username == username }), nil
}

func (s *MemoryStore) FindByUsernameOrEmail(_ context.Context, identifier string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u := s.findLocked(func(u User) bool { return u.Username == identifier }); u != nil {
		return u, nil
	}
	return s.findLocked(func(u User) bool { return u.Email == NormalizeEmail(identifier) }), nil
}

func (s *MemoryStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = s.now()
	s.users[userID] = u
	return nil
}

func (s *MemoryStore) UpdateEmail(_ context.Context, userID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	email = NormalizeEmail(email)
	for id, other := range s.users {
		if id != userID && other.Email == email {
			return ErrDuplicateEmail
		}
	}
	u.Email = email
	u.UpdatedAt = s.now()
	s.users[userID] = u
	return nil
}

func (s *MemoryStore) Issue(_ context.Context, p IssueParams) (*VerificationCode, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	vc := VerificationCode{
		ID:        uuid.NewString(),
		Purpose:   p.Purpose,
		UserID:    copyString(p.UserID),
		Email:     NormalizeEmail(p.Email),
		CodeHash:  HashString(p.Code),
		ExpiresAt: now.Add(p.TTL),
		CreatedAt: now,
	}
	s.codes[vc.ID] = vc

	out := vc
	out.Code = p.Code
	return &out, nil
}

func (s *MemoryStore) Consume(_ context.Context, m CodeMatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vc, ok := s.matchLocked(m)
	if !ok {
		return false, nil
	}
	vc.Used = true
	s.codes[vc.ID] = vc
	return true, nil
}

func (s *MemoryStore) Check(_ context.Context, m CodeMatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.matchLocked(m)
	return ok, nil
}

// Codes returns a snapshot of every stored code, newest first.
func (s *MemoryStore) Codes() []VerificationCode {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]VerificationCode, 0, len(s.codes))
	for _, vc := range s.codes {
		vc.UserID = copyString(vc.UserID)
		out = append(out, vc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) matchLocked(m CodeMatch) (VerificationCode, bool) {
	now := s.now()
	hash := HashString(m.Code)
	email := NormalizeEmail(m.Email)

	var (
		best  VerificationCode
		found bool
	)
	for _, vc := range s.codes {
		if vc.Purpose != m.Purpose || !hashEqual(vc.CodeHash, hash) || !vc.Valid(now) {
			continue
		}
		if !sameOwner(vc.UserID, m.UserID) {
			continue
		}
		if email != "" && vc.Email != email {
			continue
		}
		if !found || vc.CreatedAt.After(best.CreatedAt) {
			best, found = vc, true
		}
	}
	return best, found
}

func (s *MemoryStore) findLocked(match func(User) bool) *User {
	for _, u := range s.users {
		if match(u) {
			return &u
		}
	}
	return nil
}

func sameOwner(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
