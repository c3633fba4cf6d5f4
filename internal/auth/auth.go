// Package auth stands in for the external Auth service spec.md §1 and §6.3
// name by interface only: the Room Engine and Gateway only ever call
// Verifier.VerifyToken and treat the token as an opaque bearer string.
// Manager is a runnable demo implementation (bcrypt password hashing,
// random session tokens) so cmd/server can serve real traffic end to end
// without a separate Auth deployment.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	tokenBytes        = 32

	// SignupBonus is credited to every newly registered account (spec.md §6.1).
	SignupBonus int64 = 50000
)

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{2,19}$`)

// Identity is what the wire protocol's bearer token resolves to: spec.md
// §6.3's `{userId, username, isAdmin}`.
type Identity struct {
	UserID   uint64
	Username string
	IsAdmin  bool
}

// Verifier is the only operation the Gateway and Lobby need from the Auth
// service: verify(token) -> identity | fail.
type Verifier interface {
	VerifyToken(token string) (Identity, bool)
}

// Manager is an in-memory account/session store. It implements Verifier
// and additionally exposes Register/Login so cmd/server can expose the
// /auth/register and /auth/login contracts itself.
type Manager struct {
	mu sync.Mutex

	nextAccountID uint64
	sessionTTL    time.Duration
	sessions      map[string]sessionRecord
	accountsByID  map[uint64]*accountRecord
	accountsByKey map[string]uint64
}

type sessionRecord struct {
	AccountID uint64
	ExpiresAt time.Time
}

type accountRecord struct {
	AccountID    uint64
	Username     string
	PasswordHash []byte
	IsAdmin      bool
	Balance      int64
}

func NewManager() *Manager {
	return &Manager{
		nextAccountID: 100000,
		sessionTTL:    defaultSessionTTL,
		sessions:      make(map[string]sessionRecord),
		accountsByID:  make(map[uint64]*accountRecord),
		accountsByKey: make(map[string]uint64),
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(strings.TrimSpace(username)) {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func (m *Manager) issueSessionLocked(accountID uint64, now time.Time) string {
	token := mustToken()
	m.sessions[token] = sessionRecord{AccountID: accountID, ExpiresAt: now.Add(m.sessionTTL)}
	return token
}

// Register creates a new account with the signup bonus already credited
// and returns an authenticated session token.
func (m *Manager) Register(username, password string) (accountID uint64, token string, err error) {
	if err = validateUsername(username); err != nil {
		return 0, "", err
	}
	if err = validatePassword(password); err != nil {
		return 0, "", err
	}

	normalized := normalizeUsername(username)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accountsByKey[normalized]; exists {
		return 0, "", ErrUsernameTaken
	}

	m.nextAccountID++
	accountID = m.nextAccountID
	m.accountsByID[accountID] = &accountRecord{
		AccountID:    accountID,
		Username:     normalized,
		PasswordHash: hash,
		Balance:      SignupBonus,
	}
	m.accountsByKey[normalized] = accountID

	token = m.issueSessionLocked(accountID, time.Now())
	return accountID, token, nil
}

func (m *Manager) Login(username, password string) (accountID uint64, token string, err error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return 0, "", ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	accountID, exists := m.accountsByKey[normalized]
	if !exists {
		return 0, "", ErrInvalidCredentials
	}
	acc := m.accountsByID[accountID]
	if acc == nil || bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)) != nil {
		return 0, "", ErrInvalidCredentials
	}

	token = m.issueSessionLocked(accountID, time.Now())
	return accountID, token, nil
}

// VerifyToken implements Verifier.
func (m *Manager) VerifyToken(token string) (Identity, bool) {
	if token == "" {
		return Identity{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	rec, ok := m.sessions[token]
	if !ok {
		return Identity{}, false
	}
	if !now.Before(rec.ExpiresAt) {
		delete(m.sessions, token)
		return Identity{}, false
	}
	rec.ExpiresAt = now.Add(m.sessionTTL)
	m.sessions[token] = rec

	acc := m.accountsByID[rec.AccountID]
	if acc == nil {
		return Identity{}, false
	}
	return Identity{UserID: acc.AccountID, Username: acc.Username, IsAdmin: acc.IsAdmin}, true
}

// Balance and AdjustBalance give the demo Lobby/HTTP layer somewhere to
// keep wallet state without a separate Store round-trip. A deployment
// wired to a real Auth service would instead read balance from the
// Persistence Adapter's users table.
func (m *Manager) Balance(accountID uint64) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accountsByID[accountID]
	if acc == nil {
		return 0, false
	}
	return acc.Balance, true
}

func (m *Manager) AdjustBalance(accountID uint64, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accountsByID[accountID]
	if acc == nil {
		return 0, fmt.Errorf("unknown account %d", accountID)
	}
	if acc.Balance+delta < 0 {
		return 0, fmt.Errorf("insufficient balance")
	}
	acc.Balance += delta
	return acc.Balance, nil
}

func (m *Manager) SetAdmin(accountID uint64, isAdmin bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc := m.accountsByID[accountID]; acc != nil {
		acc.IsAdmin = isAdmin
	}
}

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
