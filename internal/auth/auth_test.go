package auth

import "testing"

func TestRegisterAndLogin(t *testing.T) {
	m := NewManager()

	accountID, token, err := m.Register("alice", "hunter22")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if accountID == 0 {
		t.Fatalf("expected non-zero account id")
	}
	if token == "" {
		t.Fatalf("expected a session token")
	}

	identity, ok := m.VerifyToken(token)
	if !ok {
		t.Fatalf("expected the registration token to verify")
	}
	if identity.UserID != accountID || identity.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	loginID, loginToken, err := m.Login("Alice", "hunter22")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if loginID != accountID {
		t.Fatalf("expected login to resolve to the same account, got %d want %d", loginID, accountID)
	}
	if loginToken == "" {
		t.Fatalf("expected a session token from login")
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	m := NewManager()
	if _, _, err := m.Register("bob", "secretpw"); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if _, _, err := m.Register("BOB", "anotherpw"); err != ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken for a case-insensitive duplicate, got %v", err)
	}
}

func TestRegisterCreditsSignupBonus(t *testing.T) {
	m := NewManager()
	accountID, _, err := m.Register("carol", "hunter22")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	balance, ok := m.Balance(accountID)
	if !ok {
		t.Fatalf("expected a balance for the new account")
	}
	if balance != SignupBonus {
		t.Fatalf("expected signup bonus balance %d, got %d", SignupBonus, balance)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	m := NewManager()
	if _, _, err := m.Register("dave", "correct-password"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, _, err := m.Login("dave", "wrong-password"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyTokenRejectsUnknownToken(t *testing.T) {
	m := NewManager()
	if _, ok := m.VerifyToken("not-a-real-token"); ok {
		t.Fatalf("expected an unknown token to fail verification")
	}
	if _, ok := m.VerifyToken(""); ok {
		t.Fatalf("expected an empty token to fail verification")
	}
}

func TestAdjustBalanceRejectsOverdraft(t *testing.T) {
	m := NewManager()
	accountID, _, err := m.Register("erin", "hunter22")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := m.AdjustBalance(accountID, -(SignupBonus + 1)); err == nil {
		t.Fatalf("expected an error when a balance would go negative")
	}
	balance, _ := m.Balance(accountID)
	if balance != SignupBonus {
		t.Fatalf("expected balance to be unchanged after a rejected overdraft, got %d", balance)
	}
}

func TestRegisterValidatesUsernameAndPassword(t *testing.T) {
	m := NewManager()
	if _, _, err := m.Register("x", "hunter22"); err != ErrInvalidUsername {
		t.Fatalf("expected ErrInvalidUsername for a too-short username, got %v", err)
	}
	if _, _, err := m.Register("validname", "short"); err != ErrInvalidPassword {
		t.Fatalf("expected ErrInvalidPassword for a too-short password, got %v", err)
	}
}
