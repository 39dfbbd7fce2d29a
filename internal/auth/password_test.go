package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashVerify(t *testing.T) {
	ps := newPasswordServiceWithCost(bcrypt.MinCost)

	hash, err := ps.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$04$") {
		t.Errorf("Hash() = %q, want a cost-4 bcrypt hash", hash)
	}

	if err := ps.Verify(hash, "correct horse"); err != nil {
		t.Errorf("Verify(right password) = %v", err)
	}
	for _, wrong := range []string{"correct horse ", "Correct horse", ""} {
		if err := ps.Verify(hash, wrong); err == nil {
			t.Errorf("Verify(%q) succeeded, want error", wrong)
		}
	}
}

func TestPasswordHash_Salted(t *testing.T) {
	ps := newPasswordServiceWithCost(bcrypt.MinCost)

	a, _ := ps.Hash("same")
	b, _ := ps.Hash("same")
	if a == b {
		t.Error("two hashes of the same password are identical")
	}
}

func TestPasswordHash_Length(t *testing.T) {
	ps := newPasswordServiceWithCost(bcrypt.MinCost)

	if _, err := ps.Hash(strings.Repeat("p", MaxPasswordBytes)); err != nil {
		t.Errorf("Hash(%d bytes) error: %v", MaxPasswordBytes, err)
	}
	if _, err := ps.Hash(strings.Repeat("p", MaxPasswordBytes+1)); err == nil {
		t.Errorf("Hash(%d bytes) succeeded, want error", MaxPasswordBytes+1)
	}
}

func TestPasswordVerify_CorruptHash(t *testing.T) {
	ps := NewPasswordServiceForTest(bcrypt.MinCost)

	if err := ps.Verify("not-a-bcrypt-hash", "anything"); err == nil {
		t.Error("Verify() with a corrupt hash succeeded")
	}
}

func TestNewPasswordService_DefaultCost(t *testing.T) {
	if got := NewPasswordService().cost; got != defaultCost {
		t.Errorf("cost = %d, want %d", got, defaultCost)
	}
}
