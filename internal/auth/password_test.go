package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestPasswordService() *PasswordService {
	return NewPasswordServiceWithCost(bcrypt.MinCost)
}

func TestHash(t *testing.T) {
	ps := newTestPasswordService()

	first, err := ps.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(first, "$2a$") {
		t.Errorf("Hash() = %q, want bcrypt $2a$ prefix", first)
	}

	second, _ := ps.Hash("correct horse")
	if first == second {
		t.Error("Hash() should salt: same password gave identical hashes")
	}
}

func TestHash_Length(t *testing.T) {
	ps := newTestPasswordService()

	if _, err := ps.Hash(strings.Repeat("a", maxPasswordBytes)); err != nil {
		t.Errorf("Hash() of %d bytes error = %v", maxPasswordBytes, err)
	}
	if _, err := ps.Hash(strings.Repeat("a", maxPasswordBytes+1)); err == nil {
		t.Errorf("Hash() should reject %d bytes", maxPasswordBytes+1)
	}
}

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := ps.Verify(hash, "correct horse"); err != nil {
		t.Errorf("Verify(correct) error = %v", err)
	}
	if err := ps.Verify(hash, "battery staple"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Verify(wrong) error = %v, want ErrWrongPassword", err)
	}
	if err := ps.Verify(hash, ""); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Verify(empty) error = %v, want ErrWrongPassword", err)
	}

	err = ps.Verify("not-a-bcrypt-hash", "correct horse")
	if err == nil || errors.Is(err, ErrWrongPassword) {
		t.Errorf("Verify(garbage hash) error = %v, want a non-mismatch error", err)
	}
}
