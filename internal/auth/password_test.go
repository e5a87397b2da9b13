package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct-horse-battery" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !CheckPassword("correct-horse-battery", hash) {
		t.Error("expected matching password to verify")
	}
	if CheckPassword("wrong-password", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	h2, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if h1 == h2 {
		t.Error("expected different salts to produce different hashes")
	}
}
