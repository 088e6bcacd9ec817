package security

import (
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hashed, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !CheckPassword(hashed, "s3cret-pass") {
		t.Fatalf("expected matching password to verify")
	}
	if CheckPassword(hashed, "wrong-pass") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestIssueAndParseAdminToken(t *testing.T) {
	token, err := IssueAdminToken("test-secret", 7, "admin", time.Hour)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	claims, errParse := ParseAdminToken("test-secret", token)
	if errParse != nil {
		t.Fatalf("expected parse ok, got %v", errParse)
	}
	if claims.AdminID != 7 {
		t.Fatalf("expected admin_id=7, got %d", claims.AdminID)
	}
	if claims.Username != "admin" {
		t.Fatalf("expected username=admin, got %q", claims.Username)
	}

	if _, errBad := ParseAdminToken("other-secret", token); errBad == nil {
		t.Fatalf("expected wrong-secret parse to fail")
	}
}

func TestIssueAdminToken_EmptySecret(t *testing.T) {
	if _, err := IssueAdminToken("", 1, "admin", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
