package auth

import (
	"testing"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/models"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	user := models.User{ID: "u1", Username: "ops"}

	token, err := GenerateJWT(user)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "ops" {
		t.Errorf("claims: got %+v", claims)
	}
}

func TestValidateJWT_Garbage(t *testing.T) {
	if _, err := ValidateJWT("not.a.jwt"); err == nil {
		t.Error("garbage token should not validate")
	}
}

func TestPrincipal(t *testing.T) {
	token, err := GenerateJWT(models.User{ID: "u1", Username: "ops"})
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if got := Principal(token); got != "ops" {
		t.Errorf("Principal(jwt): got %q, want ops", got)
	}

	// Non-JWT tokens are accepted as-is.
	if got := Principal("opaque-token"); got != "opaque-token" {
		t.Errorf("Principal(opaque): got %q, want opaque-token", got)
	}
}
