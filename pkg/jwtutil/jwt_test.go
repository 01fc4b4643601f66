package jwtutil

import (
	"strings"
	"testing"

	"menu-service/pkg/config"
)

func TestGenerateAndValidateToken(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	companyID := uint(7)
	token, err := GenerateToken("owner@example.com", 42, "Ada", &companyID, "Pro")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected a JWT with three segments, got %q", token)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Email != "owner@example.com" {
		t.Errorf("Email = %q, want owner@example.com", claims.Email)
	}
	if claims.FirstName != "Ada" {
		t.Errorf("FirstName = %q, want Ada", claims.FirstName)
	}
	if claims.CompanyID == nil || *claims.CompanyID != 7 {
		t.Errorf("CompanyID = %v, want 7", claims.CompanyID)
	}
	if claims.SubscriptionTier != "Pro" {
		t.Errorf("SubscriptionTier = %q, want Pro", claims.SubscriptionTier)
	}
	if claims.ExpiresAt == nil {
		t.Error("expected an expiry claim")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: -1})

	token, err := GenerateToken("owner@example.com", 1, "Ada", nil, "Free")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})
	if _, err := ValidateToken(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestValidateToken_WrongKey(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "key-one", ExpirationHours: 1})
	token, err := GenerateToken("owner@example.com", 1, "Ada", nil, "Free")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	Initialize(&config.JWTConfig{SigningKey: "key-two", ExpirationHours: 1})
	if _, err := ValidateToken(token); err == nil {
		t.Error("expected token signed with a different key to be rejected")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})
	if _, err := ValidateToken("not-a-token"); err == nil {
		t.Error("expected malformed token to be rejected")
	}
}
