package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/makolahq/makola-backend/pkg/config"
	"github.com/makolahq/makola-backend/pkg/enums"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "makola",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()
	userID := uuid.New()
	sellerID := uuid.New()

	payload := AccessTokenPayload{
		UserID:   userID,
		Role:     enums.RoleSeller,
		SellerID: &sellerID,
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != enums.RoleSeller {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.SellerID == nil || *claims.SellerID != sellerID {
		t.Fatalf("seller id not preserved")
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatalf("expected a generated jti")
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	base := config.JWTConfig{Secret: "secret", Issuer: "makola", ExpirationMinutes: 30}

	cases := []struct {
		name    string
		cfg     config.JWTConfig
		payload AccessTokenPayload
		want    string
	}{
		{
			name:    "missing secret",
			cfg:     config.JWTConfig{Issuer: "makola", ExpirationMinutes: 30},
			payload: AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleBuyer},
			want:    "secret",
		},
		{
			name:    "invalid role",
			cfg:     base,
			payload: AccessTokenPayload{UserID: uuid.New(), Role: "ghost"},
			want:    "invalid actor role",
		},
		{
			name:    "seller without seller id",
			cfg:     base,
			payload: AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleSeller},
			want:    "seller id",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := MintAccessToken(tc.cfg, time.Now(), tc.payload)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	mintCfg := config.JWTConfig{Secret: "secret", Issuer: "someone-else", ExpirationMinutes: 30}
	token, err := MintAccessToken(mintCfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleBuyer})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	parseCfg := config.JWTConfig{Secret: "secret", Issuer: "makola", ExpirationMinutes: 30}
	if _, err := ParseAccessToken(parseCfg, token); err == nil {
		t.Fatalf("expected issuer mismatch to fail")
	}
}
