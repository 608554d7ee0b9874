package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensbook/lensbook-backend/pkg/config"
	"github.com/lensbook/lensbook-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "lensbook",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID: userID,
		Role:   enums.RolePhotographer,
		JTI:    "session-1",
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, enums.RolePhotographer, claims.Role)
	assert.Equal(t, "session-1", claims.ID)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)

	exp := now.Add(30 * time.Minute)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestMintGeneratesJTI(t *testing.T) {
	token, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleCustomer,
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(testJWTConfig(), token)
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token+"x")
	assert.Error(t, err)

	other := cfg
	other.Secret = "other"
	_, err = ParseAccessToken(other, token)
	assert.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleCustomer,
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleCustomer, claims.Role)
}

func TestMintAccessTokenRejectsInvalidInput(t *testing.T) {
	cfg := testJWTConfig()
	cases := map[string]AccessTokenPayload{
		"empty role":  {UserID: uuid.New()},
		"system role": {UserID: uuid.New(), Role: enums.RoleSystem},
		"no user":     {Role: enums.RoleAdmin},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := MintAccessToken(cfg, time.Now(), payload)
			assert.Error(t, err)
		})
	}

	noExpiry := cfg
	noExpiry.ExpirationMinutes = 0
	_, err := MintAccessToken(noExpiry, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	assert.Error(t, err)
}

func TestParseAccessTokenRejectsForeignClaims(t *testing.T) {
	cfg := testJWTConfig()
	sign := func(claims AccessTokenClaims) string {
		t.Helper()
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
		require.NoError(t, err)
		return raw
	}
	userID := uuid.New()
	registered := func(subject string) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
	}

	cases := map[string]AccessTokenClaims{
		"system role":      {UserID: userID, Role: enums.RoleSystem, RegisteredClaims: registered(userID.String())},
		"subject mismatch": {UserID: userID, Role: enums.RoleCustomer, RegisteredClaims: registered(uuid.NewString())},
		"no user":          {Role: enums.RoleAdmin, RegisteredClaims: registered(uuid.Nil.String())},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken(cfg, sign(claims))
			assert.ErrorIs(t, err, ErrInvalidClaims)
		})
	}

	noExpiry := AccessTokenClaims{UserID: userID, Role: enums.RoleCustomer, RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer, Subject: userID.String()}}
	_, err := ParseAccessToken(cfg, sign(noExpiry))
	assert.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)
}

func TestParseAccessTokenToleratesClockSkew(t *testing.T) {
	cfg := testJWTConfig()
	cfg.ExpirationMinutes = 1
	token, err := MintAccessToken(cfg, time.Now().Add(-70*time.Second), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RolePhotographer,
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.NoError(t, err)
}

func TestParseAccessTokenRejectsOtherIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)

	other := cfg
	other.Issuer = "someone-else"
	_, err = ParseAccessToken(other, token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}
