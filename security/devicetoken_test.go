package security

import (
	"encoding/base64"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDeviceToken(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	b64 := base64.StdEncoding.EncodeToString(secret)

	tokenStr, err := CreateDeviceToken(&DeviceIdentity{
		DeviceID: "dev-042",
		Operator: "A. Sharma",
		District: "East Sikkim",
	}, b64, 3600)
	require.NoError(t, err)

	claims := &DeviceClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "dev-042", claims.DeviceID)
	assert.Equal(t, "East Sikkim", claims.District)
	assert.Equal(t, "drillwatch", claims.Issuer)
	assert.Equal(t, "dev-042", claims.Subject)
}

func TestCreateDeviceTokenBadSecret(t *testing.T) {
	_, err := CreateDeviceToken(&DeviceIdentity{DeviceID: "dev-1"}, "not base64!!", 60)
	assert.Error(t, err)
}
