package security

import (
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DeviceIdentity describes a field device enrolled with the authority.
type DeviceIdentity struct {
	DeviceID string
	Operator string
	District string
}

type DeviceClaims struct {
	DeviceID string `json:"deviceId"`
	Operator string `json:"operator"`
	District string `json:"district"`
	jwt.RegisteredClaims
}

// CreateDeviceToken mints the long-lived bearer token a device uses for
// sync pushes. Devices go weeks without connectivity, so the expiry is
// measured in months rather than hours.
func CreateDeviceToken(identity *DeviceIdentity, base64Secret string, expiresInSeconds int64) (string, error) {
	secretBytes, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return "", err
	}
	claims := DeviceClaims{
		DeviceID: identity.DeviceID,
		Operator: identity.Operator,
		District: identity.District,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "drillwatch",
			Subject:   identity.DeviceID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expiresInSeconds) * time.Second)),
		},
	}

	// Use HS256 signing method (symmetric key)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secretBytes)
}
