package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"drillwatch.org/drillwatch/security"
	"drillwatch.org/drillwatch/web/common"
)

func parseJwt(tokenStr string, jwtSecret []byte) (*jwt.Token, *security.DeviceClaims, error) {
	claims := &security.DeviceClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the signing method is HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})
	return token, claims, err
}

// Authentication checks for a valid device Bearer token and stores the
// device claims on the request context.
func Authentication(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				common.NewErrorResponse("unauthorized", "missing Authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				common.NewErrorResponse("unauthorized", "malformed Authorization header"))
			return
		}

		token, claims, err := parseJwt(parts[1], jwtSecret)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				common.NewErrorResponse("unauthorized", "invalid or expired token"))
			return
		}

		c.Set("device", claims)
		c.Next()
	}
}

// DeviceClaims returns the claims stored by Authentication, or nil on an
// unauthenticated route.
func DeviceClaims(c *gin.Context) *security.DeviceClaims {
	if v, ok := c.Get("device"); ok {
		if claims, ok := v.(*security.DeviceClaims); ok {
			return claims
		}
	}
	return nil
}
