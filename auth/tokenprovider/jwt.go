package tokenprovider

import (
	"time"

	"github.com/firebolt-db/firebolt-sql-go/logger"
	"github.com/golang-jwt/jwt/v5"
)

// expiryFromJWT reads the exp claim of an access token.
// Returns the zero time when the token is not a JWT or carries no expiry.
func expiryFromJWT(accessToken string) time.Time {
	// the signature is checked by the service, only the claims are needed here
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		logger.Debug().Msg("token provider: access token is not a JWT, no expiry")
		return time.Time{}
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// expiresAt computes the expiry of a token response.
func expiresAt(accessToken string, expiresIn int64) time.Time {
	if expiresIn > 0 {
		return time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return expiryFromJWT(accessToken)
}
