package http

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

func GenerateToken(secret []byte, identity string) (string, error) {
	claims := Claims{
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ValidateToken(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// IdentityMiddleware resolves the connection's identity from a signed
// cookie, minting one on first contact. The call engine itself never
// derives identity; it trusts what the transport hands over.
func IdentityMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, _ := c.Cookie("idt"); token != "" {
			if claims, err := ValidateToken(secret, token); err == nil {
				c.Set("identity", claims.Identity)
				c.Next()
				return
			}
		}

		identity := c.Query("identity")
		if identity == "" {
			identity = "guest-" + uuid.NewString()[:8]
		}
		token, err := GenerateToken(secret, identity)
		if err == nil {
			c.SetCookie("idt", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("identity", identity)
		c.Next()
	}
}
