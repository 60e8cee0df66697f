package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the station identity inside a bridge access token.
type Claims struct {
	Station string `json:"station"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

const RoleGM = "gm"

// gmCommands are the commands only the game master may issue.
var gmCommands = map[string]bool{
	"set_reactor_output":   true,
	"apply_system_damage":  true,
	"repair_system":        true,
	"set_available_droids": true,
}

// gmAuth gates GM-only commands behind a valid token with the gm role.
// Commands outside the GM set pass through untouched so local station UIs
// work without credentials.
func (g *Gateway) gmAuth(c *gin.Context, commandName string) bool {
	if !gmCommands[commandName] {
		return true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "gm command requires authorization"})
		return false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
		return false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(g.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return false
	}
	if claims.Role != RoleGM {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return false
	}

	c.Set("station", claims.Station)
	return true
}

// SignToken mints a bridge access token. Used by the GM console tooling and
// by tests.
func SignToken(secret, station, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		Station: station,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
