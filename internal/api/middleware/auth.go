package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/YassinSultan/CoreSystem-Backend/internal/api/response"
	jwtutil "github.com/YassinSultan/CoreSystem-Backend/pkg/jwt"
)

const claimsContextKey = "claims"

type Claims = jwtutil.Claims

// JWTAuth validates the bearer token against the injected secret and stores
// the claims for downstream handlers.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			response.Fail(c, http.StatusUnauthorized, "غير مصرح")
			c.Abort()
			return
		}

		claims, err := jwtutil.ParseAccessToken(tokenString, secret)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "غير مصرح")
			c.Abort()
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(roles) == 0 {
			c.Next()
			return
		}

		claims, ok := GetClaims(c)
		if !ok {
			response.Fail(c, http.StatusUnauthorized, "غير مصرح")
			c.Abort()
			return
		}

		for _, role := range roles {
			if strings.EqualFold(claims.Role, role) {
				c.Next()
				return
			}
		}

		response.Fail(c, http.StatusForbidden, "ليس لديك صلاحية")
		c.Abort()
	}
}

func GetClaims(c *gin.Context) (*Claims, bool) {
	val, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := val.(*Claims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}

// Principal returns the authenticated user id, or uuid.Nil when the route is
// unauthenticated.
func Principal(c *gin.Context) uuid.UUID {
	claims, ok := GetClaims(c)
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func IsAdmin(c *gin.Context) bool {
	claims, ok := GetClaims(c)
	return ok && strings.EqualFold(claims.Role, "admin")
}

func tokenFromRequest(c *gin.Context) string {
	if cookieToken, err := c.Cookie("access_token"); err == nil && cookieToken != "" {
		return cookieToken
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}
