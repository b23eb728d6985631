package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ridwanfathin/invoice-records-service/internal/domain"
)

// PrincipalKey is the gin context key holding the authenticated domain.Principal
const PrincipalKey = "principal"

// ErrNoSigningSecret is returned when tokens would be signed or verified with an empty key
var ErrNoSigningSecret = errors.New("jwt signing secret is empty")

// Claims represents the JWT claims issued to callers
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed HS256 token for a principal
func GenerateToken(email, role, secret string, expiry time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSigningSecret
	}

	now := time.Now()
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a token and returns its claims
func ParseToken(tokenString, secret string) (*Claims, error) {
	if secret == "" {
		return nil, ErrNoSigningSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// JWTAuth validates the bearer token and stores the caller's principal in the context
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			abortUnauthorized(c, "Authentication is not configured", "InvalidToken")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required", "")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "")
			return
		}

		claims, err := ParseToken(parts[1], secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortUnauthorized(c, "Token has expired", "ExpiredToken")
			} else {
				abortUnauthorized(c, "Invalid or expired token", "InvalidToken")
			}
			return
		}

		if claims.Email == "" {
			abortUnauthorized(c, "Token carries no email", "InvalidToken")
			return
		}

		c.Set(PrincipalKey, domain.Principal{
			Role:  claims.Role,
			Email: domain.NormalizeEmail(claims.Email),
		})

		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			abortUnauthorized(c, "User not authenticated", "")
			return
		}

		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"status":  http.StatusText(http.StatusForbidden),
			"message": "Forbidden: insufficient permissions",
		})
	}
}

// GetPrincipal returns the principal set by JWTAuth
func GetPrincipal(c *gin.Context) (domain.Principal, bool) {
	value, exists := c.Get(PrincipalKey)
	if !exists {
		return domain.Principal{}, false
	}
	principal, ok := value.(domain.Principal)
	return principal, ok
}

func abortUnauthorized(c *gin.Context, message, code string) {
	body := gin.H{
		"status":  http.StatusText(http.StatusUnauthorized),
		"message": message,
	}
	if code != "" {
		body["code"] = code
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, body)
}
