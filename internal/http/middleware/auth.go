package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/platform/ctxutil"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

// TenantClaims are the claims of a back office access token. Tokens are
// issued by the identity provider; this service only verifies them.
type TenantClaims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
	issuer string
}

func NewAuthMiddleware(log *logger.Logger, secret, issuer string) *AuthMiddleware {
	middlewareLogger := log.With("middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLogger, secret: []byte(secret), issuer: issuer}
}

// RequireTenant rejects requests without a valid bearer token and attaches the
// token's tenant and user to the request context.
func (am *AuthMiddleware) RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		rd, err := am.Verify(tokenString)
		if err != nil {
			am.log.Debug("Rejected token", "error", err)
			abortAuth(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Set("tenant_id", rd.TenantID.String())
		c.Next()
	}
}

// RequireRole allows only callers whose token carries one of roles.
func (am *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
			return
		}
		for _, r := range roles {
			if strings.EqualFold(rd.Role, r) {
				c.Next()
				return
			}
		}
		abortAuth(c, http.StatusForbidden, "forbidden", "insufficient role")
	}
}

func (am *AuthMiddleware) Verify(tokenString string) (*ctxutil.RequestData, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if am.issuer != "" {
		opts = append(opts, jwt.WithIssuer(am.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &TenantClaims{}, func(*jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired token: %w", err)
	}
	claims, ok := parsed.Claims.(*TenantClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid or expired token")
	}
	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil || tenantID == uuid.Nil {
		return nil, errors.New("token has no tenant")
	}
	rd := &ctxutil.RequestData{TenantID: tenantID, Role: claims.Role}
	if claims.Subject != "" {
		if userID, err := uuid.Parse(claims.Subject); err == nil {
			rd.UserID = userID
		}
	}
	return rd, nil
}

// IssueToken signs an access token for tenantID. Used by the CLI and tests.
func IssueToken(secret, issuer string, tenantID, userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TenantClaims{
		TenantID: tenantID.String(),
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func abortAuth(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"message": msg, "code": code},
	})
}

func extractTokenFromAll(c *gin.Context) string {
	// EventSource cannot set headers.
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
