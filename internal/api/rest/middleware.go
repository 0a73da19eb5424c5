package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	authorizationHeader = "Authorization"
	bearerType          = "Bearer"
	requestIDHeader     = "X-Request-ID"

	// UserIDKey ключ идентификатора пользователя в контексте gin
	UserIDKey    = "userID"
	requestIDKey = "requestID"

	// AnonymousUser пользователь при отключённой проверке токенов
	AnonymousUser = "anonymous"
)

// AuthMiddleware проверяет bearer-токены, выпущенные сервисом авторизации.
type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware создаёт проверку HS256. Пустой секрет отключает проверку.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// Enabled сообщает, проверяются ли токены.
func (m *AuthMiddleware) Enabled() bool {
	return len(m.secret) > 0
}

// Authenticate кладёт claim sub в контекст под ключом UserIDKey.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.Enabled() {
			c.Set(UserIDKey, AnonymousUser)
			c.Next()
			return
		}

		fields := strings.Fields(c.GetHeader(authorizationHeader))
		if len(fields) != 2 || !strings.EqualFold(fields[0], bearerType) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "missing bearer token"})
			return
		}

		subject, err := m.subject(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": "invalid or expired token"})
			return
		}

		c.Set(UserIDKey, subject)
		c.Next()
	}
}

func (m *AuthMiddleware) subject(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" || strings.ContainsAny(sub, "/\\") || strings.Contains(sub, "..") {
		return "", errors.New("token has no usable subject")
	}
	return sub, nil
}

// RequestLogger присваивает запросу id и пишет строку лога по завершении.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		logger.Info("http request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func userID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
