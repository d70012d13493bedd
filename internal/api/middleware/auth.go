package middleware

import (
	"errors"
	"strings"

	"menu-gen-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// gin context 中的呼叫者鍵
const (
	CallerIDKey = "caller_id"
	UserIDKey   = "user_id"
)

var errInvalidToken = errors.New("invalid token")

// CallerIdentity 決定呼叫者身分
// 帶有有效 Bearer token 時以 token 的 subject 為使用者，否則以用戶端 IP 識別。
// secret 為空時不驗證 token。
func CallerIdentity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if secret == "" || header == "" {
			c.Set(CallerIDKey, "ip:"+c.ClientIP())
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		subject, err := ParseSubject(parts[1], secret)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		c.Set(UserIDKey, subject)
		c.Set(CallerIDKey, "user:"+subject)
		c.Next()
	}
}

// ParseSubject 驗證 HS256 token 並取得使用者 ID
func ParseSubject(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errInvalidToken
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	// 相容以 user_id 簽發的 token
	if id, ok := claims["user_id"].(string); ok && id != "" {
		return id, nil
	}
	return "", errInvalidToken
}

func abortUnauthorized(c *gin.Context, err error) {
	common.LogWarn("Token 驗證失敗",
		zap.Error(err),
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)
	status, body := common.ErrorStatus(common.ErrUnauthorized)
	c.AbortWithStatusJSON(status, body)
}
