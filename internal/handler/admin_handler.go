package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dxbfab/site/internal/db"
	"github.com/dxbfab/site/internal/logging"
)

const (
	sessionUserIDKey   = "user_id"
	sessionUsernameKey = "username"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login 校验管理员账号并写入会话
func (a *API) Login(c *gin.Context) {
	var payload loginRequest
	if !bindJSON(c, &payload, "invalid request body") {
		return
	}

	user, err := db.Authenticate(a.db, payload.Username, payload.Password, time.Now().UTC())
	if err != nil {
		if errors.Is(err, db.ErrInvalidCredentials) {
			logging.FromContext(c, a.logger).Info("admin login rejected", zap.String("username", payload.Username))
			respondError(c, http.StatusUnauthorized, "invalid username or password")
			return
		}
		a.respondInternal(c, "admin login failed", err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionUsernameKey, user.Username)
	if err := session.Save(); err != nil {
		a.respondInternal(c, "save session failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": user.ID, "username": user.Username})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		a.respondInternal(c, "clear session failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me 返回当前登录的管理员
func (a *API) Me(c *gin.Context) {
	session := sessions.Default(c)
	c.JSON(http.StatusOK, gin.H{
		"id":       session.Get(sessionUserIDKey),
		"username": session.Get(sessionUsernameKey),
	})
}

// AuthRequired 是一个简单的认证中间件，未登录时返回 401
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if session.Get(sessionUserIDKey) == nil {
			respondError(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}
