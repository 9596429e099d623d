package handler

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Transactional 为每个请求开启一个数据库事务。
// 响应先写入缓冲区：状态码小于 400 时先提交再发送，提交失败改为返回 500；
// 否则回滚后发送。panic 时回滚并丢弃缓冲内容后继续向上抛出。
func (a *API) Transactional() gin.HandlerFunc {
	return func(c *gin.Context) {
		tx := a.db.WithContext(c.Request.Context()).Begin()
		if tx.Error != nil {
			a.log.Error("begin transaction failed", "err", tx.Error)
			respondError(c, http.StatusInternalServerError, "Internal server error")
			c.Abort()
			return
		}
		c.Set(txContextKey, tx)

		original := c.Writer
		buffered := newBufferedWriter(original)
		c.Writer = buffered

		defer func() {
			if r := recover(); r != nil {
				c.Writer = original
				tx.Rollback()
				panic(r)
			}
		}()

		c.Next()
		c.Writer = original

		if buffered.Status() >= http.StatusBadRequest {
			if err := tx.Rollback().Error; err != nil {
				a.log.Warn("rollback transaction failed", "err", err)
			}
			buffered.flush()
			return
		}
		if err := tx.Commit().Error; err != nil {
			c.Error(err)
			a.log.Error("commit transaction failed", "path", c.FullPath(), "err", err)
			respondError(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		buffered.flush()
	}
}

// bufferedWriter 暂存响应头、状态码与响应体，直到事务结束才写给客户端
type bufferedWriter struct {
	gin.ResponseWriter
	header  http.Header
	status  int
	body    bytes.Buffer
	written bool
}

func newBufferedWriter(w gin.ResponseWriter) *bufferedWriter {
	header := w.Header().Clone()
	if header == nil {
		header = http.Header{}
	}
	return &bufferedWriter{ResponseWriter: w, header: header, status: http.StatusOK}
}

func (w *bufferedWriter) Header() http.Header {
	return w.header
}

func (w *bufferedWriter) WriteHeader(code int) {
	if code > 0 && !w.written {
		w.status = code
	}
}

func (w *bufferedWriter) WriteHeaderNow() {
	w.written = true
}

func (w *bufferedWriter) Write(data []byte) (int, error) {
	w.written = true
	return w.body.Write(data)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	w.written = true
	return w.body.WriteString(s)
}

func (w *bufferedWriter) Status() int {
	return w.status
}

func (w *bufferedWriter) Size() int {
	if !w.written {
		return -1
	}
	return w.body.Len()
}

func (w *bufferedWriter) Written() bool {
	return w.written
}

// Flush 只在事务结束后生效，处理过程中不向客户端推送
func (w *bufferedWriter) Flush() {}

// flush 把缓冲的状态码和响应体写给底层连接
func (w *bufferedWriter) flush() {
	dst := w.ResponseWriter.Header()
	for key, values := range w.header {
		dst[key] = values
	}
	w.ResponseWriter.WriteHeader(w.status)
	if w.body.Len() == 0 {
		w.ResponseWriter.WriteHeaderNow()
		return
	}
	_, _ = w.ResponseWriter.Write(w.body.Bytes())
}

// AuthRequired 校验 Authorization: Bearer 令牌并解析当前用户
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			respondUnauthorized(c, "Not authenticated")
			c.Abort()
			return
		}
		if !a.resolveUser(c, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth 没有 Authorization 头时匿名放行；携带了无效令牌仍返回 401
func (a *API) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetHeader("Authorization")) == "" {
			c.Next()
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			respondUnauthorized(c, "Not authenticated")
			c.Abort()
			return
		}
		if !a.resolveUser(c, token) {
			return
		}
		c.Next()
	}
}

// AdminRequired 需挂在 AuthRequired 之后
func (a *API) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			respondUnauthorized(c, "Not authenticated")
			c.Abort()
			return
		}
		if !user.IsAdmin {
			respondError(c, http.StatusForbidden, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequestLogger 记录每个请求的方法、路径、状态码、耗时和用户
func (a *API) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if user := currentUser(c); user != nil {
			fields = append(fields, "user_id", user.ID)
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			a.log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			a.log.Warn("request", fields...)
		default:
			a.log.Info("request", fields...)
		}
	}
}

func (a *API) resolveUser(c *gin.Context, token string) bool {
	user, err := a.authService(c).ResolveToken(token)
	if err != nil {
		a.handleServiceError(c, err, "")
		c.Abort()
		return false
	}
	c.Set(currentUserContextKey, user)
	return true
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
