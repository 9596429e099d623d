package handler

import (
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/habittracker/internal/auth"
	"github.com/habittracker/internal/db"
	"github.com/habittracker/internal/logger"
	"github.com/habittracker/internal/service"
	"gorm.io/gorm"
)

const (
	txContextKey          = "__db_tx"
	currentUserContextKey = "__current_user"
)

// API bundles shared dependencies for HTTP handlers.
// 服务实例按请求构造，绑定到当前请求的事务上。
type API struct {
	db         *gorm.DB
	tokens     *auth.TokenIssuer
	clock      service.Clock
	bcryptCost int
	log        *log.Logger
}

// Options 描述构造 API 所需的依赖
type Options struct {
	DB         *gorm.DB
	Tokens     *auth.TokenIssuer
	Clock      service.Clock
	BcryptCost int
	Logger     *log.Logger
}

// NewAPI constructs a handler set with shared dependencies.
func NewAPI(opts Options) *API {
	l := opts.Logger
	if l == nil {
		l = logger.Discard()
	}
	return &API{
		db:         opts.DB,
		tokens:     opts.Tokens,
		clock:      opts.Clock,
		bcryptCost: opts.BcryptCost,
		log:        l,
	}
}

// dbFor 返回当前请求的事务；没有事务中间件时退回到连接池
func (a *API) dbFor(c *gin.Context) *gorm.DB {
	if value, exists := c.Get(txContextKey); exists {
		if tx, ok := value.(*gorm.DB); ok {
			return tx
		}
	}
	return a.db.WithContext(c.Request.Context())
}

func (a *API) authService(c *gin.Context) *service.AuthService {
	return service.NewAuthService(a.dbFor(c), a.tokens)
}

func (a *API) userService(c *gin.Context) *service.UserService {
	return service.NewUserService(a.dbFor(c), a.bcryptCost)
}

func (a *API) habitService(c *gin.Context) *service.HabitService {
	return service.NewHabitService(a.dbFor(c), a.clock)
}

func (a *API) completionService(c *gin.Context) *service.CompletionService {
	return service.NewCompletionService(a.dbFor(c), a.clock)
}

// currentUser 返回认证中间件写入的用户，未认证时为 nil
func currentUser(c *gin.Context) *db.User {
	if value, exists := c.Get(currentUserContextKey); exists {
		if user, ok := value.(*db.User); ok {
			return user
		}
	}
	return nil
}
