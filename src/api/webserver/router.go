package webserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/productporter/productporter/src/api/config"
	"github.com/productporter/productporter/src/api/ingest"
	"github.com/productporter/productporter/src/api/presence"
	"github.com/productporter/productporter/src/api/translate"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, db, rdb)
	return g
}

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	tracker := presence.NewTracker(rdb, cfg.OnlineWindow)
	svc := translate.NewService(db, tracker)
	feed := ingest.NewService(db,
		ingest.NewClient(cfg.FeedBaseURL, cfg.FeedToken, cfg.PullRetries), rdb)

	authH := NewAuth(db, []byte(cfg.JWTSecret))
	trH := NewTranslate(db, svc)
	postsH := NewPosts(db, rdb, svc, feed)

	r.POST("/auth/register", authH.Register)
	r.POST("/auth/login", authH.Login)

	authed := r.Group("/")
	authed.Use(OptionalAuth(db, tracker, []byte(cfg.JWTSecret)))
	{
		limiter := NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
		edits := authed.Group("/")
		edits.Use(RateLimitMiddleware(limiter))
		{
			edits.GET("/translate", trH.Acquire)
			edits.PUT("/translate", trH.Commit)
			edits.POST("/translate", trH.Commit)
		}

		authed.GET("/lock", ModeratorRequired(), trH.Lock)
		authed.GET("/posts", postsH.List)
		authed.GET("/posts/:postid", postsH.Detail)
		authed.GET("/tags", postsH.TagsIndex)
		authed.GET("/tags/:name", postsH.ByTag)
		authed.GET("/pull", ModeratorRequired(), postsH.Pull)
		authed.GET("/briefing/:day", ModeratorRequired(), postsH.Briefing)
	}
}
