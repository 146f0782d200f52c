package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"parking-locator/internal/live"
	"parking-locator/internal/logger"
	"parking-locator/internal/mw"
)

// RouterOptions carries the middleware settings of NewRouter.
type RouterOptions struct {
	RateLimit   rate.Limit
	RateBurst   int
	CORSOrigins []string
	Cache       *mw.ResponseCache
	Hub         *live.Hub
	Log         *logger.Logger
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	caching := func(c *gin.Context) { c.Next() }
	if opts.Cache != nil {
		caching = opts.Cache.Middleware()
	}

	r := gin.New()
	r.Use(mw.RequestID(), mw.Logger(log), mw.Recovery(log))
	if len(opts.CORSOrigins) > 0 {
		r.Use(mw.CORS(opts.CORSOrigins))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(mw.RateLimiter(opts.RateLimit, opts.RateBurst, log))
	{
		api.GET("/spots", caching, h.ListSpots)
		api.GET("/spots/closest-free", h.ClosestFreeSpot)
		api.GET("/spots/:id/detail", h.auth.Identify(), h.SpotDetail)
		api.GET("/spots/:id/history", caching, h.SpotHistory)

		users := api.Group("/users/:id", h.auth.Authenticate(), h.auth.RequireUserParam("id"))
		users.GET("/favourite-spot", h.GetFavouriteSpot)
		users.PUT("/favourite-spot", h.PutFavouriteSpot)
		users.GET("/notifications", h.ListNotifications)
		users.DELETE("/notifications/spots/:spotId", h.UnsubscribeByUserAndSpot)
		users.PUT("/push-subscription", h.PutPushSubscription)

		api.POST("/notifications", h.auth.Authenticate(), h.Subscribe)
		api.DELETE("/notifications/:id", h.auth.Authenticate(), h.DeleteNotification)

		api.POST("/auth/token", h.IssueToken)
		api.POST("/auth/resend-password", h.ResendPassword)

		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
		if opts.Hub != nil {
			api.GET("/ws", opts.Hub.Handler())
		}
	}

	return r
}
