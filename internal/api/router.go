package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"table-booking-backend/internal/auth"
	"table-booking-backend/internal/mw"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	Gate           auth.Gate
	CookieName     string
	// Limiter is shared with the caller so it can evict idle clients. When
	// nil, one is built from RateLimit and RateBurst.
	Limiter        *mw.IPRateLimiter
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := opts.Limiter
	if limiter == nil {
		if opts.RateLimit <= 0 {
			opts.RateLimit = rate.Limit(10)
		}
		if opts.RateBurst <= 0 {
			opts.RateBurst = 5
		}
		limiter = mw.NewIPRateLimiter(opts.RateLimit, opts.RateBurst)
	}
	authenticated := mw.Authenticate(opts.Gate, opts.CookieName)

	var caching gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if h.cache != nil {
		caching = h.cache.Middleware()
	}

	// API group
	api := r.Group("/api")
	api.Use(limiter.Middleware(), mw.Timeout(opts.RequestTimeout))
	{
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/logout", h.Logout)

		api.GET("/restaurants", caching, h.ListRestaurants)
		api.GET("/restaurants/:id", caching, h.GetRestaurant)
		api.GET("/restaurants/:id/availability", h.GetAvailability)

		user := api.Group("", authenticated)
		user.GET("/profile", h.GetProfile)
		user.PUT("/profile/password", h.ChangePassword)
		user.POST("/reservations", h.CreateReservation)
		user.GET("/reservations", h.ListReservations)
		user.DELETE("/reservations/:id", h.CancelReservation)
		user.GET("/reservations/:id/qr", h.GetReservationQR)

		admin := api.Group("/admin", authenticated, mw.AdminRequired())
		admin.POST("/restaurants", h.CreateRestaurant)
		admin.PUT("/restaurants/:id", h.UpdateRestaurant)
		admin.DELETE("/restaurants", h.RemoveRestaurant)
	}

	return r
}
