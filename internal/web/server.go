package web

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Stas733/digital-shop/internal/delivery"
	"github.com/Stas733/digital-shop/internal/metrics"
	"github.com/Stas733/digital-shop/internal/storage"
)

// Catalog covers the item store operations used by the handlers.
type Catalog interface {
	GetItem(id int64) (*storage.ItemRecord, error)
	ListItems() ([]*storage.ItemRecord, error)
	CreateFileItem(name, filePath, instruction string) (int64, error)
	CreateKeyItem(name, keyValue, instruction string) (int64, error)
}

// Redeemer consumes single-use download tokens.
type Redeemer interface {
	RedeemToken(token string) (*storage.ItemRecord, error)
}

// DeliveryResolver produces delivery codes for catalog items.
type DeliveryResolver interface {
	Resolve(itemID int64) (*delivery.Delivery, error)
}

// Server is the digital-shop web server
type Server struct {
	catalog  Catalog
	tokens   Redeemer
	resolver DeliveryResolver
	filesDir string
	router   *gin.Engine
}

// NewServer creates a new web server. filesDir is where uploaded
// artifacts are stored.
func NewServer(catalog Catalog, tokens Redeemer, resolver DeliveryResolver, filesDir string) *Server {
	router := gin.Default()

	s := &Server{
		catalog:  catalog,
		tokens:   tokens,
		resolver: resolver,
		filesDir: filesDir,
		router:   router,
	}

	router.Use(metricsMiddleware())

	router.GET("/health", s.handleHealth)
	router.GET("/download", s.handleDownload)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/deliver/:id", s.handleDeliver)
		api.GET("/items", s.handleListItems)
		api.POST("/items/key", s.handleAddKey)
		api.POST("/items/file", s.handleAddFile)
	}

	return s
}

// Router exposes the gin engine for embedding into an http.Server.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the web server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// metricsMiddleware records per-request counters and latency.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(
			handler, c.Request.Method, strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(handler).Observe(time.Since(start).Seconds())
	}
}
