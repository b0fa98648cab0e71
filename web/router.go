package web

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/plork/plork/activitypub"
	"github.com/plork/plork/db"
	"github.com/plork/plork/util"
)

var webLogger = log.WithPrefix("web")

// Server wires the HTTP surface to the store and the activity processors.
type Server struct {
	conf   *util.AppConfig
	store  *db.DB
	inbox  *activitypub.Inbox
	outbox *activitypub.Outbox
}

func NewServer(conf *util.AppConfig, store *db.DB, inbox *activitypub.Inbox, outbox *activitypub.Outbox) *Server {
	return &Server{conf: conf, store: store, inbox: inbox, outbox: outbox}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	g := gin.New()
	g.Use(gin.Recovery())
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	g.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"server": util.GetNameAndVersion()})
	})

	// RSS feed of notes
	g.GET("/feed", s.handleFeed)
	g.GET("/feed/:id", s.handleFeedItem)

	// Stricter rate limit for ActivityPub endpoints: 5 req/sec per IP
	apLimiter := RateLimitMiddleware(NewRateLimiter(rate.Limit(5), 10))

	// Max 1MB request body size for ActivityPub activities
	maxBodySize := MaxBytesMiddleware(1 * 1024 * 1024)

	g.GET("/.well-known/webfinger", s.handleWebfinger)
	g.GET("/users/:username", s.handleActor)
	g.GET("/users/:username/outbox", s.handleOutboxCollection)
	g.GET("/users/:username/followers", s.handleFollowers)
	g.GET("/users/:username/following", s.handleFollowing)
	g.GET("/notes/:id", s.handleNoteObject)

	g.POST("/users/:username/inbox", apLimiter, maxBodySize, s.handleInboxPost)
	g.POST("/users/:username/outbox", apLimiter, maxBodySize, s.handleOutboxPost)

	return g
}

func (s *Server) handleFeed(c *gin.Context) {
	c.Header("Content-Type", "application/xml; charset=utf-8")

	rss, err := s.GetRSS(c.Query("username"))
	if err != nil {
		c.String(http.StatusNotFound, "")
		return
	}
	c.String(http.StatusOK, rss)
}

func (s *Server) handleFeedItem(c *gin.Context) {
	c.Header("Content-Type", "application/xml; charset=utf-8")

	feedId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.String(http.StatusNotFound, "")
		return
	}

	rssItem, err := s.GetRSSItem(feedId)
	if err != nil {
		c.String(http.StatusNotFound, "")
		return
	}
	c.String(http.StatusOK, rssItem)
}

// wantsActivityJSON reports whether the client negotiated an ActivityPub
// representation rather than a plain profile.
func wantsActivityJSON(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/activity+json") ||
		strings.Contains(accept, "application/ld+json")
}
