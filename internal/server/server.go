// Package server is the HTTP boundary: it turns the id path parameter into a
// pipeline invocation and serializes the normalized tweet back out, behind
// per-route admission control.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/videah/twitter-archive-server/internal/database"
	"github.com/videah/twitter-archive-server/internal/database/cache"
	"github.com/videah/twitter-archive-server/internal/ratelimit"
	"github.com/videah/twitter-archive-server/internal/twitter"
)

const (
	tweetCacheTTL    = time.Hour
	recentTweetCount = 20
)

// TweetFetcher is what the boundary needs from the pipeline; the concrete
// implementation is twitter.Scraper.
type TweetFetcher interface {
	FetchTweet(id uint64) (*twitter.Tweet, error)
}

type Server struct {
	fetcher   TweetFetcher
	limiter   *ratelimit.Limiter
	staticDir string
}

func New(fetcher TweetFetcher, limiter *ratelimit.Limiter, staticDir string) *Server {
	return &Server{
		fetcher:   fetcher,
		limiter:   limiter,
		staticDir: staticDir,
	}
}

func (s *Server) Router() *router.Router {
	r := router.New()
	r.GET("/", s.handleIndex)
	r.GET("/health", s.handleHealth)
	r.GET("/api/nab-tweet/{id}", s.handleNabTweet)
	r.GET("/api/recent", s.handleRecent)
	if s.staticDir != "" {
		r.ServeFiles("/static/{filepath:*}", s.staticDir)
	}
	return r
}

func (s *Server) handleNabTweet(ctx *fasthttp.RequestCtx) {
	id, err := strconv.ParseUint(ctx.UserValue("id").(string), 10, 64)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "tweet id must be a positive integer")
		return
	}

	if !s.admit(ctx, "nab-tweet") {
		return
	}

	cacheKey := "tweet:" + strconv.FormatUint(id, 10)
	if cached, err := cache.GetCache(cacheKey); err == nil {
		ctx.SetContentType("application/json")
		ctx.SetBodyString(cached)
		return
	}

	tweet, err := s.fetcher.FetchTweet(id)
	if err != nil {
		switch {
		case errors.Is(err, twitter.ErrInvalidID):
			writeError(ctx, fasthttp.StatusBadRequest, "invalid tweet id")
		case errors.Is(err, twitter.ErrNotFound):
			writeError(ctx, fasthttp.StatusNotFound, "tweet not found")
		default:
			slog.Error("Failed to fetch tweet",
				"tweet_id", id,
				"error", err.Error())
			writeError(ctx, fasthttp.StatusBadGateway, "failed to fetch tweet")
		}
		return
	}

	nab, err := twitter.Normalize(tweet)
	if err != nil {
		slog.Error("Failed to normalize tweet",
			"tweet_id", id,
			"error", err.Error())
		writeError(ctx, fasthttp.StatusBadGateway, "failed to process tweet media")
		return
	}

	if err := database.SaveTweet(database.ArchivedTweet{
		ID:       id,
		Username: nab.Username,
		Text:     nab.Text,
		Types:    nab.Types,
		Media:    nab.Media,
	}); err != nil {
		slog.Warn("Failed to archive tweet",
			"tweet_id", id,
			"error", err.Error())
	}

	body := writeJSON(ctx, nab)
	if body != nil && cache.Enabled() {
		if err := cache.SetCache(cacheKey, string(body), tweetCacheTTL); err != nil {
			slog.Warn("Failed to cache tweet",
				"tweet_id", id,
				"error", err.Error())
		}
	}
}

func (s *Server) handleRecent(ctx *fasthttp.RequestCtx) {
	if !s.admit(ctx, "recent") {
		return
	}

	tweets, err := database.RecentTweets(recentTweetCount)
	if err != nil {
		slog.Error("Failed to read archive",
			"error", err.Error())
		writeError(ctx, fasthttp.StatusInternalServerError, "failed to read archive")
		return
	}

	writeJSON(ctx, tweets)
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString("OK")
}

// admit runs the rate limiter for the route, writing the 429 itself when the
// client is over quota.
func (s *Server) admit(ctx *fasthttp.RequestCtx, route string) bool {
	if s.limiter.Allow(route, ctx.RemoteIP().String()) {
		return true
	}

	retryAfter := int(s.limiter.RetryAfter().Seconds() + 1)
	ctx.Response.Header.Set("Retry-After", strconv.Itoa(retryAfter))
	writeError(ctx, fasthttp.StatusTooManyRequests, "too many requests")
	return false
}

func writeJSON(ctx *fasthttp.RequestCtx, value any) []byte {
	body, err := json.Marshal(value)
	if err != nil {
		slog.Error("Failed to encode response",
			"error", err.Error())
		writeError(ctx, fasthttp.StatusInternalServerError, "failed to encode response")
		return nil
	}

	ctx.SetContentType("application/json")
	ctx.SetBody(body)
	return body
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(map[string]string{"error": message})
	ctx.SetBody(body)
}
