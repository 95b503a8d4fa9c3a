package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"

	"github.com/videah/twitter-archive-server/internal/config"
	"github.com/videah/twitter-archive-server/internal/database"
	"github.com/videah/twitter-archive-server/internal/database/cache"
	"github.com/videah/twitter-archive-server/internal/ratelimit"
	"github.com/videah/twitter-archive-server/internal/server"
	"github.com/videah/twitter-archive-server/internal/twitter"
)

func main() {
	logger := slog.New(newColorHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     config.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := initializeServices(); err != nil {
		log.Fatal(err)
	}
	defer database.Close()
	defer cache.Close()

	scraper := twitter.NewScraper(sessionStore())
	limiter := ratelimit.New(config.RateLimitRequests, config.RateLimitWindow)
	srv := server.New(scraper, limiter, config.StaticDir)

	httpServer := &fasthttp.Server{
		Handler: srv.Router().Handler,
		Name:    "twitter-archive-server",
	}

	ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer done()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Println("\033[0;32m\U0001F414 twitter-archive-server started\033[0m")
		fmt.Printf("\033[0;36mListening on:\033[0m %v\n", config.Address)
		return httpServer.ListenAndServe(config.Address)
	})
	g.Go(func() error {
		<-gCtx.Done()
		fmt.Println("[!] — Received stop signal")
		return httpServer.Shutdown()
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server exited with error",
			"error", err.Error())
	}
}
