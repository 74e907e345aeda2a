package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"course-quiz/internal/config"
	"course-quiz/internal/kv"
	"course-quiz/internal/player"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional file of KEY=VALUE settings")
	learner := flag.String("learner", "", "learner id (defaults to QUIZ_LEARNER)")
	server := flag.String("server", "", "progress API base URL (defaults to QUIZ_SERVER_URL)")
	token := flag.String("token", "", "bearer token issued by lms-server (defaults to QUIZ_TOKEN)")
	timeout := flag.Duration("timeout", 0, "HTTP timeout (defaults to QUIZ_HTTP_TIMEOUT)")
	cachePath := flag.String("cache", "", "file that keeps last known progress (defaults to QUIZ_CACHE_PATH)")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	cfg, err := config.LoadPlayer()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if *learner != "" {
		cfg.Learner = *learner
	}
	if *server != "" {
		cfg.ServerURL = *server
	}
	if *token != "" {
		cfg.Token = *token
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *cachePath != "" {
		cfg.CachePath = *cachePath
	}

	if cfg.Learner == "" {
		fmt.Fprintln(os.Stderr, "error: --learner is required")
		os.Exit(1)
	}

	var cache kv.Store
	if cfg.CachePath != "" {
		cache = kv.NewFile(cfg.CachePath)
	}

	err = player.Run(context.Background(), os.Stdin, os.Stdout, player.Config{
		Learner:     cfg.Learner,
		Token:       cfg.Token,
		ServerURL:   cfg.ServerURL,
		HTTPTimeout: cfg.Timeout,
		Cache:       cache,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
