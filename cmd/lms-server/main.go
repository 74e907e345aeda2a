package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"course-quiz/internal/auth"
	"course-quiz/internal/config"
	"course-quiz/internal/httpapi"
	"course-quiz/internal/lesson"
	"course-quiz/internal/quiz"
	"course-quiz/internal/quiz/postgres"
	"course-quiz/internal/quiz/sqlite"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional file of KEY=VALUE settings")
	addr := flag.String("addr", "", "HTTP listen address (overrides ADDR)")
	issueToken := flag.String("issue-token", "", "print a signed token for this learner id and exit")
	flag.Parse()
	defer glog.Flush()

	if err := run(*envFile, *addr, *issueToken); err != nil {
		glog.Errorf("lms-server: %v", err)
		glog.Flush()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(envFile, addr, issueToken string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}

	signer := auth.NewSigner(cfg.JWTSecret, cfg.JWTIssuer)
	if issueToken != "" {
		token, err := signer.SignToken(issueToken, cfg.TokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var progress quiz.ProgressRepository = store
	if cfg.ProgressDatabaseURL != "" {
		pg, err := postgres.NewProgressStore(ctx, cfg.ProgressDatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		progress = pg
		glog.Infof("progress records stored in postgres")
	}

	service := quiz.NewService(store, store, progress, store)
	if cfg.LessonsDir != "" {
		if err := seedLessons(ctx, service, cfg.LessonsDir); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(service, signer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		glog.Infof("lms-server listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		glog.Infof("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func seedLessons(ctx context.Context, service *quiz.Service, dir string) error {
	lessons, err := lesson.LoadDir(dir)
	if err != nil {
		return err
	}
	for _, item := range lessons {
		if err := service.ImportLesson(ctx, item); err != nil {
			return fmt.Errorf("import lesson %s: %w", item.ID, err)
		}
	}
	glog.Infof("seeded %d lessons from %s", len(lessons), dir)
	return nil
}
