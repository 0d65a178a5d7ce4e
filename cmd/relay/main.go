package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/consolerelay/console-relay/internal/api"
	"github.com/consolerelay/console-relay/internal/biz"
	"github.com/consolerelay/console-relay/internal/biz/domain"
	"github.com/consolerelay/console-relay/internal/biz/usecase"
	"github.com/consolerelay/console-relay/internal/conf"
	"github.com/consolerelay/console-relay/internal/data"
	"github.com/consolerelay/console-relay/internal/infra/crawler"
	"github.com/consolerelay/console-relay/internal/infra/dashboard"
	"github.com/consolerelay/console-relay/internal/infra/feishu"
	"github.com/consolerelay/console-relay/internal/infra/llm"
	"github.com/consolerelay/console-relay/internal/infra/paramstore"
	"github.com/consolerelay/console-relay/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var envFile, addr, mode string

	flagSet := pflag.NewFlagSet("relay", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flagSet.StringVar(&addr, "addr", "", "listen address (overrides RELAY_ADDR)")
	flagSet.StringVar(&mode, "mode", "", "push or pull (overrides RELAY_MODE)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// Load .env file
	if err := godotenv.Load(envFile); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if mode != "" {
		cfg.Server.Mode = mode
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.NeedsSecrets() {
		store, err := paramstore.NewFromEnvironment(ctx)
		if err != nil {
			return err
		}
		if err := cfg.ResolveSecrets(ctx, store); err != nil {
			return err
		}
		logger.Info("upstream password loaded from parameter store", "param", cfg.Upstream.PasswordParam)
	}

	// Initialize clients
	var dashboardClient *dashboard.Client
	if cfg.IsPull() {
		dashboardClient = dashboard.NewClient(
			dashboard.Credentials{Email: cfg.Upstream.Email, Password: cfg.Upstream.Password},
			dashboard.WithBaseURL(cfg.Upstream.BaseURL),
			dashboard.WithHTTPClient(&http.Client{Timeout: cfg.Upstream.Timeout}),
			dashboard.WithTokenTTL(cfg.Upstream.TokenTTL),
			dashboard.WithLogger(logger),
		)
	}

	var feishuClient *feishu.Client
	if cfg.Feishu.Enabled() {
		feishuClient = feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, cfg.Feishu.ChatID, feishu.WithLogger(logger))
		logger.Info("feishu notifications enabled", "chat_id", cfg.Feishu.ChatID)
	}

	// Initialize repository layer
	repos, err := data.NewRepositories(cfg.Store.DBPath, dashboardClient, feishuClient)
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	defer repos.Close()
	logger.Info("store opened", "db_path", cfg.Store.DBPath)

	// Initialize usecase layer
	ucs := &biz.Usecases{
		Crawl: usecase.NewCrawlUsecase(repos.Origin, newCrawler(cfg, logger), logger),
	}

	var scheduler usecase.CrawlScheduler
	var crawlRunner *service.CrawlRunner
	if cfg.Crawler.Enabled {
		crawlRunner = service.NewCrawlRunner(ucs.Crawl, cfg.Crawler.Workers, cfg.Crawler.QueueSize, logger)
		crawlRunner.Start(ctx)
		defer crawlRunner.Stop()
		scheduler = crawlRunner
	}

	ucs.Console = usecase.NewConsoleUsecase(domain.NewNormalizer(nil), repos.Message, repos.Origin, scheduler, repos.Notifier, logger)
	ucs.Origin = usecase.NewOriginUsecase(repos.Origin, scheduler, logger)

	if cfg.IsPull() {
		ucs.Pull = usecase.NewPullUsecase(repos.Upstream, ucs.Console)
		if cfg.Upstream.PullInterval > 0 {
			pullRunner := service.NewPullRunner(ucs.Pull, cfg.Upstream.PullInterval, cfg.Upstream.Timeout*3, logger)
			pullRunner.Start(ctx)
			defer pullRunner.Stop()
		}
	}

	apiServer := api.NewServer(ucs.Console, ucs.Origin, ucs.Pull, cfg.Server.StaticDir, cfg.Server.Addr, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()
	logger.Info("console relay started", "addr", cfg.Server.Addr, "mode", cfg.Server.Mode, "crawler", cfg.Crawler.Enabled)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return apiServer.Stop(shutdownCtx)
}

// newCrawler assembles the login URL strategies in order: search, templates, then LLM suggestions
func newCrawler(cfg *conf.Config, logger *slog.Logger) *crawler.Crawler {
	rules := cfg.Crawler.Rules
	if rules == nil {
		rules = conf.DefaultCrawlerRules()
	}

	httpClient := crawler.NewHTTPClient(cfg.Crawler.Timeout)
	verifier := crawler.NewVerifier(httpClient)
	interval := time.Duration(rules.SearchIntervalSeconds) * time.Second

	strategies := []crawler.Strategy{
		crawler.NewSearchStrategy(cfg.Crawler.SearchURL, httpClient, interval, crawler.RuleMatcher{}),
		crawler.NewTemplateStrategy(verifier, rules.LoginTemplates),
	}
	if cfg.LLM.APIKey != "" {
		llmClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
		llmClient.SetPrompt(rules.SuggestPrompt)
		strategies = append(strategies, crawler.NewSuggestStrategy(llmClient, verifier))
		logger.Info("LLM login URL suggestions enabled")
	}
	if rules.Source != "" {
		logger.Info("crawler rules loaded", "path", rules.Source)
	}
	return crawler.New(logger, strategies...)
}
