package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/consolerelay/console-relay/internal/conf"
	"github.com/consolerelay/console-relay/internal/infra/dashboard"
	"github.com/consolerelay/console-relay/internal/infra/paramstore"
)

// upstream-check logs in to the dashboard, exchanges a token twice to show
// the cache at work, and prints the live console oldest first.
func main() {
	_ = godotenv.Load()

	cfg := conf.LoadFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if cfg.NeedsSecrets() {
		store, err := paramstore.NewFromEnvironment(ctx)
		if err != nil {
			fmt.Printf("Parameter store unavailable: %v\n", err)
			os.Exit(1)
		}
		if err := cfg.ResolveSecrets(ctx, store); err != nil {
			fmt.Printf("Failed to resolve password: %v\n", err)
			os.Exit(1)
		}
	}

	client := dashboard.NewClient(
		dashboard.Credentials{Email: cfg.Upstream.Email, Password: cfg.Upstream.Password},
		dashboard.WithBaseURL(cfg.Upstream.BaseURL),
		dashboard.WithHTTPClient(&http.Client{Timeout: cfg.Upstream.Timeout}),
		dashboard.WithTokenTTL(cfg.Upstream.TokenTTL),
	)

	// 1. Session and token
	session, err := client.EnsureSession(ctx)
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Session: %s\n", preview(session))

	token, fromCache, err := client.EnsureToken(ctx)
	if err != nil {
		fmt.Printf("Token exchange failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Token: %s (from cache: %v)\n", preview(token), fromCache)

	_, fromCache, _ = client.EnsureToken(ctx)
	fmt.Printf("Second token call from cache: %v\n\n", fromCache)

	// 2. Console
	resp, err := client.FetchConsole(ctx)
	if err != nil {
		fmt.Printf("Console fetch failed: %v\n", err)
		os.Exit(1)
	}

	// Reverse to chronological order
	items := resp.Data.Messages
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	fmt.Printf("Returned %d messages (oldest first):\n", len(items))
	for i, raw := range items {
		var item struct {
			AppName string `json:"app_name"`
			SMS     string `json:"sms"`
			Time    string `json:"time"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			fmt.Printf("  %d. <unparseable: %v>\n", i+1, err)
			continue
		}
		content := item.SMS
		if len(content) > 50 {
			content = content[:50] + "..."
		}
		fmt.Printf("  %d. [%s] %s: %s\n", i+1, item.Time, item.AppName, content)
	}
}

func preview(s string) string {
	if len(s) > 12 {
		return s[:12] + "..."
	}
	return s
}
