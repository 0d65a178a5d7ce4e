package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/consolerelay/console-relay/internal/api"
	"github.com/consolerelay/console-relay/internal/biz/domain"
)

// post-sample pushes a console batch to a running relay and reads it back.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var baseURL, file string

	flagSet := pflag.NewFlagSet("post-sample", pflag.ContinueOnError)
	flagSet.StringVar(&baseURL, "url", "http://localhost:8002", "relay base URL")
	flagSet.StringVarP(&file, "file", "f", "", "JSON payload to post instead of the built-in sample")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	baseURL = strings.TrimRight(baseURL, "/")

	body, err := payload(file)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Post(baseURL+"/api/console-data", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post failed: %w", err)
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	fmt.Printf("Posted: %s\n", strings.TrimSpace(string(respBody)))

	resp, err = client.Get(baseURL + "/api/console-data")
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}
	defer resp.Body.Close()

	var stored struct {
		Data struct {
			Messages []api.MessageItem `json:"messages"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Stored %d messages (newest first):\n", len(stored.Data.Messages))
	for i, m := range stored.Data.Messages {
		fmt.Printf("  %d. [%s] %s %s: %s\n", i+1, m.AppName, m.Carrier, m.Time, m.SMS)
	}
	return nil
}

func payload(file string) ([]byte, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		return data, nil
	}

	var p api.ConsolePayload
	p.Meta = map[string]interface{}{
		"status":    "success",
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
	}
	p.Message = "Console data retrieved successfully"
	// Oldest first: the last item reads back as the most recent
	p.Data.Messages = []domain.RawMessage{
		{AppName: "WhatsApp", Carrier: "236726XXX", SMS: "Your WhatsApp code is 345678", Time: "10 minutes ago", Color: "#25d366"},
		{AppName: "Google", Carrier: "236725XXX", SMS: "Your Google verification code is 789012", Time: "5 minutes ago", Color: "#4285f4"},
		{Carrier: "236724XXX", SMS: "Facebook: Your verification code is 123456", Time: "2 minutes ago"},
	}
	return json.Marshal(p)
}
