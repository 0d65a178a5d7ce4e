package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/consolerelay/console-relay/internal/infra/feishu"
)

// notify-check posts a sample SMS batch to the configured Feishu chat.
func main() {
	_ = godotenv.Load()

	appID := os.Getenv("FEISHU_APP_ID")
	appSecret := os.Getenv("FEISHU_APP_SECRET")
	chatID := os.Getenv("FEISHU_CHAT_ID")
	if len(os.Args) > 1 {
		chatID = os.Args[1]
	}

	if appID == "" || appSecret == "" || chatID == "" {
		fmt.Println("Error: FEISHU_APP_ID, FEISHU_APP_SECRET and a chat id must be set")
		fmt.Println("Usage: notify-check [chat_id]")
		os.Exit(1)
	}

	client := feishu.NewClient(appID, appSecret, chatID)
	now := time.Now().Format("15:04")
	lines := []feishu.Line{
		{AppName: "Google", Carrier: "MTN", Body: "G-123456 is your Google verification code.", Time: now},
		{AppName: "Facebook", Body: "Your Facebook code is 654321", Time: now},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := client.SendBatch(ctx, lines); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Notification sent successfully!")
}
