package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/fieldops/internal/config"
	infraLark "github.com/garyjia/fieldops/internal/infrastructure/external/lark"
)

// Isolated test for Lark message sending.
// This tests the notification path independently of the workflow service.
// Usage: ./bin/test-notification [-to <chat_id|open_id|email>] [-email]
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	to := flag.String("to", "", "receiver; defaults to lark.chat_id")
	asEmail := flag.Bool("email", false, "send as an email to -to (or invoice.notify_email)")
	flag.Parse()

	fmt.Println("=== Lark Notification Test ===")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Lark.AppID == "" {
		log.Fatal("lark.app_id is not configured")
	}

	receiver := *to
	if receiver == "" {
		receiver = cfg.Lark.ChatID
		if *asEmail {
			receiver = cfg.Invoice.NotifyEmail
		}
	}
	if receiver == "" {
		log.Fatal("No receiver given and none configured")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	client := infraLark.NewClient(infraLark.Config{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
		Domain:    cfg.Lark.Domain,
		Timeout:   cfg.Lark.APITimeout,
	}, logger)
	messenger := infraLark.NewMessenger(client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text := fmt.Sprintf("Test notification from the field operations service at %s", time.Now().Format(time.RFC3339))
	if *asEmail {
		fmt.Printf("Sending email to %s...\n", receiver)
		err = messenger.SendEmail(ctx, receiver, "Field operations test", text)
	} else {
		fmt.Printf("Sending text to %s (%s)...\n", receiver, infraLark.ReceiveIDType(receiver))
		err = messenger.SendText(ctx, receiver, text)
	}
	if err != nil {
		log.Fatalf("✗ Failed: %v", err)
	}
	fmt.Println("✓ Message sent")
}
