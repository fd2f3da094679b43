package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/garyjia/fieldops/internal/config"
	httpServer "github.com/garyjia/fieldops/internal/interfaces/http"
)

// Issues a bearer token for local testing against the API.
// Usage: ./bin/issue-token -tenant 1 -actor 7 [-ttl 24h]
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	tenantID := flag.Int64("tenant", 0, "tenant id")
	actorID := flag.Int64("actor", 0, "actor (user) id")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *tenantID <= 0 || *actorID <= 0 {
		log.Fatal("-tenant and -actor are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	auth := httpServer.NewAuthenticator(httpServer.AuthConfig{
		Secret: cfg.Auth.Secret,
		Issuer: cfg.Auth.Issuer,
	})
	token, err := auth.IssueToken(*actorID, *tenantID, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
