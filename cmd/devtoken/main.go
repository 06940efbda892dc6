package main

// Mint a development bearer token:
//   go run ./cmd/devtoken -sub user-1 [-email ana@example.com]

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"docqa-backend/internal/shared/auth"
	"docqa-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	subject := flag.String("sub", "", "User id to place in the token subject")
	email := flag.String("email", "", "Optional email claim")
	name := flag.String("name", "", "Optional name claim")
	flag.Parse()

	if strings.TrimSpace(*subject) == "" {
		fmt.Fprintln(os.Stderr, "sub is required")
		os.Exit(1)
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	token, err := tokens.Sign(*subject, *email, *name)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
