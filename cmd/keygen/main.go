package main

import (
	"fmt"
	"os"

	"github.com/tjfontaine/actionpipe/internal/filters"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/keygen <api-key> [principal]")
		fmt.Println("Generates the SHA-256 hash of an API key for an api_key filter in config.yaml")
		os.Exit(1)
	}

	apiKey := os.Args[1]
	principal := "generated"
	if len(os.Args) > 2 {
		principal = os.Args[2]
	}
	keyHash := filters.HashAPIKey(apiKey)

	fmt.Printf("SHA-256 Hash: %s\n", keyHash)
	fmt.Println("\nAdd this to your config.yaml:")
	fmt.Println("filters:")
	fmt.Println("  - type: api_key")
	fmt.Println("    keys:")
	fmt.Printf("      - key_hash: \"%s\"\n", keyHash)
	fmt.Printf("        principal: \"%s\"\n", principal)
}
