package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/tjfontaine/mobile-api-client/internal/auth"
)

func main() {
	userID := flag.Int("user-id", 1, "user the token authenticates as")
	description := flag.String("description", "Generated token", "description stored next to the hash")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: go run ./cmd/keygen [-user-id N] [-description TEXT] [token]")
		fmt.Fprintln(os.Stderr, "Prints the SHA-256 hash of a bearer token for server.tokens in config.yaml.")
		fmt.Fprintln(os.Stderr, "A random token is generated when none is given.")
		flag.PrintDefaults()
	}
	flag.Parse()

	token := flag.Arg(0)
	if token == "" {
		var err error
		token, err = randomToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate token: %v\n", err)
			os.Exit(1)
		}
	}

	tokenHash := auth.HashToken(token)

	fmt.Printf("Token: %s\n", token)
	fmt.Printf("SHA-256 Hash: %s\n", tokenHash)
	fmt.Println("\nAdd this to your config.yaml:")
	fmt.Printf("server:\n")
	fmt.Printf("  tokens:\n")
	fmt.Printf("    - token_hash: \"%s\"\n", tokenHash)
	fmt.Printf("      user_id: %d\n", *userID)
	fmt.Printf("      description: %q\n", *description)
}

func randomToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
