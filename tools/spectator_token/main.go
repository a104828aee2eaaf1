// Command spectator_token prints a signed token for the websocket spectator endpoint.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"sdfterm/raymarch/internal/auth"
)

func main() {
	subject := flag.String("subject", "spectator", "identity recorded in the token")
	ttl := flag.Duration("ttl", time.Hour, "how long the token stays valid")
	flag.Parse()

	tokens, err := auth.NewTokens(os.Getenv("SDF_SPECTATOR_SECRET"), 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, "SDF_SPECTATOR_SECRET:", err)
		os.Exit(1)
	}
	token, err := tokens.Issue(*subject, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
