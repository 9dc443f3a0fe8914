// Command token mints a bearer token for local development, signed the way
// the identity provider signs them.
//
//	JWT_SECRET=dev token -sub owner-a -ttl 24h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"shortwave/internal/auth"

	"github.com/joho/godotenv"
)

func main() {
	subject := flag.String("sub", "", "owner id to put in the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" || *subject == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET and -sub are required")
		os.Exit(2)
	}

	token, err := auth.Issue(secret, os.Getenv("JWT_ISSUER"), *subject, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
