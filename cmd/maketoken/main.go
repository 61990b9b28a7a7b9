package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"ptrj.com/venus/web/middlewares"
)

// Issues an API token signed with the server's secret. The secret comes from
// VENUS_SIGNING_SECRET, base64 encoded, same as the server reads it.
func main() {
	subject := flag.String("subject", "venus-client", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	encoded := os.Getenv("VENUS_SIGNING_SECRET")
	if encoded == "" {
		log.Fatal("VENUS_SIGNING_SECRET is not set")
	}
	secret, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		log.Fatalf("signing secret is not valid base64: %v", err)
	}

	token, err := middlewares.CreateJWT(*subject, secret, *ttl)
	if err != nil {
		log.Fatalf("create token: %v", err)
	}
	fmt.Println(token)
}
