package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// sign_webhook.go - Utility to compute the X-BC-Api-Content-Hash header for a payload
//
// Usage:
//   go run scripts/sign_webhook.go <client_secret> < payload.json
//
// Example:
//   echo -n '{"scope":"store/order/statusUpdated"}' | go run scripts/sign_webhook.go my-client-secret
//
// The output is the hex HMAC-SHA256 of the raw body, suitable for:
//   curl -H "X-BC-Api-Content-Hash: <hash>" ...

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/sign_webhook.go <client_secret> < payload.json")
		os.Exit(1)
	}

	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Printf("Error reading payload: %v\n", err)
		os.Exit(1)
	}

	mac := hmac.New(sha256.New, []byte(os.Args[1]))
	mac.Write(body)
	fmt.Println(hex.EncodeToString(mac.Sum(nil)))
}
