package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

// Generates a random secret suitable for ENCRYPTION_KEY.
func main() {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("ENCRYPTION_KEY=%s\n", base64.RawURLEncoding.EncodeToString(raw))
}
