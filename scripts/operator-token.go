package main

import (
	"fmt"
	"os"

	"github.com/wabridge/relay-server-go/internal/util"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "operator":
		if len(os.Args) < 4 {
			usage()
		}
		token, err := util.GenerateToken()
		if err != nil {
			fail(err)
		}
		fmt.Printf("token: %s\n\n", token)
		fmt.Printf("INSERT INTO operators (user_id, name, api_token_hash) VALUES ('%s', '%s', '%s');\n",
			os.Args[2], os.Args[3], util.HashToken(token))

	case "encrypt":
		if len(os.Args) < 3 {
			usage()
		}
		key := os.Getenv("ENCRYPTION_KEY")
		if key == "" {
			fail(fmt.Errorf("ENCRYPTION_KEY is not set"))
		}
		encrypted, err := util.Encrypt(key, os.Args[2])
		if err != nil {
			fail(err)
		}
		fmt.Println(encrypted)

	default:
		usage()
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  go run scripts/operator-token.go operator <user-id> <name>\n")
	fmt.Fprintf(os.Stderr, "  ENCRYPTION_KEY=... go run scripts/operator-token.go encrypt <inbox-api-token>\n")
	os.Exit(1)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
