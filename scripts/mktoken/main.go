// Prints a signed token for manual testing with the terminal client. The
// secret must match the gateway's JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/mahaj/baithak/pkg/auth"
	"github.com/mahaj/baithak/pkg/config"
)

func main() {
	userID := flag.Int64("id", 1, "user id")
	username := flag.String("user", "alice", "username")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	token, err := auth.New(cfg.JWTSecret).GenerateToken(*userID, *username)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
