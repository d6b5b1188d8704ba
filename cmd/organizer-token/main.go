// Command organizer-token prints a JWT for the organizer API, signed with
// JWT_SECRET from the environment or .env.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gdg-garage/wedding-rsvp-api/internal/auth"
	"github.com/gdg-garage/wedding-rsvp-api/internal/config"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
)

func main() {
	name := flag.String("name", "", "organizer name recorded in the token subject")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: organizer-token -name <organizer>")
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	authenticator, err := auth.NewAuthenticator(cfg, logging.Discard())
	if err != nil {
		fmt.Fprintf(os.Stderr, "organizer-token: %v\n", err)
		os.Exit(1)
	}

	token, err := authenticator.GenerateToken(*name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "organizer-token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
