// silo-activation-cli mints and checks activation keys offline. Keys are
// self-contained, so none of these commands talk to the server or a
// database; all that is needed is the shared secret in ACTIVATION_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/EternisAI/silo-activation/internal/actkey"
	"github.com/joho/godotenv"
)

var AppVersion string

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: silo-activation-cli <command> [flags]

Commands:
  issue     mint a fresh activation key (flags: -validity)
  validate  decode and verify a key (flags: -key)
  deploy    re-stamp a key with the deployed flag set (flags: -key)
  stop      re-stamp a key with the deployed flag cleared (flags: -key)

The shared secret is read from the ACTIVATION_SECRET environment variable
(a .env file in the working directory is honored).
`)
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	secret := os.Getenv("ACTIVATION_SECRET")
	if secret == "" {
		fatal(fmt.Errorf("ACTIVATION_SECRET is not set"))
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "issue":
		fs := flag.NewFlagSet("issue", flag.ExitOnError)
		validity := fs.Duration("validity", actkey.DefaultValidity, "validity window for the new key")
		_ = fs.Parse(args)

		kc, err := actkey.New([]byte(secret), actkey.WithValidity(*validity))
		if err != nil {
			fatal(err)
		}
		key, err := kc.Issue()
		if err != nil {
			fatal(err)
		}
		fmt.Println(key)

	case "validate":
		kc, key := keyCommand("validate", secret, args)
		rec, err := kc.Validate(key)
		if err != nil {
			fatal(err)
		}
		state := "fresh"
		if rec.AgentDeployed {
			state = "deployed"
		}
		fmt.Printf("state:      %s\n", state)
		fmt.Printf("created_at: %s\n", rec.CreatedAt.Format(time.RFC3339))
		fmt.Printf("expires_at: %s\n", rec.ExpiresAt.Format(time.RFC3339))

	case "deploy":
		kc, key := keyCommand("deploy", secret, args)
		newKey, err := kc.Deploy(key)
		if err != nil {
			fatal(err)
		}
		fmt.Println(newKey)

	case "stop":
		kc, key := keyCommand("stop", secret, args)
		newKey, err := kc.Stop(key)
		if err != nil {
			fatal(err)
		}
		fmt.Println(newKey)

	default:
		usage()
		os.Exit(2)
	}
}

func keyCommand(name, secret string, args []string) (*actkey.Keychain, string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	key := fs.String("key", "", "activation key to operate on")
	_ = fs.Parse(args)

	if *key == "" {
		fatal(fmt.Errorf("-key is required"))
	}

	kc, err := actkey.New([]byte(secret))
	if err != nil {
		fatal(err)
	}
	return kc, *key
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
