package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/harrisonrobin/vikabot/pkg/actions"
	"github.com/harrisonrobin/vikabot/pkg/bot"
	"github.com/harrisonrobin/vikabot/pkg/config"
	"github.com/harrisonrobin/vikabot/pkg/credstore"
	"github.com/harrisonrobin/vikabot/pkg/session"
	"github.com/harrisonrobin/vikabot/pkg/vikunja"
)

func main() {
	// 1. Parse Flags
	apiBase := flag.String("api", "", "Vikunja API base URL (overrides config)")
	setAPI := flag.String("set-api", "", "Set the default Vikunja API base URL and exit")
	chatID := flag.String("chat", "console", "Chat identity for the console transport")
	flag.Parse()

	// 2. Handle Set API
	if *setAPI != "" {
		cfg := &config.Config{APIBase: *setAPI}
		if err := config.Save(cfg); err != nil {
			log.Fatalf("Error saving config: %v", err)
		}
		fmt.Printf("Default Vikunja API set to: %s\n", *setAPI)
		return
	}

	// 3. Load environment and config (Priority: Flag > Env > Config > Default)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if *apiBase != "" {
		cfg.APIBase = *apiBase
	}

	// 4. Wire the core
	store, err := credstore.Open(cfg.CredentialsFile)
	if err != nil {
		log.Fatalf("Error opening credential store %s: %v", cfg.CredentialsFile, err)
	}

	api := vikunja.NewClient(cfg.APIBase, cfg.RequestTimeout())
	registry := session.NewRegistry(api, store)
	service := actions.NewService(registry)
	dispatcher := bot.NewDispatcher(registry, service)

	log.Printf("Vikunja bot core ready, API: %s", cfg.APIBase)

	// 5. Console transport for development. A chat transport (Telegram
	// etc.) plugs into the same three handlers.
	runConsole(dispatcher, *chatID)
}

// runConsole reads lines from stdin: "/command args" dispatches a
// command, "@token" replays a quick-action token, anything else is
// plain text (i.e. an implicit task create).
func runConsole(dispatcher *bot.Dispatcher, chatID string) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var reply bot.Reply
		switch {
		case strings.HasPrefix(line, "/"):
			name, args, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
			reply = dispatcher.OnCommand(ctx, name, chatID, args)
		case strings.HasPrefix(line, "@"):
			reply = dispatcher.OnAction(ctx, chatID, strings.TrimPrefix(line, "@"))
		default:
			reply = dispatcher.OnPlainText(ctx, chatID, line)
		}

		fmt.Println(reply.Text)
		for _, action := range reply.Actions {
			fmt.Printf("  [%s] -> @%s\n", action.Label, action.Token)
		}
		if reply.RedactInput {
			fmt.Println("  (a real transport would delete your last message now)")
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Error reading input: %v", err)
	}
}
