package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/airflowfield/dashboard/internal/backend"
	"github.com/airflowfield/dashboard/internal/config"
	"github.com/airflowfield/dashboard/internal/feed"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	apiBase := strings.TrimRight(strings.TrimSpace(os.Getenv("API_BASE_URL")), "/")
	if apiBase == "" {
		log.Fatal().Msg("set API_BASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "listen":
		err = runListen(ctx, apiBase, args)
	case "list":
		err = runList(ctx, apiBase, args)
	case "send":
		err = runSend(ctx, apiBase, args)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("alertctl failed")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "alertctl")
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  alertctl listen [--feed ws://host/socket.io/] [--attempts 5] <email>")
	fmt.Fprintln(os.Stderr, "  alertctl list --token <token>")
	fmt.Fprintln(os.Stderr, "  alertctl send --token <token> --to worker@example.com --title \"Lluvia\" --message \"...\" [--type info]")
}

func runListen(ctx context.Context, apiBase string, args []string) error {
	fs := flag.NewFlagSet("listen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		feedURL  = fs.String("feed", os.Getenv("FEED_URL"), "socket.io address of the event channel")
		attempts = fs.Int("attempts", 5, "reconnect attempts, 0 disables")
		backoff  = fs.Duration("backoff", 2*time.Second, "pause between reconnects")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("listen needs exactly one email")
	}
	email := strings.TrimSpace(fs.Arg(0))

	if *feedURL == "" {
		*feedURL = config.DeriveFeedURL(apiBase)
	}
	dialer, err := feed.NewSocketDialer(*feedURL, 10*time.Second)
	if err != nil {
		return err
	}

	out := json.NewEncoder(os.Stdout)
	sub, err := feed.Subscribe(ctx, dialer, email, func(payload json.RawMessage) {
		var alert backend.Alert
		if err := json.Unmarshal(payload, &alert); err != nil {
			log.Warn().Err(err).Msg("undecodable alert")
			return
		}
		_ = out.Encode(alert)
	}, feed.Policy{Backoff: *backoff, MaxAttempts: *attempts}, log.Logger)
	if err != nil {
		return err
	}
	defer sub.Close()

	log.Info().Str("feed", *feedURL).Str("email", email).Msg("listening")
	select {
	case <-ctx.Done():
		return nil
	case <-sub.Done():
		return sub.Err()
	}
}

func runList(ctx context.Context, apiBase string, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	token := fs.String("token", os.Getenv("API_TOKEN"), "bearer credential")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return errors.New("token is required")
	}

	client, err := backend.New(backend.Config{BaseURL: apiBase, Logger: log.Logger})
	if err != nil {
		return err
	}
	alerts, err := client.ListAlerts(ctx, *token)
	if err != nil {
		return err
	}
	for _, a := range alerts {
		fmt.Printf("%s\t%s\t%s\t%s\n", a.ID, a.CreatedAt.Display(), a.Title, a.Message)
	}
	return nil
}

func runSend(ctx context.Context, apiBase string, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		token   = fs.String("token", os.Getenv("API_TOKEN"), "bearer credential")
		to      = fs.String("to", "", "receiver email")
		title   = fs.String("title", "", "alert title")
		message = fs.String("message", "", "alert body")
		kind    = fs.String("type", "info", "alert type")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" || *to == "" || *title == "" || *message == "" {
		return errors.New("token, to, title and message are required")
	}

	client, err := backend.New(backend.Config{BaseURL: apiBase, Logger: log.Logger})
	if err != nil {
		return err
	}
	if err := client.SendAlert(ctx, *token, backend.AlertInput{
		ReceiverEmail: *to,
		Title:         *title,
		Message:       *message,
		Type:          *kind,
	}); err != nil {
		return err
	}
	log.Info().Str("to", *to).Msg("alert sent")
	return nil
}
