// eve is a terminal client for the Eve event-ticketing platform: browse
// events, book tickets through the hosted checkout page, and manage events,
// attendees, and user roles as an organizer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sarathss100/eve-client/internal/booking"
	"github.com/sarathss100/eve-client/internal/config"
	"github.com/sarathss100/eve-client/internal/models"
	"github.com/sarathss100/eve-client/internal/store"
	"github.com/sarathss100/eve-client/pkg/api"
	"github.com/sarathss100/eve-client/pkg/localstore"
	"github.com/sarathss100/eve-client/pkg/utils"
)

type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	validate  *utils.Validator
	apiClient *api.Client

	session *store.Session
	events  *store.EventCache
	tickets *store.TicketCache
	users   *store.UserCache
	flow    *booking.Flow
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// Load .env if present; the environment itself wins.
	_ = godotenv.Load()

	if len(args) == 0 || args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		printUsage()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	mirror, err := localstore.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer mirror.Close()

	client := api.NewClient(cfg.APIBaseURL, logger)
	validate := utils.NewValidator()

	// Stores
	session := store.NewSession(client, mirror, validate, logger)
	events := store.NewEventCache(client, mirror, logger)
	tickets := store.NewTicketCache(client, mirror, events, logger)
	users := store.NewUserCache(client, mirror, validate, logger)

	// The logout signal clears every dependent cache.
	session.OnLogout(events.Clear)
	session.OnLogout(tickets.Clear)
	session.OnLogout(users.Clear)

	// A role change to the current identity propagates into the session.
	users.SetOnUserUpdated(func(updated models.User) {
		if current := session.CurrentUser(); current != nil && current.UserID == updated.UserID {
			session.UpdateUser(updated)
		}
	})

	flow := booking.NewFlow(client, mirror, session, tickets, cfg.Payment, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session.Restore(ctx)
	events.Restore(ctx)
	tickets.Restore(ctx)
	users.Restore(ctx)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		validate:  validate,
		apiClient: client,
		session:   session,
		events:    events,
		tickets:   tickets,
		users:     users,
		flow:      flow,
	}
	return a.dispatch(ctx, args[0], args[1:])
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return a.cmdRegister(ctx, args)
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout(ctx)
	case "whoami":
		return a.cmdWhoami()
	case "events":
		return a.cmdEvents(ctx, args)
	case "event":
		return a.cmdEvent(ctx, args)
	case "book":
		return a.cmdBook(ctx, args)
	case "tickets":
		return a.cmdTickets(ctx)
	case "organizer":
		return a.cmdOrganizer(ctx, args)
	case "users":
		return a.cmdUsers(ctx)
	case "set-role":
		return a.cmdSetRole(ctx, args)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if os.Getenv("EVE_DEBUG") != "" {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func printUsage() {
	fmt.Print(`eve - event ticketing client

Usage:
  eve register --name NAME --email EMAIL --password PASS [--phone PHONE]
  eve login --email EMAIL --password PASS
  eve logout
  eve whoami
  eve events [--search TERM] [--location PLACE] [--past]
  eve event <event-id>
  eve book <event-id>
  eve tickets
  eve users
  eve set-role <user-id> <organizer|attendee>
  eve organizer events
  eve organizer create --title T --date WHEN --location L --capacity N --price P [--description D]
  eve organizer update <event-id> [flags as for create]
  eve organizer delete <event-id>
  eve organizer attendees <event-id> [--csv]

Environment:
  EVE_API_URL            backend base URL (required)
  EVE_DATA_DIR           local profile directory (default ~/.eve)
  EVE_CALLBACK_ADDR      payment return listener (default 127.0.0.1:4242)
  EVE_CURRENCY           payment currency (default inr)
  EVE_POLL_INTERVAL      ticket poll interval (default 1s)
  EVE_POLL_MAX_ATTEMPTS  ticket poll budget (default 30)
  EVE_DEBUG              verbose logging when set
`)
}
