package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/sarathss100/eve-client/internal/booking"
	"github.com/sarathss100/eve-client/internal/callback"
	"github.com/sarathss100/eve-client/internal/models"
	"github.com/sarathss100/eve-client/pkg/api"
)

var errNotLoggedIn = errors.New("not logged in; run `eve login` first")

// date layouts accepted by organizer create/update
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	phone := fs.String("phone", "", "phone number (optional, +country format)")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := models.RegisterRequest{
		Name:        *name,
		Email:       *email,
		PhoneNumber: *phone,
		Password:    *password,
	}
	if err := a.session.Register(ctx, req); err != nil {
		return describeAuthError(err)
	}

	user := a.session.CurrentUser()
	fmt.Printf("Welcome, %s! You are registered and logged in.\n", user.Name)
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.session.Login(ctx, *email, *password); err != nil {
		return describeAuthError(err)
	}

	user := a.session.CurrentUser()
	fmt.Printf("Logged in as %s (%s).\n", user.Name, user.Role)
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	a.session.Logout(ctx)
	fmt.Println("Logged out.")
	return nil
}

func (a *app) cmdWhoami() error {
	user := a.session.CurrentUser()
	if !a.session.IsAuthenticated() || user == nil {
		fmt.Println("Not logged in.")
		return nil
	}
	fmt.Printf("%s <%s> role=%s\n", user.Name, user.Email, user.Role)
	return nil
}

func (a *app) cmdEvents(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("events", pflag.ContinueOnError)
	search := fs.String("search", "", "match against title and description")
	location := fs.String("location", "", "filter by location")
	past := fs.Bool("past", false, "include events that already happened")
	if err := fs.Parse(args); err != nil {
		return err
	}

	events := a.events.BrowseEvents(ctx)
	if events == nil && a.events.Err() != "" {
		return fmt.Errorf("%s (try again)", a.events.Err())
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tDATE\tLOCATION\tLEFT\tPRICE")
	shown := 0
	for _, event := range events {
		if !*past && event.Date.Before(now) {
			continue
		}
		if *search != "" && !matchesSearch(event, *search) {
			continue
		}
		if *location != "" && !strings.Contains(strings.ToLower(event.Location), strings.ToLower(*location)) {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%.2f\n",
			event.EventID, event.Title, event.Date.Format("2006-01-02 15:04"),
			event.Location, event.AvailableTickets, event.TotalTickets, event.Price)
		shown++
	}
	w.Flush()
	if shown == 0 {
		fmt.Println("No events match.")
	}
	return nil
}

func matchesSearch(event models.Event, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(event.Title), term) ||
		strings.Contains(strings.ToLower(event.Description), term)
}

func (a *app) cmdEvent(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: eve event <event-id>")
	}
	eventID := args[0]

	event := a.events.FetchEvent(ctx, eventID, a.session.Token())
	if event == nil {
		if cached, ok := a.events.Get(eventID); ok {
			fmt.Println("(showing cached copy; refresh failed)")
			event = &cached
		} else {
			return fmt.Errorf("%s", a.events.Err())
		}
	}

	fmt.Printf("%s\n", event.Title)
	fmt.Printf("  id:        %s\n", event.EventID)
	fmt.Printf("  when:      %s\n", event.Date.Format("Mon, 02 Jan 2006 15:04"))
	fmt.Printf("  where:     %s\n", event.Location)
	fmt.Printf("  tickets:   %d of %d left\n", event.AvailableTickets, event.TotalTickets)
	fmt.Printf("  price:     %.2f\n", event.Price)
	if event.Description != "" {
		fmt.Printf("  about:     %s\n", event.Description)
	}
	if ticket, ok := a.tickets.TicketForEvent(eventID); ok {
		fmt.Printf("  your ticket: %s (%s)\n", ticket.TicketID, ticket.TicketStatus)
	}
	return nil
}

func (a *app) cmdBook(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: eve book <event-id>")
	}
	eventID := args[0]

	if !a.session.IsAuthenticated() {
		return errNotLoggedIn
	}

	event, ok := a.events.Get(eventID)
	if !ok {
		fetched := a.events.FetchEvent(ctx, eventID, a.session.Token())
		if fetched == nil {
			return fmt.Errorf("%s", a.events.Err())
		}
		event = *fetched
	}
	if event.SoldOut() {
		return fmt.Errorf("%q is sold out", event.Title)
	}

	result, err := a.flow.Book(ctx, event)
	if err != nil {
		if errors.Is(err, booking.ErrNotAuthenticated) {
			return errNotLoggedIn
		}
		return fmt.Errorf("could not start the payment, please try again: %w", err)
	}

	if result.Reused {
		fmt.Println("You already have an active payment session for this event; reopening it.")
	}
	fmt.Println("Complete the payment in your browser:")
	fmt.Printf("  %s\n\n", result.CheckoutURL)

	server := callback.NewServer(a.logger)
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Listen(a.cfg.CallbackAddr) }()
	defer server.Shutdown()

	fmt.Printf("Waiting for checkout to finish (listening on %s), Ctrl-C to stop waiting...\n", a.cfg.CallbackAddr)

	select {
	case params := <-server.Returns():
		return a.reportOutcome(a.flow.HandleReturn(ctx, params))
	case err := <-serveErr:
		return fmt.Errorf("callback listener: %w", err)
	case <-ctx.Done():
		fmt.Println("\nStopped waiting. If you completed the payment, check `eve tickets` later.")
		return nil
	}
}

func (a *app) reportOutcome(outcome booking.Outcome) error {
	switch outcome {
	case booking.OutcomeConfirmed:
		a.tickets.Wait()
		fmt.Println("Ticket booked successfully!")
	case booking.OutcomeProcessing:
		fmt.Println("Payment successful but processing is taking longer than expected.")
		fmt.Println("Your ticket will appear in `eve tickets` shortly.")
	case booking.OutcomeFailed:
		fmt.Println("Payment was cancelled or failed. Please try again.")
	}
	return nil
}

func (a *app) cmdTickets(ctx context.Context) error {
	if !a.session.IsAuthenticated() {
		return errNotLoggedIn
	}

	a.tickets.FetchUserTickets(ctx, a.session.Token())
	if msg := a.tickets.Err(); msg != "" {
		return fmt.Errorf("%s (try again)", msg)
	}
	// Join against fully hydrated events for display.
	a.tickets.Wait()

	tickets := a.tickets.Snapshot()
	if len(tickets) == 0 {
		fmt.Println("No tickets yet. Browse `eve events` and book one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKET\tEVENT\tWHEN\tSTATUS\tAMOUNT")
	for _, ticket := range tickets {
		title, when := ticket.EventID, "(details pending)"
		if event, ok := a.events.Get(ticket.EventID); ok {
			title = event.Title
			when = event.Date.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n",
			ticket.TicketID, title, when, ticket.TicketStatus, ticket.Amount)
	}
	return w.Flush()
}

func (a *app) cmdUsers(ctx context.Context) error {
	if err := a.requireOrganizer(); err != nil {
		return err
	}

	a.users.FetchAllUsers(ctx, a.session.Token())
	if msg := a.users.Err(); msg != "" {
		return fmt.Errorf("%s (try again)", msg)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
	for _, user := range a.users.Snapshot() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", user.UserID, user.Name, user.Email, user.Role)
	}
	return w.Flush()
}

func (a *app) cmdSetRole(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: eve set-role <user-id> <organizer|attendee>")
	}
	if err := a.requireOrganizer(); err != nil {
		return err
	}

	updated, err := a.users.UpdateUserRole(ctx, args[0], models.Role(args[1]), a.session.Token())
	if err != nil {
		return err
	}
	fmt.Printf("%s is now %s.\n", updated.Name, updated.Role)
	return nil
}

func (a *app) cmdOrganizer(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: eve organizer <events|create|update|delete|attendees> ...")
	}
	if err := a.requireOrganizer(); err != nil {
		return err
	}

	switch args[0] {
	case "events":
		return a.cmdOrganizerEvents(ctx)
	case "create":
		return a.cmdOrganizerCreate(ctx, args[1:])
	case "update":
		return a.cmdOrganizerUpdate(ctx, args[1:])
	case "delete":
		return a.cmdOrganizerDelete(ctx, args[1:])
	case "attendees":
		return a.cmdOrganizerAttendees(ctx, args[1:])
	default:
		return fmt.Errorf("unknown organizer command %q", args[0])
	}
}

func (a *app) cmdOrganizerEvents(ctx context.Context) error {
	events, err := a.apiClient.OrganizerEvents(ctx, a.session.Token())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tDATE\tLOCATION\tSOLD\tPRICE")
	for _, event := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%.2f\n",
			event.EventID, event.Title, event.Date.Format("2006-01-02 15:04"),
			event.Location, event.TotalTickets-event.AvailableTickets, event.TotalTickets, event.Price)
	}
	return w.Flush()
}

func eventPayloadFlags(fs *pflag.FlagSet) (title, description, date, location *string, capacity *int, price *float64) {
	title = fs.String("title", "", "event title")
	description = fs.String("description", "", "event description")
	date = fs.String("date", "", "event date (RFC3339 or \"2006-01-02 15:04\")")
	location = fs.String("location", "", "event location")
	capacity = fs.Int("capacity", 0, "total tickets")
	price = fs.Float64("price", 0, "ticket price")
	return
}

func (a *app) buildEventPayload(title, description, date, location string, capacity int, price float64) (*models.EventPayload, error) {
	when, err := parseEventDate(date)
	if err != nil {
		return nil, err
	}
	payload := &models.EventPayload{
		Title:        title,
		Description:  description,
		Date:         when,
		Location:     location,
		TotalTickets: capacity,
		Price:        price,
	}
	if err := a.validate.Struct(payload); err != nil {
		return nil, &api.ValidationError{Message: "invalid event details: " + err.Error()}
	}
	return payload, nil
}

func parseEventDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("--date is required")
	}
	for _, layout := range dateLayouts {
		if when, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return when, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

func (a *app) cmdOrganizerCreate(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("organizer create", pflag.ContinueOnError)
	title, description, date, location, capacity, price := eventPayloadFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	payload, err := a.buildEventPayload(*title, *description, *date, *location, *capacity, *price)
	if err != nil {
		return err
	}

	event, err := a.apiClient.CreateEvent(ctx, *payload, a.session.Token())
	if err != nil {
		return err
	}
	fmt.Printf("Created event %s (%s).\n", event.Title, event.EventID)
	return nil
}

func (a *app) cmdOrganizerUpdate(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("organizer update", pflag.ContinueOnError)
	title, description, date, location, capacity, price := eventPayloadFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: eve organizer update <event-id> [flags]")
	}

	payload, err := a.buildEventPayload(*title, *description, *date, *location, *capacity, *price)
	if err != nil {
		return err
	}

	event, err := a.apiClient.UpdateEvent(ctx, fs.Arg(0), *payload, a.session.Token())
	if err != nil {
		return err
	}
	fmt.Printf("Updated event %s (%s).\n", event.Title, event.EventID)
	return nil
}

func (a *app) cmdOrganizerDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: eve organizer delete <event-id>")
	}
	if err := a.apiClient.DeleteEvent(ctx, args[0], a.session.Token()); err != nil {
		return err
	}
	fmt.Printf("Deleted event %s.\n", args[0])
	return nil
}

func (a *app) cmdOrganizerAttendees(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("organizer attendees", pflag.ContinueOnError)
	asCSV := fs.Bool("csv", false, "emit CSV instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: eve organizer attendees <event-id> [--csv]")
	}
	eventID := fs.Arg(0)

	token := a.session.Token()
	a.users.FetchAllUsers(ctx, token)
	a.tickets.FetchUserTickets(ctx, token)
	a.tickets.Wait()

	attendees := a.users.Attendees(eventID, a.tickets.Snapshot())

	if *asCSV {
		w := csv.NewWriter(os.Stdout)
		w.Write([]string{"name", "email", "phone", "ticket_id", "status", "amount", "registered"})
		for _, att := range attendees {
			w.Write([]string{
				att.Name, att.Email, att.PhoneNumber, att.TicketID,
				string(att.TicketStatus),
				strconv.FormatFloat(att.Amount, 'f', 2, 64),
				att.RegistrationDate.Format(time.RFC3339),
			})
		}
		w.Flush()
		return w.Error()
	}

	if len(attendees) == 0 {
		fmt.Println("No attendees registered yet.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEMAIL\tTICKET\tSTATUS\tAMOUNT\tREGISTERED")
	for _, att := range attendees {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
			att.Name, att.Email, att.TicketID, att.TicketStatus,
			att.Amount, att.RegistrationDate.Format("2006-01-02"))
	}
	return w.Flush()
}

func (a *app) requireOrganizer() error {
	if !a.session.IsAuthenticated() {
		return errNotLoggedIn
	}
	user := a.session.CurrentUser()
	if user == nil || user.Role != models.RoleOrganizer {
		return errors.New("you need organizer privileges for this command")
	}
	return nil
}

// describeAuthError turns the API error taxonomy into the inline messages
// the login/register forms show.
func describeAuthError(err error) error {
	var ve *api.ValidationError
	if errors.As(err, &ve) {
		return errors.New(ve.Message)
	}
	if api.IsUnauthorized(err) {
		return errors.New("invalid email or password")
	}
	if api.IsNetwork(err) {
		return errors.New("could not reach the server, check your connection and try again")
	}
	var he *api.HTTPError
	if errors.As(err, &he) && he.Message != "" {
		return errors.New(he.Message)
	}
	return err
}
