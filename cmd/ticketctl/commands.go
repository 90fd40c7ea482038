package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

type (
	event struct {
		ID               uint64    `json:"id"`
		Name             string    `json:"name"`
		Description      string    `json:"description"`
		DateTime         time.Time `json:"date_time"`
		TicketsTotal     int       `json:"tickets_total"`
		TicketsAvailable int       `json:"tickets_available"`
	}
	user struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
	}
	reservation struct {
		ID              uint64 `json:"id"`
		UserID          uint64 `json:"user_id"`
		EventID         uint64 `json:"event_id"`
		TicketsReserved int    `json:"tickets_reserved"`
	}
	envelope struct {
		Message      string        `json:"message"`
		Event        *event        `json:"event"`
		Events       []event       `json:"events"`
		User         *user         `json:"user"`
		Users        []user        `json:"users"`
		Reservation  *reservation  `json:"reservation"`
		Reservations []reservation `json:"reservations"`
	}
)

const dateTimeLayout = "2006-01-02 15:04:05"

func validateDateTime(s string) (time.Time, error) {
	t, err := time.Parse(dateTimeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date and time must be in the format YYYY-MM-DD HH:MM:SS")
	}
	return t, nil
}

func validateInt(s, field string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", field)
	}
	return n, nil
}

func validateID(s, field string) (uint64, error) {
	n, err := validateInt(s, field)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("%s must be positive", field)
	}
	return uint64(n), nil
}

// command runs one resource action.  args are the action's own flags.
type command func(ctx context.Context, c *client, args []string, out io.Writer) error

var commands = map[string]map[string]command{
	"events": {
		"list":   listEvents,
		"get":    getEvent,
		"create": createEvent,
		"delete": deleteEvent,
	},
	"users": {
		"list":   listUsers,
		"get":    getUser,
		"create": createUser,
		"delete": deleteUser,
	},
	"reservations": {
		"list":      listReservations,
		"list-user": listUserReservations,
		"get":       getReservation,
		"create":    createReservation,
		"update":    updateReservation,
		"cancel":    cancelReservation,
	},
}

// flags parses args into a fresh flag set whose string flags are
// returned by name.
func flags(name string, args []string, names ...string) (map[string]string, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	vals := make(map[string]*string, len(names))
	for _, n := range names {
		vals[n] = fs.String(n, "", n)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(vals))
	for n, v := range vals {
		out[n] = *v
	}
	return out, nil
}

func idFlag(name string, args []string, flag string) (uint64, error) {
	f, err := flags(name, args, flag)
	if err != nil {
		return 0, err
	}
	return validateID(f[flag], flag)
}

func printEvent(out io.Writer, e event) {
	fmt.Fprintf(out, "Event ID: %d\nName: %s\nDescription: %s\nDate and Time: %s\nTotal Tickets: %d\nTickets Available: %d\n\n",
		e.ID, e.Name, e.Description, e.DateTime.Format(dateTimeLayout), e.TicketsTotal, e.TicketsAvailable)
}

func printReservation(out io.Writer, r reservation) {
	fmt.Fprintf(out, "Reservation ID: %d\nUser ID: %d\nEvent ID: %d\nTickets Reserved: %d\n\n",
		r.ID, r.UserID, r.EventID, r.TicketsReserved)
}

func listEvents(ctx context.Context, c *client, _ []string, out io.Writer) error {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/events/", nil, &env); err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}
	for _, e := range env.Events {
		printEvent(out, e)
	}
	return nil
}

func getEvent(ctx context.Context, c *client, args []string, out io.Writer) error {
	id, err := idFlag("events get", args, "id")
	if err != nil {
		return err
	}
	var env envelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/events/%d", id), nil, &env); err != nil {
		return fmt.Errorf("failed to fetch event: %w", err)
	}
	if env.Event != nil {
		printEvent(out, *env.Event)
	}
	return nil
}

func createEvent(ctx context.Context, c *client, args []string, out io.Writer) error {
	f, err := flags("events create", args, "name", "description", "date", "tickets")
	if err != nil {
		return err
	}
	when, err := validateDateTime(f["date"])
	if err != nil {
		return err
	}
	total, err := validateInt(f["tickets"], "tickets")
	if err != nil {
		return err
	}
	body := map[string]any{
		"name":          f["name"],
		"description":   f["description"],
		"date_time":     when.Format(dateTimeLayout),
		"tickets_total": total,
	}
	var env envelope
	if err := c.do(ctx, http.MethodPost, "/events/", body, &env); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	fmt.Fprintf(out, "%s (id %d).\n", env.Message, env.Event.ID)
	return nil
}

func deleteEvent(ctx context.Context, c *client, args []string, out io.Writer) error {
	id, err := idFlag("events delete", args, "id")
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/events/%d", id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	fmt.Fprintf(out, "Event %d deleted.\n", id)
	return nil
}

func listUsers(ctx context.Context, c *client, _ []string, out io.Writer) error {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/users/", nil, &env); err != nil {
		return fmt.Errorf("failed to fetch users: %w", err)
	}
	for _, u := range env.Users {
		fmt.Fprintf(out, "ID: %d, Name: %s\n", u.ID, u.Name)
	}
	return nil
}

func getUser(ctx context.Context, c *client, args []string, out io.Writer) error {
	id, err := idFlag("users get", args, "id")
	if err != nil {
		return err
	}
	var env envelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, &env); err != nil {
		return fmt.Errorf("failed to fetch user: %w", err)
	}
	if env.User != nil {
		fmt.Fprintf(out, "ID: %d, Name: %s\n", env.User.ID, env.User.Name)
	}
	return nil
}

func createUser(ctx context.Context, c *client, args []string, out io.Writer) error {
	f, err := flags("users create", args, "name")
	if err != nil {
		return err
	}
	var env envelope
	if err := c.do(ctx, http.MethodPost, "/users/", map[string]string{"name": f["name"]}, &env); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	fmt.Fprintf(out, "%s (id %d).\n", env.Message, env.User.ID)
	return nil
}

func deleteUser(ctx context.Context, c *client, args []string, out io.Writer) error {
	id, err := idFlag("users delete", args, "id")
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	fmt.Fprintf(out, "User %d deleted.\n", id)
	return nil
}

func listReservations(ctx context.Context, c *client, _ []string, out io.Writer) error {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/reservations/", nil, &env); err != nil {
		return fmt.Errorf("failed to fetch reservations: %w", err)
	}
	for _, r := range env.Reservations {
		printReservation(out, r)
	}
	return nil
}

func listUserReservations(ctx context.Context, c *client, args []string, out io.Writer) error {
	id, err := idFlag("reservations list-user", args, "user")
	if err != nil {
		return err
	}
	var env envelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/reservations", id), nil, &env); err != nil {
		return fmt.Errorf("failed to fetch reservations: %w", err)
	}
	for _, r := range env.Reservations {
		printReservation(out, r)
	}
	return nil
}

func getReservation(ctx context.Context, c *client, args []string, out io.Writer) error {
	id, err := idFlag("reservations get", args, "id")
	if err != nil {
		return err
	}
	var env envelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/reservations/%d", id), nil, &env); err != nil {
		return fmt.Errorf("failed to fetch reservation: %w", err)
	}
	if env.Reservation != nil {
		printReservation(out, *env.Reservation)
	}
	return nil
}

func createReservation(ctx context.Context, c *client, args []string, out io.Writer) error {
	f, err := flags("reservations create", args, "user", "event", "tickets")
	if err != nil {
		return err
	}
	userID, err := validateID(f["user"], "user")
	if err != nil {
		return err
	}
	eventID, err := validateID(f["event"], "event")
	if err != nil {
		return err
	}
	tickets, err := validateInt(f["tickets"], "tickets")
	if err != nil {
		return err
	}
	body := map[string]any{"user_id": userID, "event_id": eventID, "tickets_reserved": tickets}
	var env envelope
	if err := c.do(ctx, http.MethodPost, "/reservations/", body, &env); err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	fmt.Fprintf(out, "%s:\n", env.Message)
	printReservation(out, *env.Reservation)
	return nil
}

func updateReservation(ctx context.Context, c *client, args []string, out io.Writer) error {
	f, err := flags("reservations update", args, "id", "user", "tickets")
	if err != nil {
		return err
	}
	id, err := validateID(f["id"], "id")
	if err != nil {
		return err
	}
	userID, err := validateID(f["user"], "user")
	if err != nil {
		return err
	}
	tickets, err := validateInt(f["tickets"], "tickets")
	if err != nil {
		return err
	}
	var env envelope
	body := map[string]any{"user_id": userID, "tickets_reserved": tickets}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/reservations/%d", id), body, &env); err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	fmt.Fprintf(out, "%s:\n", env.Message)
	printReservation(out, *env.Reservation)
	return nil
}

func cancelReservation(ctx context.Context, c *client, args []string, out io.Writer) error {
	id, err := idFlag("reservations cancel", args, "id")
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/reservations/%d", id), nil, nil); err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	fmt.Fprintf(out, "Reservation %d cancelled.\n", id)
	return nil
}
