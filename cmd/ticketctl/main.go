// ticketctl is a command line client for the ticketing HTTP API.
//
//	ticketctl [--api URL] <resource> <action> [flags]
//
// Resources are events, users and reservations.  Run with --help for
// the list of actions.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("ticketctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	api := fs.String("api", envOr("TICKETCTL_API", "http://localhost:8080"), "base URL of the ticketing API")
	help := fs.BoolP("help", "h", false, "show help")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			usage(stdout, fs)
			return nil
		}
		return err
	}
	rest := fs.Args()
	if *help || len(rest) < 2 {
		usage(stdout, fs)
		if *help {
			return nil
		}
		return errors.New("expected <resource> <action>")
	}

	actions, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown resource %q", rest[0])
	}
	cmd, ok := actions[rest[1]]
	if !ok {
		return fmt.Errorf("unknown action %q for %s", rest[1], rest[0])
	}
	return cmd(ctx, newClient(*api), rest[2:], stdout)
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: ticketctl [--api URL] <resource> <action> [flags]")
	resources := make([]string, 0, len(commands))
	for r := range commands {
		resources = append(resources, r)
	}
	sort.Strings(resources)
	for _, r := range resources {
		actions := make([]string, 0, len(commands[r]))
		for a := range commands[r] {
			actions = append(actions, a)
		}
		sort.Strings(actions)
		fmt.Fprintf(w, "  %-13s %s\n", r, strings.Join(actions, ", "))
	}
	fmt.Fprintln(w, "\nflags:")
	fmt.Fprint(w, fs.FlagUsages())
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
