package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pscheid92/roomrelay/internal/adapter/hubclient"
	"github.com/pscheid92/roomrelay/internal/platform/logging"
	"github.com/pscheid92/roomrelay/internal/platform/retry"
	"github.com/pscheid92/roomrelay/internal/platform/version"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		slog.Error("hubctl failed", "error", err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "hubctl",
		Usage:   "issue admin commands to a room relay",
		Version: version.Get().String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "hub WebSocket URL",
				Value:   "ws://localhost:8080/ws",
				Sources: cli.EnvVars("HUB_URL"),
			},
			&cli.StringFlag{
				Name:    "key",
				Usage:   "admin key",
				Sources: cli.EnvVars("ADMIN_KEY"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "dial and reply timeout",
				Value: 5 * time.Second,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			slog.SetDefault(logging.New(os.Stderr, cmd.String("log-level"), "text"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "print every connected client",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withClient(ctx, cmd, func(c *hubclient.Client) error {
						listing, err := c.List(ctx)
						if err != nil {
							return err
						}
						return printJSON(out, listing)
					})
				},
			},
			{
				Name:  "send",
				Usage: "inject a message into a room",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "room", Usage: "room (server) value", Required: true},
					&cli.StringFlag{Name: "message", Usage: "JSON payload sent verbatim", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withClient(ctx, cmd, func(c *hubclient.Client) error {
						ack, err := c.SendMessage(ctx, hubclient.Value(cmd.String("room")), hubclient.Value(cmd.String("message")))
						if err != nil {
							return err
						}
						return printJSON(out, ack)
					})
				},
			},
			{
				Name:  "troll",
				Usage: "apply a view override or one-shot tag to a player",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sid", Usage: "player sid", Required: true},
					&cli.StringFlag{Name: "room", Usage: "room (server) value", Required: true},
					&cli.StringFlag{Name: "tag", Usage: `"a" one-shot, "b" all clear, "c" all flagged`, Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withClient(ctx, cmd, func(c *hubclient.Client) error {
						ack, err := c.Troll(ctx, hubclient.Value(cmd.String("sid")), hubclient.Value(cmd.String("room")), cmd.String("tag"))
						if err != nil {
							return err
						}
						return printJSON(out, ack)
					})
				},
			},
		},
	}
}

func withClient(ctx context.Context, cmd *cli.Command, fn func(*hubclient.Client) error) error {
	if cmd.String("key") == "" {
		return errors.New("an admin key is required (--key or ADMIN_KEY)")
	}
	timeout := cmd.Duration("timeout")

	c, err := hubclient.Dial(ctx, cmd.String("url"), hubclient.Options{
		Key:     cmd.String("key"),
		Timeout: timeout,
		Retry: retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: 250 * time.Millisecond,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("Dial failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	return fn(c)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to print result: %w", err)
	}
	return nil
}
