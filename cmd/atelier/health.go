package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
)

const healthTimeout = 5 * time.Second

func NewHealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check the health of a running atelier API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Base URL of the API server",
				Value:   "http://localhost:8090",
				Sources: cli.EnvVars("ATELIER_API_URL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, cancel := context.WithTimeout(ctx, healthTimeout)
			defer cancel()

			url := strings.TrimSuffix(command.String("url"), "/") + "/health"

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return fmt.Errorf("failed to build health request: %w", err)
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to reach %s: %w", url, err)
			}

			defer func() { _ = resp.Body.Close() }()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if err != nil {
				return fmt.Errorf("failed to read health response: %w", err)
			}

			fmt.Printf("%s: %s\n", resp.Status, strings.TrimSpace(string(body)))

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server reported unhealthy: %d", resp.StatusCode)
			}

			return nil
		},
	}
}
