package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/atelierhq/atelier/pkg/canvas"
	"github.com/atelierhq/atelier/pkg/cmd"
	"github.com/atelierhq/atelier/pkg/log"
	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/workflows"
)

// noopCanceller satisfies the workflow service's canceller dependency. The
// CLI only reads and deletes stored records; nothing is ever in flight.
type noopCanceller struct{}

func (noopCanceller) CancelAll(_ context.Context) int { return 0 }

func databaseURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL for persistence (file://, redis://, postgres://)",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

// newWorkflowService wires a workflow service over the persistence backend.
// The canvas behind it is empty; the CLI operates on the stored collection
// only.
func newWorkflowService(ctx context.Context, command *cli.Command) (*workflows.Service, func(), error) {
	logger := log.WithModule("cli")

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, nil, err
	}

	eventBus := cmd.NewEventBus("gochannel", logger)

	cleanup := func() {
		err := eventBus.Close()
		if err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}

		err = store.Close(ctx)
		if err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}

	cv := canvas.NewCanvas(cmd.NewRegistry(logger))
	service := workflows.NewService(cv, store, noopCanceller{}, nil, eventBus, logger)

	return service, cleanup, nil
}

func requireWorkflowID(command *cli.Command) (string, error) {
	id := command.Args().First()
	if id == "" {
		return "", errors.New("workflow id required")
	}

	return id, nil
}

func NewWorkflowListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List persisted workflows",
		Flags:   []cli.Flag{databaseURLFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			service, cleanup, err := newWorkflowService(ctx, command)
			if err != nil {
				return err
			}
			defer cleanup()

			listed, err := service.List(ctx, workflows.ListRequest{})
			if err != nil {
				return fmt.Errorf("failed to list workflows: %w", err)
			}

			printWorkflowList(os.Stdout, listed)

			return nil
		},
	}
}

func NewWorkflowShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one persisted workflow",
		ArgsUsage: "<workflow-id>",
		Flags:     []cli.Flag{databaseURLFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := requireWorkflowID(command)
			if err != nil {
				return err
			}

			service, cleanup, err := newWorkflowService(ctx, command)
			if err != nil {
				return err
			}
			defer cleanup()

			workflow, err := service.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load workflow: %w", err)
			}

			printWorkflowDetail(os.Stdout, workflow)

			return nil
		},
	}
}

func NewWorkflowRemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Delete a persisted workflow",
		ArgsUsage: "<workflow-id>",
		Flags:     []cli.Flag{databaseURLFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := requireWorkflowID(command)
			if err != nil {
				return err
			}

			service, cleanup, err := newWorkflowService(ctx, command)
			if err != nil {
				return err
			}
			defer cleanup()

			err = service.Delete(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to delete workflow: %w", err)
			}

			fmt.Printf("Deleted workflow %s\n", id)

			return nil
		},
	}
}

func NewWorkflowExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a persisted workflow as JSON",
		ArgsUsage: "<workflow-id>",
		Flags: []cli.Flag{
			databaseURLFlag(),
			&cli.StringFlag{
				Name:  "out",
				Usage: "Destination file (stdout when omitted)",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := requireWorkflowID(command)
			if err != nil {
				return err
			}

			service, cleanup, err := newWorkflowService(ctx, command)
			if err != nil {
				return err
			}
			defer cleanup()

			workflow, err := service.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load workflow: %w", err)
			}

			out := command.String("out")
			if out == "" {
				return exportWorkflow(os.Stdout, workflow)
			}

			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}

			defer func() { _ = file.Close() }()

			err = exportWorkflow(file, workflow)
			if err != nil {
				return err
			}

			fmt.Printf("Exported workflow %s to %s\n", id, out)

			return nil
		},
	}
}

func printWorkflowList(w io.Writer, listed []*models.Workflow) {
	fmt.Fprintln(w, "Persisted workflows:")
	fmt.Fprintln(w, "====================")

	for _, workflow := range listed {
		fmt.Fprintf(w, "\n%s  %s\n", workflow.ID, workflow.Title)
		fmt.Fprintf(w, "  nodes: %d  connections: %d  groups: %d\n",
			len(workflow.Nodes), len(workflow.Connections), len(workflow.Groups))
		fmt.Fprintf(w, "  updated: %s\n", workflow.UpdatedAt.Format(time.RFC3339))
	}

	fmt.Fprintf(w, "\nTotal workflows: %d\n", len(listed))
}

func printWorkflowDetail(w io.Writer, workflow *models.Workflow) {
	fmt.Fprintf(w, "Workflow: %s (%s)\n", workflow.Title, workflow.ID)
	fmt.Fprintf(w, "Created: %s\n", workflow.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Updated: %s\n", workflow.UpdatedAt.Format(time.RFC3339))

	fmt.Fprintf(w, "\nNodes (%d):\n", len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		fmt.Fprintf(w, "  - %s  %s  %q  [%s]\n", node.ID, node.Type, node.Title, node.Status)
	}

	fmt.Fprintf(w, "\nConnections (%d):\n", len(workflow.Connections))

	for _, connection := range workflow.Connections {
		fmt.Fprintf(w, "  - %s -> %s\n", connection.From, connection.To)
	}

	if len(workflow.Groups) > 0 {
		fmt.Fprintf(w, "\nGroups (%d):\n", len(workflow.Groups))

		for _, group := range workflow.Groups {
			fmt.Fprintf(w, "  - %s  %q\n", group.ID, group.Title)
		}
	}
}

func exportWorkflow(w io.Writer, workflow *models.Workflow) error {
	payload, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workflow: %w", err)
	}

	_, err = w.Write(append(payload, '\n'))

	return err
}
