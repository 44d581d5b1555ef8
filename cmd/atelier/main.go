package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/atelierhq/atelier/pkg/log"
)

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:                  "atelier",
		Usage:                 "Inspect and manage the atelier canvas engine",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			{
				Name:    "workflow",
				Aliases: []string{"w"},
				Usage:   "Manage persisted workflows",
				Commands: []*cli.Command{
					NewWorkflowListCommand(),
					NewWorkflowShowCommand(),
					NewWorkflowRemoveCommand(),
					NewWorkflowExportCommand(),
				},
			},
			NewHealthCommand(),
		},
	}
}

func main() {
	log.Setup("info")

	err := newRootCommand().Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule("cli").Error(err.Error())
		os.Exit(1)
	}
}
