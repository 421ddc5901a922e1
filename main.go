package main

import (
	"log"
	"os"

	"github.com/phloem-dev/phloem/cmd"
	"github.com/phloem-dev/phloem/config"
	"github.com/phloem-dev/phloem/constants"
	"github.com/urfave/cli/v2"
)

func main() {
	// Initialize config
	config.InitConfig()

	projectFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "project-id",
			Usage: "Remote project ID (optional inside an initialized project directory)",
		},
		&cli.StringFlag{
			Name:  "path",
			Value: ".",
			Usage: "Local project directory",
		},
	}

	// Initialize CLI app
	app := &cli.App{
		Name:    "phloem",
		Usage:   "Sync with remote document projects and react to their changes",
		Version: "0.1.0",
		Commands: []*cli.Command{
			{
				Name:   "pull",
				Usage:  "Pull latest changes from the remote project",
				Action: cmd.Pull,
				Flags:  projectFlags,
			},
			{
				Name:   "push",
				Usage:  "Push local changes to the remote project",
				Action: cmd.Push,
				Flags:  projectFlags,
			},
			{
				Name:   "attach",
				Usage:  "Attach a script to project events",
				Action: cmd.Attach,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "project-id",
						Usage:    "Remote project ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "path",
						Usage: "Local project directory (a managed temp directory by default)",
					},
					&cli.StringFlag{
						Name:     "script",
						Usage:    "Script to execute when the event fires",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "on",
						Value: "change",
						Usage: "Event to attach to (change, pull or push)",
					},
					&cli.IntFlag{
						Name:  "interval",
						Value: config.I.Watch.DefaultInterval,
						Usage: "Polling interval in seconds",
					},
					&cli.Float64Flag{
						Name:  "falloff",
						Usage: "Falloff factor for increasing the interval during inactivity",
					},
					&cli.BoolFlag{
						Name:  "push",
						Usage: "Push changes after the script exits successfully",
					},
				},
			},
			{
				Name:   "listen",
				Usage:  "Listen for changes in a remote project and print them",
				Action: cmd.Listen,
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "interval",
						Value: 30,
						Usage: "Polling interval in seconds",
					},
					&cli.Float64Flag{
						Name:  "falloff",
						Value: constants.DefaultListenFalloff,
						Usage: "Falloff factor for increasing the interval during inactivity",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Show detailed change information",
					},
				}, projectFlags...),
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
