package cmd

import (
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/phloem-dev/phloem/constants"
	"github.com/phloem-dev/phloem/lib/console"
	"github.com/phloem-dev/phloem/lib/projects"
	"github.com/phloem-dev/phloem/lib/watch"
	"github.com/urfave/cli/v2"
)

// Block until an interrupt or termination signal arrives.
func awaitInterrupt() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	<-sigs
}

// Attach a script to project events. The script runs in the project's
// working copy whenever the event fires; a zero exit status requests a push.
func Attach(c *cli.Context) error {
	projectID := c.String("project-id")

	// A missing script is an unrecoverable setup failure; abort before any
	// loop starts.
	scriptPath, err := filepath.Abs(c.String("script"))
	if err != nil {
		return err
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return console.Error("Script %s does not exist", c.String("script"))
	}

	kind, err := watch.ParseEventKind(c.String("on"))
	if err != nil {
		return console.Error("%s", err)
	}

	project, err := projects.New(projectID, c.String("path"))
	if err != nil {
		return err
	}

	callback := func(event watch.Event) (bool, error) {
		script := exec.Command(scriptPath)
		script.Dir = event.Project.RootPath
		script.Stdout = os.Stdout
		script.Stderr = os.Stderr

		if err := script.Run(); err != nil {
			// A failing script just means "do not push this cycle".
			console.Warning("Script exited with error: %s", err)
			return false, nil
		}
		return true, nil
	}

	opts := watch.Options{
		Push:     c.Bool("push"),
		Interval: time.Duration(c.Int("interval")) * time.Second,
		Falloff:  c.Float64("falloff"),
	}

	registry := watch.NewRegistry()
	_, err = registry.Register(kind, project, callback, opts)
	if err != nil {
		return err
	}

	// Pull and push listeners are passive; they need a polling loop on the
	// same project to drive them.
	if kind != watch.EventChange {
		noop := func(watch.Event) (bool, error) { return false, nil }
		if _, err := registry.Register(watch.EventChange, project, noop, opts); err != nil {
			return err
		}
	}

	console.Info("Monitoring project %s for %s events...", projectID, kind)
	console.Info("Press Ctrl+C to stop")

	awaitInterrupt()

	console.Info("Stopping...")
	registry.Close(constants.StopTimeout)
	return nil
}
