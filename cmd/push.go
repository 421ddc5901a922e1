package cmd

import (
	"github.com/phloem-dev/phloem/lib/console"
	"github.com/phloem-dev/phloem/lib/projects"
	"github.com/urfave/cli/v2"
)

// Push local changes to the remote project.
func Push(c *cli.Context) error {
	path := c.String("path")
	projectID, err := resolveProjectID(c, path)
	if err != nil {
		return err
	}

	project, err := projects.New(projectID, path)
	if err != nil {
		return err
	}

	if err := project.Push(c.Context); err != nil {
		console.Verbose("Push error: %s", err)
		return console.Error("Failed to push changes to project %s", projectID)
	}

	console.Success("Successfully pushed changes from %s to project %s", project.RootPath, projectID)
	return nil
}
