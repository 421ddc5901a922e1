package cmd

import (
	"github.com/phloem-dev/phloem/constants"
	"github.com/phloem-dev/phloem/lib/console"
	"github.com/phloem-dev/phloem/lib/projects"
	"github.com/phloem-dev/phloem/lib/vcs"
	"github.com/phloem-dev/phloem/models"
	"github.com/urfave/cli/v2"
)

// Resolve the project ID from the --project-id flag, falling back to the
// project config file in the target directory.
func resolveProjectID(c *cli.Context, path string) (string, error) {
	if projectID := c.String("project-id"); projectID != "" {
		return projectID, nil
	}

	projectConfig, err := vcs.GetProjectConfig(path)
	if err != nil {
		return "", console.Error("No project ID given and no %s found in \"%s\"", constants.ProjectFileName, path)
	}

	return projectConfig.ProjectID, nil
}

// Pull latest changes from the remote project.
func Pull(c *cli.Context) error {
	path := c.String("path")
	projectID, err := resolveProjectID(c, path)
	if err != nil {
		return err
	}

	project, err := projects.New(projectID, path)
	if err != nil {
		return err
	}

	if err := project.Pull(c.Context); err != nil {
		console.Verbose("Pull error: %s", err)
		return console.Error("Failed to pull project %s", projectID)
	}

	// Remember the project ID so later commands can omit the flag.
	if err := vcs.SaveProjectConfig(project.RootPath, models.ProjectConfig{ProjectID: projectID}); err != nil {
		console.Warning("Could not write %s: %s", constants.ProjectFileName, err)
	}

	console.Success("Successfully pulled project %s to %s", projectID, project.RootPath)
	return nil
}
