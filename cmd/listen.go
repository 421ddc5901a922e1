package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/TwiN/go-color"
	"github.com/phloem-dev/phloem/constants"
	"github.com/phloem-dev/phloem/lib/console"
	"github.com/phloem-dev/phloem/lib/projects"
	"github.com/phloem-dev/phloem/lib/util"
	"github.com/phloem-dev/phloem/lib/vcs"
	"github.com/phloem-dev/phloem/lib/watch"
	"github.com/phloem-dev/phloem/models"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/urfave/cli/v2"
)

// Listen for changes in a remote project and print them.
func Listen(c *cli.Context) error {
	path := c.String("path")
	projectID, err := resolveProjectID(c, path)
	if err != nil {
		return err
	}
	verbose := c.Bool("verbose")

	project, err := projects.New(projectID, path)
	if err != nil {
		return err
	}

	// Initial pull so the first poll cycle has a baseline; failure here is a
	// setup error, not a recoverable cycle error.
	if err := project.Pull(c.Context); err != nil {
		console.Verbose("Pull error: %s", err)
		return console.Error("Failed to pull project %s", projectID)
	}
	if err := vcs.SaveProjectConfig(project.RootPath, models.ProjectConfig{ProjectID: projectID}); err != nil {
		console.Warning("Could not write %s: %s", constants.ProjectFileName, err)
	}

	if err := printTrackingSummary(project); err != nil {
		return err
	}

	console.Success("Successfully initialized project %s", projectID)
	console.Info("Monitoring for changes every %d seconds...", c.Int("interval"))
	console.Info("Press Ctrl+C to stop")

	callback := func(event watch.Event) (bool, error) {
		timestamp := time.Now().Format("2006-01-02 15:04:05")
		fmt.Printf("\n[%s] Changes detected in project %s\n", timestamp, event.Project.ID)
		fmt.Printf("Revision: %s\n", event.Revision)
		printChangeSet(event.Changes, verbose)
		fmt.Println("\n" + strings.Repeat("-", 60))
		return false, nil
	}

	registry := watch.NewRegistry()
	_, err = registry.Register(watch.EventChange, project, callback, watch.Options{
		Interval: time.Duration(c.Int("interval")) * time.Second,
		Falloff:  c.Float64("falloff"),
	})
	if err != nil {
		return err
	}

	awaitInterrupt()

	console.Info("Stopping...")
	registry.Close(constants.StopTimeout)
	return nil
}

// Print the number and total size of tracked files, with a progress bar while
// larger trees are scanned.
func printTrackingSummary(project *projects.Project) error {
	files, err := project.Files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		console.Info("Tracking 0 files")
		return nil
	}

	progress, bar := util.NewProgressBar(len(files), "Scanning")
	var totalSize int64
	for _, file := range files {
		content, err := file.Content()
		if err != nil {
			console.Warning("Could not read file %s: %s", file.RelativePath, err)
		} else {
			totalSize += int64(len(content))
		}
		bar.Increment()
	}
	progress.Wait()

	console.Info("Tracking %d files (%s)", len(files), util.FormatBytesSize(totalSize))
	return nil
}

// Print a change set report, with unified diffs for modified files when
// verbose is set.
func printChangeSet(cs models.ChangeSet, verbose bool) {
	if cs.Empty() {
		fmt.Println("  No file changes detected (metadata or history change only)")
		return
	}

	if len(cs.Modified) > 0 {
		fmt.Println(color.InBlue(color.InBold(fmt.Sprintf("Modified files (%d):", len(cs.Modified)))))
		for _, change := range cs.Modified {
			fmt.Printf(color.InBlue("  * %s (%s)\n"), change.Path, util.FormatBytesSize(int64(len(change.NewContent))))
			if verbose {
				printDiff(change)
			}
		}
	}

	if len(cs.Added) > 0 {
		fmt.Println(color.InGreen(color.InBold(fmt.Sprintf("New files (%d):", len(cs.Added)))))
		for _, path := range cs.Added {
			fmt.Printf(color.InGreen("  + %s\n"), path)
		}
	}

	if len(cs.Removed) > 0 {
		fmt.Println(color.InRed(color.InBold(fmt.Sprintf("Deleted files (%d):", len(cs.Removed)))))
		for _, path := range cs.Removed {
			fmt.Printf(color.InRed("  - %s\n"), path)
		}
	}
}

// Print a colored unified diff for one modified file.
func printDiff(change models.FileChange) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:       difflib.SplitLines(change.OldContent),
		B:       difflib.SplitLines(change.NewContent),
		Context: 3,
	})
	if err != nil {
		console.Warning("Could not diff %s: %s", change.Path, err)
		return
	}

	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		// Skip the file header lines; the path was already printed.
		switch {
		case strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++"):
		case strings.HasPrefix(line, "+"):
			fmt.Printf("    %s\n", color.InGreen(line))
		case strings.HasPrefix(line, "-"):
			fmt.Printf("    %s\n", color.InRed(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Printf("    %s\n", color.InBlue(line))
		default:
			fmt.Printf("    %s\n", line)
		}
	}
	fmt.Println()
}
