package constants

import "time"

// Name of the per-project config file stored in the synced tree.
const ProjectFileName = ".phloem.yml"

// Commit message used when pushing local modifications.
const CommitMessage = "Update via phloem"

// Branch mirrored from the remote project.
const RemoteBranch = "master"

// Default polling interval for change listeners.
const DefaultPollInterval = 60 * time.Second

// Default falloff factor for the listen command.
const DefaultListenFalloff = 1.5

// Ceiling for backed-off polling intervals.
const MaxPollInterval = time.Hour

// How long to wait for a poll loop to exit after requesting a stop.
// Loops that are mid-transport-call when the timeout expires are abandoned.
const StopTimeout = 5 * time.Second
