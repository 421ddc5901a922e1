package models

// Per-project config file stored at the root of the synced tree.
type ProjectConfig struct {
	// Remote project ID.
	ProjectID string `yaml:"project_id" validate:"required"`
}
