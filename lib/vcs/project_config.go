package vcs

import (
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/phloem-dev/phloem/constants"
	"github.com/phloem-dev/phloem/models"
	"gopkg.in/yaml.v3"
)

// Get project config from file in the given directory.
func GetProjectConfig(path string) (models.ProjectConfig, error) {
	// Check if file exists
	configPath := filepath.Join(path, constants.ProjectFileName)
	if _, err := os.Stat(configPath); err != nil {
		return models.ProjectConfig{}, err
	}

	// Read file
	configBytes, err := os.ReadFile(configPath)
	if err != nil {
		return models.ProjectConfig{}, err
	}

	// Unmarshal
	var config models.ProjectConfig
	err = yaml.Unmarshal(configBytes, &config)
	if err != nil {
		return models.ProjectConfig{}, err
	}

	// Validate
	err = ValidateProjectConfig(config)
	if err != nil {
		return models.ProjectConfig{}, err
	}

	return config, nil
}

// Write project file.
func SaveProjectConfig(path string, c models.ProjectConfig) error {
	if err := ValidateProjectConfig(c); err != nil {
		return err
	}

	configBytes, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configPath := filepath.Join(path, constants.ProjectFileName)
	return os.WriteFile(configPath, configBytes, 0644)
}

// Validate a project config model.
func ValidateProjectConfig(projectConfig models.ProjectConfig) error {
	v := validator.New()
	return v.Struct(projectConfig)
}
