package system

import (
	"log"
	"os"
	"path/filepath"
)

// Get temp directory specific to phloem.
// The directory is created if it doesn't exist.
func GetTempDir() string {
	// Get user home dir
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatal(err)
	}

	tempDir := filepath.Join(homeDir, ".phloem", "tmp")

	// Create temp dir if it doesn't exist
	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		err = os.MkdirAll(tempDir, 0755)
		if err != nil {
			log.Fatal(err)
		}
	}

	return tempDir
}
