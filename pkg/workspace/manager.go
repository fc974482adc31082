package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File names kept in the managed root.
const (
	ConfigFileName      = "config.json"
	CredentialsFileName = ".credentials"
)

// Workspace manages the MCM directory structure
type Workspace struct {
	Root          string
	ContainersDir string
	ServicesDir   string
}

func layout(root string) *Workspace {
	return &Workspace{
		Root:          root,
		ContainersDir: filepath.Join(root, "containers"),
		ServicesDir:   filepath.Join(root, "services"),
	}
}

// New creates the workspace directories at root if they are missing
func New(root string) (*Workspace, error) {
	ws := layout(root)

	for _, dir := range []string{ws.Root, ws.ContainersDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return ws, nil
}

// Open opens an existing workspace
func Open(root string) (*Workspace, error) {
	ws := layout(root)
	if _, err := os.Stat(ws.Root); os.IsNotExist(err) {
		return nil, fmt.Errorf("workspace not found at %s", root)
	}
	return ws, nil
}

// ConfigFile returns the path to the user configuration file
func (w *Workspace) ConfigFile() string {
	return filepath.Join(w.Root, ConfigFileName)
}

// CredentialsFile returns the path to the registry credentials file
func (w *Workspace) CredentialsFile() string {
	return filepath.Join(w.Root, CredentialsFileName)
}

// ContainerPath resolves a service relative path under the containers
// directory.
func (w *Workspace) ContainerPath(rel string) string {
	return filepath.Join(w.ContainersDir, rel)
}

// WriteConfigIfMissing writes data as the user configuration file unless
// one already exists. It reports whether the file was written.
func (w *Workspace) WriteConfigIfMissing(data []byte) (bool, error) {
	_, err := os.Stat(w.ConfigFile())
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", w.ConfigFile(), err)
	}
	if err := os.WriteFile(w.ConfigFile(), data, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", w.ConfigFile(), err)
	}
	return true, nil
}

// CleanContainers removes all provisioned service data
func (w *Workspace) CleanContainers() error {
	return os.RemoveAll(w.ContainersDir)
}

// CleanCredentials removes the stored registry credentials
func (w *Workspace) CleanCredentials() error {
	err := os.Remove(w.CredentialsFile())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", w.CredentialsFile(), err)
	}
	return nil
}
