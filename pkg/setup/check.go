package setup

import (
	"errors"
	"os"

	"github.com/mcm-app/mcm/pkg/workspace"
)

// ErrNotSetUp is returned when mcm has no configuration in its root
var ErrNotSetUp = errors.New("mcm is not set up. Run 'mcm run' first")

// Check verifies that the managed root holds a configuration file
func Check(root string) error {
	ws := &workspace.Workspace{Root: root}
	if _, err := os.Stat(ws.ConfigFile()); os.IsNotExist(err) {
		return ErrNotSetUp
	}
	return nil
}

// Open returns the workspace of a managed root that has already been set
// up. Unlike Verify it never creates anything.
func Open(root string) (*workspace.Workspace, error) {
	if err := Check(root); err != nil {
		return nil, err
	}
	return workspace.Open(root)
}
