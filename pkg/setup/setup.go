package setup

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mcm-app/mcm/pkg/config"
	"github.com/mcm-app/mcm/pkg/workspace"
)

// Context is the result of the setup phase, shared by every service of one
// orchestration pass.
type Context struct {
	// Auth is the encoded registry auth.
	Auth string
	// ConfigDefaultValues are the flattened, upper-cased configuration
	// defaults with user values applied.
	ConfigDefaultValues map[string]any
	// RunDefaults are the engine create defaults including extra hosts.
	RunDefaults map[string]any
}

// Options are the inputs of the setup phase.
type Options struct {
	ConfigDefaults map[string]any
	UserConfig     map[string]any
	RunDefaults    map[string]any
}

// CredentialSource returns the registry auth stored under a root directory.
type CredentialSource interface {
	Get(rootDir string) (string, error)
}

// HostsBuilder builds the extra-hosts table from the existing entries and
// the flattened configuration.
type HostsBuilder interface {
	BuildExtraHosts(existing []string, values map[string]any) ([]string, error)
}

// Runner executes the setup phase
type Runner struct {
	Root        string
	Credentials CredentialSource
	Network     HostsBuilder
	Logger      *zap.Logger
}

// Run resolves credentials, configuration defaults and engine run defaults.
// Inputs are not modified.
func (r *Runner) Run(opts Options) (*Context, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	auth, err := r.Credentials.Get(r.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to get registry credentials: %w", err)
	}

	values, err := config.ParseConfig(opts.ConfigDefaults, opts.UserConfig)
	if err != nil {
		return nil, err
	}

	runDefaults := config.Clone(opts.RunDefaults)
	if runDefaults == nil {
		runDefaults = map[string]any{}
	}
	hostConfig, _ := runDefaults["HostConfig"].(map[string]any)
	if hostConfig == nil {
		hostConfig = map[string]any{}
		runDefaults["HostConfig"] = hostConfig
	}

	extraHosts, err := r.Network.BuildExtraHosts(stringList(hostConfig["ExtraHosts"]), values)
	if err != nil {
		return nil, fmt.Errorf("failed to build extra hosts: %w", err)
	}
	list := make([]any, len(extraHosts))
	for i, h := range extraHosts {
		list[i] = h
	}
	hostConfig["ExtraHosts"] = list
	logger.Debug("setup complete", zap.Int("extraHosts", len(extraHosts)))

	return &Context{
		Auth:                auth,
		ConfigDefaultValues: values,
		RunDefaults:         runDefaults,
	}, nil
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, config.FormatValue(item))
		}
		return out
	default:
		return nil
	}
}

// Verify creates the managed root and copies the sample configuration into
// it when no configuration exists yet.
func Verify(root string) (*workspace.Workspace, error) {
	ws, err := workspace.New(root)
	if err != nil {
		return nil, err
	}
	sample, err := config.Sample()
	if err != nil {
		return nil, err
	}
	if _, err := ws.WriteConfigIfMissing(sample); err != nil {
		return nil, err
	}
	return ws, nil
}
