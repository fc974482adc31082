// Package haproxy generates the proxy service's backend configuration from
// the proxy rules of every other service in the run.
package haproxy

import (
	"fmt"
	"os"
	"strings"

	"github.com/mcm-app/mcm/pkg/config"
	"github.com/mcm-app/mcm/pkg/service"
)

// ServiceName is the service these hooks attach to.
const ServiceName = "haproxy"

// Entries are the generated haproxy statements.
type Entries struct {
	BackendPaths       []string
	BackendDefinitions []string
}

// Proxy holds the state shared between the hooks of one proxy service.
type Proxy struct {
	KanbanHost string
	Entries    Entries
}

// New returns an empty Proxy.
func New() *Proxy {
	return &Proxy{}
}

// Hooks returns the lifecycle hooks bound to p.
func (p *Proxy) Hooks() service.Hooks {
	return service.Hooks{
		PostInit:       p.postInit,
		PreStart:       p.preStart,
		PostFileSystem: p.postFileSystem,
	}
}

// NewHooks returns the hooks of a fresh Proxy.
func NewHooks() service.Hooks {
	return New().Hooks()
}

func (p *Proxy) postInit(_ *service.Service, opts service.Options) error {
	p.KanbanHost = config.Lookup(opts.ConfigDefaults, "KANBAN_HOST")
	return nil
}

func (p *Proxy) preStart(_ *service.Service, _ bool, services []*service.Service) error {
	p.Entries = BuildEntries(services)
	return nil
}

// postFileSystem renders the first provisioned file, the haproxy config
// template, in place.
func (p *Proxy) postFileSystem(_ *service.Service, files []string) error {
	if len(files) == 0 {
		return nil
	}
	path := files[0]
	tmpl, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read proxy config %s: %w", path, err)
	}
	out, err := config.Render(string(tmpl), map[string]any{
		"BACKEND_PATHS":       strings.Join(p.Entries.BackendPaths, "\n\t"),
		"BACKEND_DEFINITIONS": strings.Join(p.Entries.BackendDefinitions, "\n\n"),
		"KANBAN_HOST":         p.KanbanHost,
	})
	if err != nil {
		return fmt.Errorf("failed to render proxy config %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write proxy config %s: %w", path, err)
	}
	return nil
}

// BuildEntries returns a backend and its routing rules for every service
// that declares a proxy rule, in service order.
func BuildEntries(services []*service.Service) Entries {
	var e Entries
	for _, s := range services {
		rule := s.Proxy
		if rule == nil {
			continue
		}
		backend := "bk_" + s.Name

		def := "backend " + backend + "\n\tserver " + s.Name + " public.host.local:" + s.PublicPorts[rule.Port]
		if len(rule.Backend) > 0 {
			def += "\n\t" + strings.Join(rule.Backend, "\n\t")
		}
		e.BackendDefinitions = append(e.BackendDefinitions, def)

		for _, match := range rule.Path {
			for _, path := range match.Values {
				e.BackendPaths = append(e.BackendPaths, fmt.Sprintf("use_backend %s if { %s -i %s }", backend, match.Criterion, path))
			}
		}
		for _, acl := range rule.ACL {
			e.BackendPaths = append(e.BackendPaths, "use_backend "+backend+" if "+acl)
		}
	}
	return e
}
