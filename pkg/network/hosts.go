package network

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mcm-app/mcm/pkg/config"
)

// Synthetic aliases every container receives.
const (
	DockerHostAlias = "docker.host.local"
	PublicHostAlias = "public.host.local"

	// DefaultDockerIP is the default bridge gateway.
	DefaultDockerIP = "172.17.0.1"
	// DefaultPublicInterface is used when no interface is configured.
	DefaultPublicInterface = "en0"

	loopbackIP = "127.0.0.1"
)

// Configuration keys read from the flattened config defaults.
const (
	KeyDockerIP        = "NETWORK_DOCKER_IP"
	KeyPublicInterface = "NETWORK_PUBLIC_INTERFACE"
	KeyPublicIP        = "NETWORK_PUBLIC_IP"
	KeyProxyHost       = "PROXY_HOST"
)

var (
	excludedIPs   = []string{"255.255.255.255", "::1"}
	excludedHosts = []string{"localhost", "broadcasthost", DockerHostAlias, PublicHostAlias}
)

// HostEntry is one line of a hosts file: an IP and its space separated
// hostnames.
type HostEntry struct {
	IP        string
	Hostnames string
}

// HostsReader returns the entries of the system hosts file in file order.
type HostsReader interface {
	Hosts() ([]HostEntry, error)
}

// HostsFile reads entries from a hosts file on disk.
type HostsFile struct {
	Path string
}

// DefaultHostsFile is the system hosts file.
var DefaultHostsFile = HostsFile{Path: "/etc/hosts"}

// Hosts implements HostsReader. Comments and blank lines are skipped.
func (h HostsFile) Hosts() ([]HostEntry, error) {
	f, err := os.Open(h.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hosts file %s: %w", h.Path, err)
	}
	defer func() { _ = f.Close() }()

	var entries []HostEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		entries = append(entries, HostEntry{
			IP:        fields[0],
			Hostnames: strings.Join(fields[1:], " "),
		})
	}
	return entries, scanner.Err()
}

// Discovery builds the extra-hosts table injected into every container.
type Discovery struct {
	Hosts      HostsReader
	Interfaces InterfaceLister
}

// NewDiscovery returns a Discovery reading the system hosts file and
// interfaces.
func NewDiscovery() *Discovery {
	return &Discovery{Hosts: DefaultHostsFile, Interfaces: SystemInterfaces{}}
}

// BuildExtraHosts returns the docker and public host aliases, followed by
// existing, followed by one "hostname:ip" entry per hosts-file hostname.
// Entries for 127.0.0.1 are pointed at the docker bridge so they resolve to
// the host from inside a container.
func (d *Discovery) BuildExtraHosts(existing []string, values map[string]any) ([]string, error) {
	dockerIP := config.Lookup(values, KeyDockerIP)
	if dockerIP == "" {
		dockerIP = DefaultDockerIP
	}

	publicIP := config.Lookup(values, KeyPublicIP)
	if publicIP == "" {
		publicIP = config.Lookup(values, KeyProxyHost)
	}
	if publicIP == "" {
		iface := config.Lookup(values, KeyPublicInterface)
		if iface == "" {
			iface = DefaultPublicInterface
		}
		addr, err := HostAddress(d.Interfaces, iface)
		if err != nil {
			return nil, err
		}
		publicIP = addr
	}

	entries, err := d.Hosts.Hosts()
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, 2+len(existing)+len(entries))
	out = append(out, DockerHostAlias+":"+dockerIP, PublicHostAlias+":"+publicIP)
	out = append(out, existing...)

	for _, entry := range entries {
		ip := strings.TrimSpace(entry.IP)
		if ip == "" || contains(excludedIPs, ip) {
			continue
		}
		if ip == loopbackIP {
			ip = dockerIP
		}
		for _, host := range strings.Fields(entry.Hostnames) {
			if contains(excludedHosts, host) {
				continue
			}
			out = append(out, host+":"+ip)
		}
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
