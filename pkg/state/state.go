package state

// Status values reported for a service.
const (
	StatusRunning = "running"
	StatusStopped = "stopped"
	StatusMissing = "missing"
	StatusOmitted = "omitted"
)

// Target identifies a configured service to look up.
type Target struct {
	Name      string
	BaseImage string
	Image     string
	Weight    int
	Omit      bool
}

// ServiceInfo holds the live state of a single configured service.
type ServiceInfo struct {
	Name       string          `json:"name" yaml:"name"`
	Image      string          `json:"image" yaml:"image"`
	Weight     int             `json:"weight" yaml:"weight"`
	Status     string          `json:"status" yaml:"status"`
	Containers []ContainerInfo `json:"containers" yaml:"containers"`
	Ports      []PortInfo      `json:"ports,omitempty" yaml:"ports,omitempty"`
}

// ContainerInfo holds state for a single container of a service.
type ContainerInfo struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Image  string `json:"image" yaml:"image"`
	State  string `json:"state" yaml:"state"`
	Status string `json:"status" yaml:"status"`
}

// PortInfo holds a published port mapping.
type PortInfo struct {
	Host      int    `json:"host" yaml:"host"`
	Container int    `json:"container" yaml:"container"`
	Protocol  string `json:"protocol" yaml:"protocol"`
}
