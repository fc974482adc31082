package network

import (
	"errors"
	"fmt"
	"net"
)

// ErrInterfaceNotFound is returned when the requested interface does not
// exist or has no IPv4 address.
var ErrInterfaceNotFound = errors.New("network interface not found")

// Family names used in Address records.
const (
	FamilyIPv4 = "IPv4"
	FamilyIPv6 = "IPv6"
)

// Address is one address bound to a network interface.
type Address struct {
	Address string
	Family  string
}

// InterfaceLister enumerates the host's network interfaces by name.
type InterfaceLister interface {
	Interfaces() (map[string][]Address, error)
}

// HostAddress returns the first IPv4 address of the named interface.
func HostAddress(lister InterfaceLister, name string) (string, error) {
	interfaces, err := lister.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to list network interfaces: %w", err)
	}
	addrs, ok := interfaces[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInterfaceNotFound, name)
	}
	for _, a := range addrs {
		if a.Family == FamilyIPv4 {
			return a.Address, nil
		}
	}
	return "", fmt.Errorf("%w: %s has no IPv4 address", ErrInterfaceNotFound, name)
}

// SystemInterfaces reads interfaces from the operating system.
type SystemInterfaces struct{}

// Interfaces implements InterfaceLister.
func (SystemInterfaces) Interfaces() (map[string][]Address, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Address, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("failed to read addresses of %s: %w", iface.Name, err)
		}
		entries := make([]Address, 0, len(addrs))
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			family := FamilyIPv6
			if ipNet.IP.To4() != nil {
				family = FamilyIPv4
			}
			entries = append(entries, Address{Address: ipNet.IP.String(), Family: family})
		}
		out[iface.Name] = entries
	}
	return out, nil
}
