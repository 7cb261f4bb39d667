// Package common holds the small address and service-database helpers shared
// by the derivation core and the setup layer.
//
// The services parser is a cut-down take on netdb(3): name to port number
// only, so NAT port exclusions can be written as "ssh" instead of 22.
// Parsing works on raw bytes and loading is explicit, to keep it testable
// without the host's /etc/services.
package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var ErrUnknownService = errors.New("unknown service")

type Servent struct {
	Name     string
	Aliases  []string
	Port     uint16
	Protocol string
}

// ParseServices parses data in /etc/services format. Malformed lines are
// skipped, same as the libc parser.
func ParseServices(data []byte) (services []Servent) {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		split := strings.SplitN(line, "#", 2)
		fields := strings.Fields(split[0])
		if len(fields) < 2 {
			continue
		}

		portproto := strings.SplitN(fields[1], "/", 2)
		if len(portproto) != 2 {
			continue
		}
		port, err := strconv.ParseUint(portproto[0], 10, 16)
		if err != nil {
			continue
		}

		services = append(services, Servent{
			Name:     fields[0],
			Aliases:  fields[2:],
			Port:     uint16(port),
			Protocol: portproto[1],
		})
	}
	return
}

// LoadServices reads and parses the host's services database.
func LoadServices() ([]Servent, error) {
	data, err := os.ReadFile("/etc/services")
	if err != nil {
		return nil, err
	}
	return ParseServices(data), nil
}

// GetServByName returns the first service whose name or any of its aliases
// matches the argument, or nil.
func GetServByName(services []Servent, name string) *Servent {
	for i, servent := range services {
		if servent.Name == name {
			return &services[i]
		}
		for _, alias := range servent.Aliases {
			if alias == name {
				return &services[i]
			}
		}
	}
	return nil
}

// ResolvePort interprets entry as a decimal port number or a service name.
func ResolvePort(services []Servent, entry string) (uint16, error) {
	if n, err := strconv.ParseUint(entry, 10, 16); err == nil {
		return uint16(n), nil
	}
	if s := GetServByName(services, entry); s != nil {
		return s.Port, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownService, entry)
}
