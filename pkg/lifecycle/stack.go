package lifecycle

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/poolkeeper/poolkeeper/pkg/health"
)

// ServiceDefinition declares one managed service: which container backs
// it and how to probe its health.
type ServiceDefinition struct {
	// Name is the logical service name used in all APIs and logs.
	Name string `yaml:"name"`

	// Container is the container name in the runtime.
	Container string `yaml:"container"`

	// Check selects the probe strategy: "http" or "tcp".
	Check string `yaml:"check"`

	// Host is the probe target host. Defaults to localhost.
	Host string `yaml:"host,omitempty"`

	// Port is the probe target port.
	Port int `yaml:"port"`

	// HealthPath overrides the conventional /health path for HTTP probes.
	HealthPath string `yaml:"health_path,omitempty"`

	// Critical marks services whose failure blocks a configuration update.
	Critical bool `yaml:"critical,omitempty"`
}

// ProbeAddress returns the host:port the service is probed on.
func (d ServiceDefinition) ProbeAddress() string {
	host := d.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s:%d", host, d.Port)
}

// Checker builds the probe for this definition.
func (d ServiceDefinition) Checker() health.Checker {
	if d.Check == "http" {
		path := d.HealthPath
		if path == "" {
			path = health.HealthPath
		}
		return health.NewHTTPChecker("http://" + d.ProbeAddress() + path)
	}
	return health.NewTCPChecker(d.ProbeAddress())
}

// Stack is the set of services Poolkeeper manages, loaded from a YAML
// definition file.
type Stack struct {
	Services []ServiceDefinition `yaml:"services"`
}

// Lookup finds a service definition by name.
func (s *Stack) Lookup(name string) (ServiceDefinition, bool) {
	for _, svc := range s.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return ServiceDefinition{}, false
}

// LoadStack reads a stack definition from a YAML file.
func LoadStack(path string) (*Stack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stack file: %w", err)
	}
	var stack Stack
	if err := yaml.Unmarshal(data, &stack); err != nil {
		return nil, fmt.Errorf("failed to parse stack file: %w", err)
	}
	if len(stack.Services) == 0 {
		return nil, fmt.Errorf("stack file %s defines no services", path)
	}
	for _, svc := range stack.Services {
		if svc.Name == "" || svc.Container == "" || svc.Port == 0 {
			return nil, fmt.Errorf("service %+v is missing name, container, or port", svc)
		}
		if svc.Check != "http" && svc.Check != "tcp" {
			return nil, fmt.Errorf("service %s: check must be http or tcp, got %q", svc.Name, svc.Check)
		}
	}
	return &stack, nil
}

// DefaultStack describes a standard self-hosted deployment. The pooler
// speaks the database wire protocol, so it gets a TCP probe; the sibling
// containers expose HTTP health endpoints.
func DefaultStack() *Stack {
	return &Stack{
		Services: []ServiceDefinition{
			{Name: "pooler", Container: "pooler", Check: "tcp", Port: 6543, Critical: true},
			{Name: "database", Container: "db", Check: "tcp", Port: 5432, Critical: true},
			{Name: "gateway", Container: "gateway", Check: "http", Port: 8000, HealthPath: "/health"},
			{Name: "analytics", Container: "analytics", Check: "http", Port: 4000, HealthPath: "/health"},
		},
	}
}
