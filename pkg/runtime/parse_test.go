package runtime

import (
	"reflect"
	"testing"
)

func TestParsePSOutput(t *testing.T) {
	out := []byte(`{"ID":"abc123","Names":"pooler","Image":"pooler:2.1","State":"running","Status":"Up 3 hours (healthy)","Ports":"0.0.0.0:6543->6543/tcp, :::6543->6543/tcp","CreatedAt":"2026-08-01 10:00:00 +0000 UTC"}
{"ID":"def456","Names":"analytics","Image":"analytics:1.0","State":"exited","Status":"Exited (1) 2 minutes ago","Ports":"","CreatedAt":"2026-08-01 09:00:00 +0000 UTC"}
`)

	containers, err := ParsePSOutput(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(containers) != 2 {
		t.Fatalf("len = %d, want 2", len(containers))
	}

	pooler := containers[0]
	if pooler.Name != "pooler" || !pooler.Running() {
		t.Errorf("pooler = %+v", pooler)
	}
	if pooler.Health != "healthy" {
		t.Errorf("health = %q, want healthy", pooler.Health)
	}
	if len(pooler.Ports) != 1 || pooler.Ports[0].HostPort != 6543 {
		t.Errorf("ports = %+v, want one 6543 mapping", pooler.Ports)
	}

	analytics := containers[1]
	if analytics.Running() {
		t.Error("exited container reported running")
	}
	if analytics.Health != "" {
		t.Errorf("health = %q, want empty", analytics.Health)
	}
}

func TestParsePSOutput_MalformedRecord(t *testing.T) {
	if _, err := ParsePSOutput([]byte("not json\n")); err == nil {
		t.Error("expected error for malformed record")
	}
}

func TestParsePorts(t *testing.T) {
	tests := []struct {
		in   string
		want []PortMapping
	}{
		{
			"0.0.0.0:6543->6543/tcp, :::6543->6543/tcp",
			[]PortMapping{{HostPort: 6543, ContainerPort: 6543, Protocol: "tcp"}},
		},
		{
			"0.0.0.0:8000->8000/tcp, 0.0.0.0:8443->8443/tcp",
			[]PortMapping{
				{HostPort: 8000, ContainerPort: 8000, Protocol: "tcp"},
				{HostPort: 8443, ContainerPort: 8443, Protocol: "tcp"},
			},
		},
		{
			"0.0.0.0:5432->5432/udp",
			[]PortMapping{{HostPort: 5432, ContainerPort: 5432, Protocol: "udp"}},
		},
		{"6543/tcp", nil},   // unpublished
		{"", nil},           // none
		{"garbage", nil},    // unparseable
		{"x:y->z/tcp", nil}, // non-numeric
	}

	for _, tt := range tests {
		got := ParsePorts(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParsePorts(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseHealth(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"Up 3 hours (healthy)", "healthy"},
		{"Up 10 seconds (unhealthy)", "unhealthy"},
		{"Up 2 seconds (health: starting)", "starting"},
		{"Up 3 hours", ""},
		{"Exited (0) 1 hour ago", ""},
	}
	for _, tt := range tests {
		if got := ParseHealth(tt.status); got != tt.want {
			t.Errorf("ParseHealth(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestParseUptime(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"Up 3 hours", "3 hours"},
		{"Up 3 hours (healthy)", "3 hours"},
		{"Up About a minute", "About a minute"},
		{"Exited (1) 2 minutes ago", "stopped 2 minutes ago (exit code 1)"},
		{"Exited (137) 3 days ago", "stopped 3 days ago (exit code 137)"},
		{"Created", "Created"},
		{"Restarting (1) 5 seconds ago", "Restarting (1) 5 seconds ago"},
	}
	for _, tt := range tests {
		if got := ParseUptime(tt.status); got != tt.want {
			t.Errorf("ParseUptime(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
