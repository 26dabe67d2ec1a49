package runtime

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// psRecord is one line of `docker ps --format '{{json .}}'` output.
type psRecord struct {
	ID        string `json:"ID"`
	Names     string `json:"Names"`
	Image     string `json:"Image"`
	State     string `json:"State"`
	Status    string `json:"Status"`
	Ports     string `json:"Ports"`
	CreatedAt string `json:"CreatedAt"`
}

// ParsePSOutput parses newline-delimited JSON container records.
func ParsePSOutput(out []byte) ([]ContainerInfo, error) {
	var containers []ContainerInfo

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec psRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse container record %q: %w", line, err)
		}
		containers = append(containers, ContainerInfo{
			ID:        rec.ID,
			Name:      rec.Names,
			Image:     rec.Image,
			State:     rec.State,
			Status:    rec.Status,
			Health:    ParseHealth(rec.Status),
			Ports:     ParsePorts(rec.Ports),
			CreatedAt: rec.CreatedAt,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan container records: %w", err)
	}
	return containers, nil
}

// ParseHealth extracts the healthcheck verdict embedded in a docker status
// string, e.g. "Up 3 hours (healthy)". Returns "" when the container has
// no healthcheck.
func ParseHealth(status string) string {
	switch {
	case strings.Contains(status, "(healthy)"):
		return "healthy"
	case strings.Contains(status, "(unhealthy)"):
		return "unhealthy"
	case strings.Contains(status, "health: starting"):
		return "starting"
	}
	return ""
}

// ParsePorts parses a docker port summary like
// "0.0.0.0:6543->6543/tcp, :::6543->6543/tcp" into host/container pairs.
// Unpublished ports ("6543/tcp" with no arrow) and unparseable segments
// are skipped. IPv4/IPv6 duplicates of the same pair are collapsed.
func ParsePorts(s string) []PortMapping {
	var mappings []PortMapping
	seen := make(map[PortMapping]bool)

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || !strings.Contains(part, "->") {
			continue
		}

		halves := strings.SplitN(part, "->", 2)
		hostHalf, containerHalf := halves[0], halves[1]

		// Host half is addr:port; the port follows the last colon so
		// IPv6 binds like ":::6543" parse correctly.
		colon := strings.LastIndex(hostHalf, ":")
		if colon < 0 {
			continue
		}
		hostPort, err := strconv.Atoi(hostHalf[colon+1:])
		if err != nil {
			continue
		}

		proto := "tcp"
		if slash := strings.Index(containerHalf, "/"); slash >= 0 {
			proto = containerHalf[slash+1:]
			containerHalf = containerHalf[:slash]
		}
		containerPort, err := strconv.Atoi(containerHalf)
		if err != nil {
			continue
		}

		m := PortMapping{HostPort: hostPort, ContainerPort: containerPort, Protocol: proto}
		if !seen[m] {
			seen[m] = true
			mappings = append(mappings, m)
		}
	}
	return mappings
}

var exitedPattern = regexp.MustCompile(`^Exited \((\d+)\)\s+(.+)$`)

// ParseUptime normalizes a docker status string into an uptime
// description. "Up 3 hours (healthy)" becomes "3 hours"; "Exited (1)
// 2 minutes ago" becomes "stopped 2 minutes ago (exit code 1)". Strings
// matching neither shape are returned as-is.
func ParseUptime(status string) string {
	if strings.HasPrefix(status, "Up ") {
		desc := strings.TrimPrefix(status, "Up ")
		if paren := strings.Index(desc, " ("); paren >= 0 {
			desc = desc[:paren]
		}
		return desc
	}
	if m := exitedPattern.FindStringSubmatch(status); m != nil {
		return fmt.Sprintf("stopped %s (exit code %s)", m[2], m[1])
	}
	return status
}
