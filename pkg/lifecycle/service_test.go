package lifecycle

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/poolkeeper/poolkeeper/pkg/resilience"
	"github.com/poolkeeper/poolkeeper/pkg/runtime"
)

// fakeRuntime implements runtime.Runtime in memory.
type fakeRuntime struct {
	containers map[string]*runtime.ContainerInfo
	inspectErr error
	restartErr error
	logs       string
	logsErr    error
	restarts   []string
}

func (f *fakeRuntime) Inspect(ctx context.Context, name string) (*runtime.ContainerInfo, error) {
	if f.inspectErr != nil {
		return nil, f.inspectErr
	}
	info, ok := f.containers[name]
	if !ok {
		return nil, runtime.ErrNotFound
	}
	return info, nil
}

func (f *fakeRuntime) List(ctx context.Context) ([]runtime.ContainerInfo, error) {
	var out []runtime.ContainerInfo
	for _, c := range f.containers {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeRuntime) Restart(ctx context.Context, name string) error {
	f.restarts = append(f.restarts, name)
	return f.restartErr
}

func (f *fakeRuntime) Stop(ctx context.Context, name string) error  { return nil }
func (f *fakeRuntime) Start(ctx context.Context, name string) error { return nil }

func (f *fakeRuntime) Logs(ctx context.Context, name string, lines int) (string, error) {
	return f.logs, f.logsErr
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

// testService wires a Service over a fake runtime with sleeps disabled.
func testService(rt *fakeRuntime, stack *Stack) *Service {
	s := NewService(rt, stack)
	s.sleep = noSleep
	s.settle = 0
	return s
}

func runningPooler() *runtime.ContainerInfo {
	return &runtime.ContainerInfo{
		ID:     "abc123",
		Name:   "pooler",
		Image:  "pooler:2.1",
		State:  "running",
		Status: "Up 3 hours (healthy)",
		Health: "healthy",
		Ports:  []runtime.PortMapping{{HostPort: 6543, ContainerPort: 6543, Protocol: "tcp"}},
	}
}

func poolerStack(port int) *Stack {
	return &Stack{Services: []ServiceDefinition{
		{Name: "pooler", Container: "pooler", Check: "tcp", Host: "127.0.0.1", Port: port, Critical: true},
	}}
}

func TestGetStatus_RunningHealthy(t *testing.T) {
	rt := &fakeRuntime{containers: map[string]*runtime.ContainerInfo{"pooler": runningPooler()}}
	s := testService(rt, poolerStack(6543))

	status := s.GetStatus(context.Background(), "pooler")
	if status.Status != StateRunning {
		t.Errorf("status = %s, want running", status.Status)
	}
	if status.Health != HealthHealthy {
		t.Errorf("health = %s, want healthy", status.Health)
	}
	if status.Uptime != "3 hours" {
		t.Errorf("uptime = %q, want 3 hours", status.Uptime)
	}
	if len(status.Ports) != 1 || status.Ports[0].HostPort != 6543 {
		t.Errorf("ports = %+v", status.Ports)
	}
}

func TestGetStatus_StoppedContainer(t *testing.T) {
	info := runningPooler()
	info.State = "exited"
	info.Status = "Exited (0) 5 minutes ago"
	info.Health = ""
	rt := &fakeRuntime{containers: map[string]*runtime.ContainerInfo{"pooler": info}}
	s := testService(rt, poolerStack(6543))

	status := s.GetStatus(context.Background(), "pooler")
	if status.Status != StateStopped {
		t.Errorf("status = %s, want stopped", status.Status)
	}
	if status.Health != HealthNone {
		t.Errorf("health = %s, want none", status.Health)
	}
}

func TestGetStatus_RuntimeUnreachableProbeSucceeds(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	port, _ := strconv.Atoi(strings.TrimPrefix(l.Addr().String(), "127.0.0.1:"))

	rt := &fakeRuntime{inspectErr: errors.New("cannot connect to the docker daemon")}
	s := testService(rt, poolerStack(port))

	status := s.GetStatus(context.Background(), "pooler")
	if status.Status != StateRunning {
		t.Errorf("status = %s, want running (inferred from probe)", status.Status)
	}
	if status.Uptime != "unknown" {
		t.Errorf("uptime = %q, want unknown", status.Uptime)
	}
}

func TestGetStatus_TotalFailureNeverPropagates(t *testing.T) {
	// Runtime down and nothing listening on the probe port.
	l, _ := net.Listen("tcp", "127.0.0.1:0")
	port, _ := strconv.Atoi(strings.TrimPrefix(l.Addr().String(), "127.0.0.1:"))
	l.Close()

	rt := &fakeRuntime{inspectErr: errors.New("daemon down")}
	s := testService(rt, poolerStack(port))

	status := s.GetStatus(context.Background(), "pooler")
	if status.Status != StateError {
		t.Errorf("status = %s, want error", status.Status)
	}
	if status.Health != HealthNone {
		t.Errorf("health = %s, want none", status.Health)
	}
}

func TestGetStatus_UnknownService(t *testing.T) {
	s := testService(&fakeRuntime{}, poolerStack(6543))
	status := s.GetStatus(context.Background(), "nonexistent")
	if status.Status != StateError || status.Health != HealthNone {
		t.Errorf("status = %+v, want error/none", status)
	}
}

func TestCheckHealth_CachesWithinTTL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	addr := strings.TrimPrefix(server.URL, "http://")
	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)

	stack := &Stack{Services: []ServiceDefinition{
		{Name: "gateway", Container: "gateway", Check: "http", Host: host, Port: port, HealthPath: "/health"},
	}}
	rt := &fakeRuntime{containers: map[string]*runtime.ContainerInfo{"gateway": {Name: "gateway", State: "running"}}}
	s := testService(rt, stack)

	first, err := s.CheckHealth(context.Background(), "gateway")
	if err != nil {
		t.Fatal(err)
	}
	if !first.Healthy {
		t.Fatalf("expected healthy: %s", first.Message)
	}

	// Kill the server; the cached verdict must still be served.
	server.Close()
	second, err := s.CheckHealth(context.Background(), "gateway")
	if err != nil {
		t.Fatal(err)
	}
	if !second.Healthy {
		t.Error("expected cached healthy result within TTL")
	}
	if !second.CheckedAt.Equal(first.CheckedAt) {
		t.Error("expected the identical cached result")
	}
}

func TestCheckHealth_TTLExpiryRecomputes(t *testing.T) {
	l, _ := net.Listen("tcp", "127.0.0.1:0")
	port, _ := strconv.Atoi(strings.TrimPrefix(l.Addr().String(), "127.0.0.1:"))
	l.Close()

	rt := &fakeRuntime{inspectErr: errors.New("daemon down")}
	s := testService(rt, poolerStack(port))

	now := time.Now()
	s.cache.now = func() time.Time { return now }

	_, _ = s.CheckHealth(context.Background(), "pooler")

	// Advance past the TTL; the next check must recompute.
	s.cache.now = func() time.Time { return now.Add(cacheTTL + time.Second) }
	result, err := s.CheckHealth(context.Background(), "pooler")
	if err != nil {
		t.Fatal(err)
	}
	if result.Healthy {
		t.Error("recomputed probe against a dead port should be unhealthy")
	}
}

func TestCheckHealth_OptimisticWhenEndpointDownButRunning(t *testing.T) {
	l, _ := net.Listen("tcp", "127.0.0.1:0")
	port, _ := strconv.Atoi(strings.TrimPrefix(l.Addr().String(), "127.0.0.1:"))
	l.Close()

	stack := &Stack{Services: []ServiceDefinition{
		{Name: "analytics", Container: "analytics", Check: "http", Host: "127.0.0.1", Port: port},
	}}
	rt := &fakeRuntime{containers: map[string]*runtime.ContainerInfo{
		"analytics": {Name: "analytics", State: "running", Status: "Up 1 hour"},
	}}
	s := testService(rt, stack)

	result, err := s.CheckHealth(context.Background(), "analytics")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Healthy {
		t.Errorf("running container with dead endpoint should be optimistically healthy: %s", result.Message)
	}
}

func TestRestart_VerifiesRunningState(t *testing.T) {
	rt := &fakeRuntime{containers: map[string]*runtime.ContainerInfo{"pooler": runningPooler()}}
	s := testService(rt, poolerStack(6543))

	if err := s.Restart(context.Background(), "pooler"); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if len(rt.restarts) != 1 || rt.restarts[0] != "pooler" {
		t.Errorf("restarts = %v", rt.restarts)
	}
}

func TestRestart_MissingContainer(t *testing.T) {
	rt := &fakeRuntime{containers: map[string]*runtime.ContainerInfo{}}
	s := testService(rt, poolerStack(6543))

	err := s.Restart(context.Background(), "pooler")
	if err == nil {
		t.Fatal("expected error for missing container")
	}
	typed := resilience.AsTyped(err)
	if typed == nil || typed.Kind != resilience.KindUnavailable {
		t.Errorf("err = %v, want unavailable", err)
	}
	if len(rt.restarts) != 0 {
		t.Error("restart issued for a missing container")
	}
}

func TestRestart_NotRunningAfterSettle(t *testing.T) {
	info := runningPooler()
	rt := &fakeRuntime{containers: map[string]*runtime.ContainerInfo{"pooler": info}}
	s := testService(rt, poolerStack(6543))

	// The restart command "succeeds" but the container ends up exited.
	s.sleep = func(ctx context.Context, d time.Duration) error {
		info.State = "exited"
		return nil
	}

	if err := s.Restart(context.Background(), "pooler"); err == nil {
		t.Error("expected error when container is not running after settle")
	}
}

func TestGetLogs_PlaceholderOnEmptyAndError(t *testing.T) {
	rt := &fakeRuntime{containers: map[string]*runtime.ContainerInfo{"pooler": runningPooler()}}
	s := testService(rt, poolerStack(6543))

	if out := s.GetLogs(context.Background(), "pooler", 100); !strings.Contains(out, "no logs recorded") {
		t.Errorf("empty logs: got %q, want placeholder", out)
	}

	rt.logsErr = errors.New("runtime exploded")
	if out := s.GetLogs(context.Background(), "pooler", 100); !strings.Contains(out, "logs unavailable") {
		t.Errorf("failed fetch: got %q, want placeholder", out)
	}

	rt.logsErr = nil
	rt.logs = "line1\nline2\n"
	if out := s.GetLogs(context.Background(), "pooler", 100); out != "line1\nline2\n" {
		t.Errorf("logs = %q", out)
	}
}

func TestAwaitHealthy_SucceedsImmediately(t *testing.T) {
	rt := &fakeRuntime{containers: map[string]*runtime.ContainerInfo{"pooler": runningPooler()}}
	s := testService(rt, poolerStack(6543))

	if err := s.AwaitHealthy(context.Background(), "pooler", time.Second); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAwaitHealthy_ErrorStateShortCircuits(t *testing.T) {
	info := runningPooler()
	info.State = "dead"
	info.Health = ""
	rt := &fakeRuntime{containers: map[string]*runtime.ContainerInfo{"pooler": info}}
	s := testService(rt, poolerStack(6543))

	start := time.Now()
	err := s.AwaitHealthy(context.Background(), "pooler", 30*time.Second)
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("error state should short-circuit, not wait out the timeout")
	}
}

func TestAwaitHealthy_TimesOut(t *testing.T) {
	info := runningPooler()
	info.Health = "starting"
	rt := &fakeRuntime{containers: map[string]*runtime.ContainerInfo{"pooler": info}}
	s := testService(rt, poolerStack(6543))

	err := s.AwaitHealthy(context.Background(), "pooler", 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	typed := resilience.AsTyped(err)
	if typed == nil || typed.Kind != resilience.KindTimeout {
		t.Errorf("err = %v, want timeout", err)
	}
}
