package envfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const sample = `# Pooler configuration
POOLER_DEFAULT_POOL_SIZE=20
POOLER_MAX_CLIENT_CONN=100

# Unrelated settings below
POSTGRES_PASSWORD=hunter2
JWT_SECRET=abc123
SITE_URL=http://localhost:3000
`

func TestParse_GetValues(t *testing.T) {
	f := Parse([]byte(sample))

	tests := []struct {
		key  string
		want string
	}{
		{"POOLER_DEFAULT_POOL_SIZE", "20"},
		{"POSTGRES_PASSWORD", "hunter2"},
		{"JWT_SECRET", "abc123"},
		{"SITE_URL", "http://localhost:3000"},
	}
	for _, tt := range tests {
		got, ok := f.Get(tt.key)
		if !ok {
			t.Errorf("Get(%s): not found", tt.key)
			continue
		}
		if got != tt.want {
			t.Errorf("Get(%s) = %q, want %q", tt.key, got, tt.want)
		}
	}

	if _, ok := f.Get("MISSING"); ok {
		t.Error("Get(MISSING) should report absence")
	}
}

func TestBytes_UntouchedRoundTripsExactly(t *testing.T) {
	f := Parse([]byte(sample))
	if !bytes.Equal(f.Bytes(), []byte(sample)) {
		t.Errorf("untouched file did not round-trip:\ngot:\n%s\nwant:\n%s", f.Bytes(), sample)
	}
}

func TestApply_RewritesOnlyOwnedKeys(t *testing.T) {
	f := Parse([]byte(sample))
	f.Apply(map[string]string{
		"POOLER_DEFAULT_POOL_SIZE": "30",
		"POOLER_TENANT_ID":         "prod-tenant", // absent: appended
	})

	want := `# Pooler configuration
POOLER_DEFAULT_POOL_SIZE=30
POOLER_MAX_CLIENT_CONN=100

# Unrelated settings below
POSTGRES_PASSWORD=hunter2
JWT_SECRET=abc123
SITE_URL=http://localhost:3000
POOLER_TENANT_ID=prod-tenant
`
	if string(f.Bytes()) != want {
		t.Errorf("apply result:\n%s\nwant:\n%s", f.Bytes(), want)
	}
}

func TestApply_AppendsMissingKeysSorted(t *testing.T) {
	f := Parse([]byte("A=1\n"))
	f.Apply(map[string]string{"C": "3", "B": "2"})

	got, _ := f.Get("B")
	if got != "2" {
		t.Errorf("B = %q, want 2", got)
	}
	text := string(f.Bytes())
	if idxB, idxC := indexIn(text, "B=2"), indexIn(text, "C=3"); idxB == -1 || idxC == -1 || idxB > idxC {
		t.Errorf("appended keys not sorted:\n%s", text)
	}
}

func indexIn(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestLoadSave_PreservesPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte(sample), 0600); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	f.Set("POOLER_MAX_CLIENT_CONN", "200")
	if err := f.Save(); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %v, want 0600", info.Mode().Perm())
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := reloaded.Get("POOLER_MAX_CLIENT_CONN"); got != "200" {
		t.Errorf("reloaded value = %q, want 200", got)
	}
	if got, _ := reloaded.Get("POSTGRES_PASSWORD"); got != "hunter2" {
		t.Errorf("unrelated key changed: %q", got)
	}
}

func TestParse_DuplicateKeyLastWins(t *testing.T) {
	f := Parse([]byte("A=1\nA=2\n"))
	if got, _ := f.Get("A"); got != "2" {
		t.Errorf("A = %q, want 2 (last occurrence wins)", got)
	}
}

func TestParse_EmptyFile(t *testing.T) {
	f := Parse(nil)
	if len(f.Keys()) != 0 {
		t.Errorf("empty file has keys: %v", f.Keys())
	}
	if f.Bytes() != nil {
		t.Errorf("empty file renders bytes: %q", f.Bytes())
	}
}
