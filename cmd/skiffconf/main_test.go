package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

// execute runs a command line and captures its streams.
func execute(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func confPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "skiff.conf")
}

func TestRun_NoArgs(t *testing.T) {
	code, _, stderr := execute()
	if code != 2 {
		t.Errorf("run() = %d, want 2", code)
	}
	if !strings.Contains(stderr, "Usage:") {
		t.Error("usage should print on empty invocation")
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, stderr := execute("frobnicate")
	if code != 2 {
		t.Errorf("run() = %d, want 2", code)
	}
	if !strings.Contains(stderr, "unknown command") {
		t.Errorf("stderr = %q, want unknown command report", stderr)
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := execute("version")
	if code != 0 {
		t.Errorf("run() = %d, want 0", code)
	}
	if !strings.Contains(stdout, "skiffconf") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestInit_ThenValidate(t *testing.T) {
	file := confPath(t)

	code, stdout, _ := execute("init", "-f", file)
	if code != 0 {
		t.Fatalf("init = %d", code)
	}
	if !strings.Contains(stdout, "version 18") {
		t.Errorf("init stdout = %q", stdout)
	}

	code, stdout, _ = execute("validate", "-f", file)
	if code != 0 {
		t.Fatalf("validate = %d", code)
	}
	if !strings.Contains(stdout, "valid at version 18") {
		t.Errorf("validate stdout = %q", stdout)
	}

	// A second init refuses to clobber without -force.
	if code, _, _ = execute("init", "-f", file); code != 1 {
		t.Errorf("init over existing = %d, want 1", code)
	}
	if code, _, _ = execute("init", "-f", file, "-force"); code != 0 {
		t.Errorf("init -force = %d, want 0", code)
	}
}

func TestValidate_MissingFile(t *testing.T) {
	code, _, stderr := execute("validate", "-f", confPath(t))
	if code != 1 {
		t.Errorf("validate = %d, want 1", code)
	}
	if !strings.Contains(stderr, "does not exist") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	file := confPath(t)
	blob := "[general]\nversion = 18\n\n[libtorrent]\nport = seven\nmax_download_rate = -5\n"
	if err := os.WriteFile(file, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := execute("validate", "-f", file)
	if code != 1 {
		t.Errorf("validate = %d, want 1", code)
	}
	if !strings.Contains(stderr, "libtorrent.port") || !strings.Contains(stderr, "max_download_rate") {
		t.Errorf("stderr should report both problems:\n%s", stderr)
	}
}

func TestGetSet(t *testing.T) {
	file := confPath(t)
	if code, _, _ := execute("init", "-f", file); code != 0 {
		t.Fatal("init failed")
	}

	if code, _, _ := execute("set", "-f", file, "libtorrent", "port", "6881"); code != 0 {
		t.Fatal("set failed")
	}
	code, stdout, _ := execute("get", "-f", file, "libtorrent", "port")
	if code != 0 {
		t.Fatalf("get = %d", code)
	}
	if strings.TrimSpace(stdout) != "6881" {
		t.Errorf("get stdout = %q, want 6881", stdout)
	}

	// Constraint violations leave the file untouched.
	code, _, stderr := execute("set", "-f", file, "libtorrent", "max_download_rate", "-5")
	if code != 1 {
		t.Errorf("set invalid = %d, want 1", code)
	}
	if !strings.Contains(stderr, "non-negative") {
		t.Errorf("stderr = %q", stderr)
	}
	if code, stdout, _ = execute("get", "-f", file, "libtorrent", "max_download_rate"); code != 0 || strings.TrimSpace(stdout) != "0" {
		t.Errorf("get after rejected set = %d %q, want default 0", code, stdout)
	}

	if code, _, _ = execute("get", "-f", file, "libtorrent", "no_such_key"); code != 1 {
		t.Errorf("get unknown key = %d, want 1", code)
	}
	if code, _, _ = execute("get", "-f", file, "libtorrent"); code != 2 {
		t.Errorf("get with missing argument = %d, want 2", code)
	}

	// Composite literals round-trip through the command line.
	if code, _, _ := execute("set", "-f", file, "libtorrent", "anon_proxyserver", "('127.0.0.1', [5,4,3,2,1])"); code != 0 {
		t.Fatal("set addr failed")
	}
	if _, stdout, _ = execute("get", "-f", file, "libtorrent", "anon_proxyserver"); strings.TrimSpace(stdout) != "('127.0.0.1', [5,4,3,2,1])" {
		t.Errorf("get addr = %q", stdout)
	}
}

func TestMigrate(t *testing.T) {
	file := confPath(t)
	blob := "[general]\nversion = 17\n\n[mainline_dht]\nenabled = False\n"
	if err := os.WriteFile(file, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, _ := execute("migrate", "-f", file)
	if code != 0 {
		t.Fatalf("migrate = %d", code)
	}
	if !strings.Contains(stdout, "migrated to version 18") {
		t.Errorf("stdout = %q", stdout)
	}

	rewritten, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(rewritten), "version = 18") {
		t.Error("file should carry the new version")
	}
	if !strings.Contains(string(rewritten), "[dht]") || strings.Contains(string(rewritten), "[mainline_dht]") {
		t.Error("file should carry the renamed section")
	}

	code, stdout, _ = execute("migrate", "-f", file)
	if code != 0 || !strings.Contains(stdout, "already at version 18") {
		t.Errorf("second migrate = %d %q", code, stdout)
	}
}

func TestExport_Formats(t *testing.T) {
	file := confPath(t)

	code, stdout, _ := execute("export", "-f", file, "-format", "json")
	if code != 0 {
		t.Fatalf("export json = %d", code)
	}
	if !gjson.Valid(stdout) {
		t.Errorf("export json produced invalid JSON:\n%s", stdout)
	}
	if gjson.Get(stdout, "general.version").Int() != 18 {
		t.Error("export json missing general.version")
	}

	if code, stdout, _ = execute("export", "-f", file, "-format", "toml"); code != 0 || !strings.Contains(stdout, "[general]") {
		t.Errorf("export toml = %d:\n%s", code, stdout)
	}
	if code, stdout, _ = execute("export", "-f", file, "-format", "yaml"); code != 0 || !strings.HasPrefix(stdout, "general:") {
		t.Errorf("export yaml = %d:\n%s", code, stdout)
	}
	if code, _, _ = execute("export", "-f", file, "-format", "xml"); code != 2 {
		t.Errorf("export xml = %d, want 2", code)
	}
}

func TestShow_IncludesDefaults(t *testing.T) {
	code, stdout, _ := execute("show", "-f", confPath(t))
	if code != 0 {
		t.Fatalf("show = %d", code)
	}
	if !strings.HasPrefix(stdout, "[general]\nversion = 18\n") {
		t.Errorf("show should open with general:\n%s", stdout)
	}
	if !strings.Contains(stdout, "anon_proxyserver = ('127.0.0.1', [-1,-1,-1,-1,-1])") {
		t.Errorf("show should include composite defaults:\n%s", stdout)
	}
}

func TestPlan_Defaults(t *testing.T) {
	code, stdout, _ := execute("plan", "-f", confPath(t))
	if code != 0 {
		t.Fatalf("plan = %d", code)
	}
	for _, name := range []string{"ipv8", "libtorrent", "tunnel_community"} {
		if !strings.Contains(stdout, name) {
			t.Errorf("plan missing %s:\n%s", name, stdout)
		}
	}
	if strings.Contains(stdout, "credit_mining") {
		t.Error("plan should omit components disabled by default")
	}
}

func TestPlan_ReportsRequirementFailure(t *testing.T) {
	file := confPath(t)
	blob := "[general]\nversion = 18\n\n[ipv8]\nenabled = False\n"
	if err := os.WriteFile(file, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := execute("plan", "-f", file)
	if code != 1 {
		t.Errorf("plan = %d, want 1", code)
	}
	if !strings.Contains(stderr, "requires ipv8") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestWatch_MissingFile(t *testing.T) {
	code, _, stderr := execute("watch", "-f", confPath(t))
	if code != 1 {
		t.Errorf("watch = %d, want 1", code)
	}
	if !strings.Contains(stderr, "does not exist") {
		t.Errorf("stderr = %q", stderr)
	}
}
