package config

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/skiffnet/skiff/internal/config/notify"
)

func TestLoad_Fresh(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer r.Close()

	if r.Version() != 18 {
		t.Errorf("Version() = %d, want 18", r.Version())
	}
	if r.Migrated() {
		t.Error("Migrated() = true for a fresh store")
	}

	out := r.Save()
	if !strings.Contains(out, "[general]\n") || !strings.Contains(out, "version = 18\n") {
		t.Errorf("Save() missing explicit version, got:\n%s", out)
	}
}

func TestNew_Defaults(t *testing.T) {
	r := New()
	defer r.Close()

	lt := r.Libtorrent()
	if lt.AnonProxyServer.Host != "127.0.0.1" {
		t.Errorf("AnonProxyServer.Host = %q, want 127.0.0.1", lt.AnonProxyServer.Host)
	}
	if len(lt.AnonProxyServer.Ports) != 5 || lt.AnonProxyServer.Ports[0] != -1 {
		t.Errorf("AnonProxyServer.Ports = %v, want five -1s", lt.AnonProxyServer.Ports)
	}
	if lt.MaxConnectionsDownload != -1 {
		t.Errorf("MaxConnectionsDownload = %d, want -1", lt.MaxConnectionsDownload)
	}

	dd := r.DownloadDefaults()
	if dd.SaveAs != nil {
		t.Errorf("SaveAs = %v, want nil", *dd.SaveAs)
	}
	if dd.SeedingRatio != 2.0 {
		t.Errorf("SeedingRatio = %v, want 2.0", dd.SeedingRatio)
	}
	if dd.SeedingMode != "ratio" {
		t.Errorf("SeedingMode = %q, want ratio", dd.SeedingMode)
	}

	if api := r.HTTPAPI(); api.Enabled {
		t.Error("HTTPAPI().Enabled = true, want false by default")
	}
	if tc := r.TunnelCommunity(); len(tc.Socks5ListenPorts) != 5 {
		t.Errorf("Socks5ListenPorts = %v, want five entries", tc.Socks5ListenPorts)
	}
}

func TestLoad_CurrentVersionRoundTrip(t *testing.T) {
	blob := `# Skiff configuration
[general]
version = 18
log_dir = logs
family_filter = True

[libtorrent]
enabled = True
port = 6881
anon_proxyserver = ('127.0.0.1', [5,4,3,2,1])

[dht]
enabled = True
port = 6881
`
	r, err := Load(blob)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer r.Close()

	host, ports, err := r.GetAddr("libtorrent", "anon_proxyserver")
	if err != nil {
		t.Fatalf("GetAddr() error = %v", err)
	}
	if host != "127.0.0.1" {
		t.Errorf("host = %q, want 127.0.0.1", host)
	}
	if len(ports) != 5 || ports[0] != 5 || ports[4] != 1 {
		t.Errorf("ports = %v, want [5 4 3 2 1]", ports)
	}

	// Nothing was touched, so the blob round-trips byte for byte,
	// composite literal included.
	if out := r.Save(); out != blob {
		t.Errorf("Save() altered untouched entries:\n got: %q\nwant: %q", out, blob)
	}
}

func TestLoad_MigratesToCurrent(t *testing.T) {
	blob := `[general]
version = 17

[libtorrent]
enabled = True
`
	r, err := Load(blob)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer r.Close()

	// The 17→18 step introduces trustchain with enabled True.
	on, err := r.GetBool("trustchain", "enabled")
	if err != nil {
		t.Fatalf("GetBool(trustchain.enabled) error = %v", err)
	}
	if !on {
		t.Error("trustchain.enabled = false, want true after migration")
	}
	if r.Version() != 18 {
		t.Errorf("Version() = %d, want 18", r.Version())
	}
	if !r.Migrated() {
		t.Error("Migrated() = false after an upgrade")
	}
	if !strings.Contains(r.Save(), "version = 18\n") {
		t.Error("Save() should carry the bumped version")
	}
}

func TestLoad_FutureVersion(t *testing.T) {
	_, err := Load("[general]\nversion = 999\n")
	if err == nil {
		t.Fatal("Load() should fail for a future version")
	}
	if !errors.Is(err, ErrFutureVersion) {
		t.Errorf("Load() error = %v, want ErrFutureVersion", err)
	}
	var fve *FutureVersionError
	if !errors.As(err, &fve) {
		t.Fatalf("Load() error chain lacks *FutureVersionError: %v", err)
	}
	if fve.Persisted != 999 || fve.Supported != 18 {
		t.Errorf("FutureVersionError = %d/%d, want 999/18", fve.Persisted, fve.Supported)
	}
}

func TestLoad_MalformedVersion(t *testing.T) {
	_, err := Load("[general]\nversion = banana\n")
	if err == nil {
		t.Fatal("Load() should fail for a malformed version")
	}
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Load() error type = %T, want *LoadError", err)
	}
	if len(le.Errors) != 1 {
		t.Fatalf("LoadError has %d errors, want 1", len(le.Errors))
	}
	if !errors.Is(err, ErrMalformedValue) {
		t.Errorf("Load() error = %v, want ErrMalformedValue", err)
	}
}

func TestLoad_CollectsAllErrors(t *testing.T) {
	blob := `[general]
version = 18

[libtorrent]
port = seven
max_download_rate = -5

[http_api]
port = []
`
	_, err := Load(blob)
	if err == nil {
		t.Fatal("Load() should fail")
	}
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Load() error type = %T, want *LoadError", err)
	}

	var malformed, invalid int
	for _, e := range le.Errors {
		switch {
		case errors.Is(e, ErrMalformedValue):
			malformed++
		case errors.Is(e, ErrValidation):
			invalid++
		}
	}
	if malformed != 2 {
		t.Errorf("collected %d malformed errors, want 2: %v", malformed, le.Errors)
	}
	if invalid != 1 {
		t.Errorf("collected %d validation errors, want 1: %v", invalid, le.Errors)
	}

	msg := err.Error()
	if !strings.Contains(msg, "libtorrent.port") || !strings.Contains(msg, "http_api.port") {
		t.Errorf("error report should name both sections:\n%s", msg)
	}
}

func TestLoad_ParseErrorsCollected(t *testing.T) {
	blob := "[general]\nversion = 18\ngarbage line\n[general]\n"
	_, err := Load(blob)
	if err == nil {
		t.Fatal("Load() should fail on unparseable lines")
	}
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Load() error type = %T, want *LoadError", err)
	}
	if len(le.Errors) < 2 {
		t.Errorf("LoadError has %d errors, want the garbage line and the duplicate header", len(le.Errors))
	}
}

func TestRegistry_UnknownKeyPreservation(t *testing.T) {
	blob := `[general]
version = 18

[libtorrent]
enabled = True
shiny_new_flag = whatever

[experimental_lab]
coil = 7
`
	r, err := Load(blob)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer r.Close()

	// Unknown keys survive a load/save cycle verbatim, in place.
	out := r.Save()
	if !strings.Contains(out, "shiny_new_flag = whatever\n") {
		t.Error("unknown key dropped on save")
	}
	if !strings.Contains(out, "[experimental_lab]\ncoil = 7\n") {
		t.Error("unknown section dropped on save")
	}

	// Typed reads of undeclared keys are programming errors.
	if _, err := r.GetString("libtorrent", "shiny_new_flag"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("GetString(unknown) error = %v, want ErrUnknownKey", err)
	}
	if _, err := r.IsEnabled("experimental_lab"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("IsEnabled(unknown section) error = %v, want ErrUnknownKey", err)
	}
}

func TestRegistry_SetValidationPreservesPrior(t *testing.T) {
	r, err := Load("[general]\nversion = 18\n\n[libtorrent]\nmax_download_rate = 512000\n")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer r.Close()

	err = r.SetInt("libtorrent", "max_download_rate", -5)
	if err == nil {
		t.Fatal("SetInt(-5) should fail the non-negative constraint")
	}
	if !errors.Is(err, ErrValidation) {
		t.Errorf("SetInt() error = %v, want ErrValidation", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("SetInt() error type = %T, want *ValidationError", err)
	}
	if ve.Constraint != "non-negative" {
		t.Errorf("Constraint = %q, want non-negative", ve.Constraint)
	}

	got, err := r.GetInt("libtorrent", "max_download_rate")
	if err != nil {
		t.Fatalf("GetInt() error = %v", err)
	}
	if got != 512000 {
		t.Errorf("value after rejected set = %d, want 512000", got)
	}
}

func TestRegistry_DefaultMaterialization(t *testing.T) {
	r, err := Load("[general]\nversion = 18\n")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer r.Close()

	// Reads of a never-set key return the schema default every time.
	for i := 0; i < 2; i++ {
		port, err := r.GetInt("dht", "port")
		if err != nil {
			t.Fatalf("GetInt(dht.port) error = %v", err)
		}
		if port != -1 {
			t.Errorf("dht.port = %d, want default -1", port)
		}
	}

	// The materialized default is persisted explicitly.
	out := r.Save()
	if !strings.Contains(out, "[dht]\nport = -1\n") {
		t.Errorf("Save() should include the materialized default, got:\n%s", out)
	}
}

func TestRegistry_TypedAccessors(t *testing.T) {
	r := New()
	defer r.Close()

	if err := r.SetBool("libtorrent", "utp", false); err != nil {
		t.Fatalf("SetBool() error = %v", err)
	}
	if v, _ := r.GetBool("libtorrent", "utp"); v {
		t.Error("GetBool() = true after SetBool(false)")
	}

	if err := r.SetInt("dht", "port", 6881); err != nil {
		t.Fatalf("SetInt() error = %v", err)
	}
	if v, _ := r.GetInt("dht", "port"); v != 6881 {
		t.Errorf("GetInt() = %d, want 6881", v)
	}

	if err := r.SetFloat("download_defaults", "seeding_ratio", 1.5); err != nil {
		t.Fatalf("SetFloat() error = %v", err)
	}
	if v, _ := r.GetFloat("download_defaults", "seeding_ratio"); v != 1.5 {
		t.Errorf("GetFloat() = %v, want 1.5", v)
	}

	if err := r.SetString("general", "log_dir", "/var/log/skiff"); err != nil {
		t.Fatalf("SetString() error = %v", err)
	}
	if v, _ := r.GetString("general", "log_dir"); v != "/var/log/skiff" {
		t.Errorf("GetString() = %q, want /var/log/skiff", v)
	}

	if err := r.SetIntList("tunnel_community", "socks5_listen_ports", []int{1080, 1081, 1082, 1083, 1084}); err != nil {
		t.Fatalf("SetIntList() error = %v", err)
	}
	if v, _ := r.GetIntList("tunnel_community", "socks5_listen_ports"); len(v) != 5 || v[0] != 1080 {
		t.Errorf("GetIntList() = %v", v)
	}

	if err := r.SetStringList("credit_mining", "sources", []string{"chan1", "chan2"}); err != nil {
		t.Fatalf("SetStringList() error = %v", err)
	}
	if v, _ := r.GetStringList("credit_mining", "sources"); len(v) != 2 || v[1] != "chan2" {
		t.Errorf("GetStringList() = %v", v)
	}

	if err := r.SetAddr("libtorrent", "proxy_server", "10.0.0.1", []int{9050}); err != nil {
		t.Fatalf("SetAddr() error = %v", err)
	}
	host, ports, _ := r.GetAddr("libtorrent", "proxy_server")
	if host != "10.0.0.1" || len(ports) != 1 || ports[0] != 9050 {
		t.Errorf("GetAddr() = %q %v", host, ports)
	}

	// Kind mismatch between accessor and key.
	if _, err := r.GetBool("dht", "port"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("GetBool(int key) error = %v, want ErrTypeMismatch", err)
	}
}

func TestRegistry_Nullable(t *testing.T) {
	r := New()
	defer r.Close()

	v, err := r.GetStringOrNil("ipv8", "bootstrap_override")
	if err != nil {
		t.Fatalf("GetStringOrNil() error = %v", err)
	}
	if v != nil {
		t.Errorf("bootstrap_override = %q, want nil default", *v)
	}

	if err := r.SetString("ipv8", "bootstrap_override", "1.2.3.4:7759"); err != nil {
		t.Fatalf("SetString() error = %v", err)
	}
	v, err = r.GetStringOrNil("ipv8", "bootstrap_override")
	if err != nil || v == nil || *v != "1.2.3.4:7759" {
		t.Errorf("GetStringOrNil() = %v, %v", v, err)
	}

	if err := r.SetNull("ipv8", "bootstrap_override"); err != nil {
		t.Fatalf("SetNull() error = %v", err)
	}
	if v, _ = r.GetStringOrNil("ipv8", "bootstrap_override"); v != nil {
		t.Errorf("bootstrap_override = %q after SetNull, want nil", *v)
	}

	// None on a non-nullable key is rejected.
	if err := r.SetNull("general", "log_dir"); !errors.Is(err, ErrValidation) {
		t.Errorf("SetNull(non-nullable) error = %v, want ErrValidation", err)
	}
}

func TestRegistry_IsEnabled(t *testing.T) {
	r := New()
	defer r.Close()

	if on, err := r.IsEnabled("general"); err != nil || !on {
		t.Errorf("IsEnabled(general) = %v, %v, want true", on, err)
	}
	if on, err := r.IsEnabled("http_api"); err != nil || on {
		t.Errorf("IsEnabled(http_api) = %v, %v, want false default", on, err)
	}
	if err := r.SetBool("http_api", "enabled", true); err != nil {
		t.Fatalf("SetBool() error = %v", err)
	}
	if on, _ := r.IsEnabled("http_api"); !on {
		t.Error("IsEnabled(http_api) = false after enabling")
	}
}

func TestRegistry_SetNotifies(t *testing.T) {
	r := New()
	defer r.Close()

	var got notify.Change
	r.Subscribe(func(change notify.Change) {
		got = change
	})

	if err := r.SetInt("dht", "port", 6881); err != nil {
		t.Fatalf("SetInt() error = %v", err)
	}

	if got.Section != "dht" || got.Key != "port" {
		t.Errorf("change = %s.%s, want dht.port", got.Section, got.Key)
	}
	if got.Type != notify.ChangeSet {
		t.Errorf("change type = %v, want ChangeSet", got.Type)
	}
	if n, _ := got.New.Int(); n != 6881 {
		t.Errorf("change new = %v, want 6881", got.New)
	}
}

func TestRegistry_Reload(t *testing.T) {
	r, err := Load("[general]\nversion = 18\n\n[dht]\nenabled = True\nport = 6881\n")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer r.Close()

	var mu sync.Mutex
	var changes []notify.Change
	r.Subscribe(func(change notify.Change) {
		mu.Lock()
		changes = append(changes, change)
		mu.Unlock()
	})

	err = r.Reload("[general]\nversion = 18\n\n[dht]\nenabled = True\nport = 9999\n")
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if port, _ := r.GetInt("dht", "port"); port != 9999 {
		t.Errorf("dht.port = %d after reload, want 9999", port)
	}

	mu.Lock()
	defer mu.Unlock()
	var sawPort, sawReload bool
	for _, c := range changes {
		if c.Type == notify.ChangeSet && c.Section == "dht" && c.Key == "port" {
			sawPort = true
		}
		if c.Type == notify.ChangeReload {
			sawReload = true
		}
	}
	if !sawPort {
		t.Error("reload did not dispatch a change for dht.port")
	}
	if !sawReload {
		t.Error("reload did not dispatch a reload event")
	}
}

func TestRegistry_ReloadInvalidKeepsState(t *testing.T) {
	r, err := Load("[general]\nversion = 18\n\n[dht]\nport = 6881\n")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer r.Close()

	if err := r.Reload("[general]\nversion = 18\n\n[dht]\nport = seven\n"); err == nil {
		t.Fatal("Reload() should reject an invalid blob")
	}
	if port, _ := r.GetInt("dht", "port"); port != 6881 {
		t.Errorf("dht.port = %d after failed reload, want 6881", port)
	}
}

func TestLoad_MigrationIdempotent(t *testing.T) {
	blob := `[general]
version = 15

[tunnel_community]
enabled = True
socks5_port = 1080
`
	r1, err := Load(blob)
	if err != nil {
		t.Fatalf("Load(v15) error = %v", err)
	}
	defer r1.Close()
	saved := r1.Save()

	r2, err := Load(saved)
	if err != nil {
		t.Fatalf("Load(migrated) error = %v", err)
	}
	defer r2.Close()
	if r2.Migrated() {
		t.Error("Migrated() = true on an already-current file")
	}
	if again := r2.Save(); again != saved {
		t.Errorf("second load altered the file:\n got: %q\nwant: %q", again, saved)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New()
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = r.SetInt("dht", "port", 6000+i)
				_, _ = r.GetInt("dht", "port")
				_ = r.Libtorrent()
				_, _ = r.IsEnabled("dht")
			}
		}(i)
	}
	wg.Wait()

	port, err := r.GetInt("dht", "port")
	if err != nil {
		t.Fatalf("GetInt() error = %v", err)
	}
	if port < 6000 || port > 6007 {
		t.Errorf("dht.port = %d, want one of the written values", port)
	}
}
