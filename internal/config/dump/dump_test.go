package dump

import (
	"errors"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/skiffnet/skiff/internal/config"
)

func TestJSON_Defaults(t *testing.T) {
	r := config.New()
	defer r.Close()

	out, err := JSON(r)
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if !gjson.Valid(out) {
		t.Fatalf("JSON() produced invalid JSON:\n%s", out)
	}

	if v := gjson.Get(out, "general.version"); v.Int() != 18 {
		t.Errorf("general.version = %v, want 18", v)
	}
	if v := gjson.Get(out, "dht.port"); v.Int() != -1 {
		t.Errorf("dht.port = %v, want -1", v)
	}
	if v := gjson.Get(out, "http_api.enabled"); v.Type != gjson.False {
		t.Errorf("http_api.enabled = %v, want false", v)
	}
	if v := gjson.Get(out, "download_defaults.saveas"); v.Type != gjson.Null {
		t.Errorf("download_defaults.saveas = %v, want null", v)
	}
	if v := gjson.Get(out, "download_defaults.seeding_ratio"); v.Num != 2.0 {
		t.Errorf("download_defaults.seeding_ratio = %v, want 2.0", v)
	}

	addr := gjson.Get(out, "libtorrent.anon_proxyserver")
	if !addr.IsArray() {
		t.Fatalf("anon_proxyserver = %v, want [host, ports]", addr)
	}
	parts := addr.Array()
	if len(parts) != 2 || parts[0].String() != "127.0.0.1" {
		t.Errorf("anon_proxyserver host = %v, want 127.0.0.1", parts)
	}
	if ports := parts[1].Array(); len(ports) != 5 || ports[0].Int() != -1 {
		t.Errorf("anon_proxyserver ports = %v, want five -1s", parts[1])
	}
}

func TestJSON_UnknownPreserved(t *testing.T) {
	r, err := config.Load("[general]\nversion = 18\n\n[libtorrent]\nshiny_new_flag = whatever\n")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer r.Close()

	out, err := JSON(r)
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if v := gjson.Get(out, "libtorrent.shiny_new_flag"); v.String() != "whatever" {
		t.Errorf("shiny_new_flag = %v, want raw string", v)
	}
}

func TestPatch_Basic(t *testing.T) {
	r := config.New()
	defer r.Close()

	patch := `{
		"dht": {"port": 6881},
		"general": {"log_dir": "/var/log/skiff"},
		"download_defaults": {"saveas": "/downloads", "seeding_ratio": 1.5},
		"tunnel_community": {"socks5_listen_ports": [1080, 1081, 1082, 1083, 1084]},
		"libtorrent": {"anon_proxyserver": ["10.0.0.1", [5000, 5001]]}
	}`
	if err := Patch(r, patch); err != nil {
		t.Fatalf("Patch() error = %v", err)
	}

	if port, _ := r.GetInt("dht", "port"); port != 6881 {
		t.Errorf("dht.port = %d, want 6881", port)
	}
	if dir, _ := r.GetString("general", "log_dir"); dir != "/var/log/skiff" {
		t.Errorf("general.log_dir = %q", dir)
	}
	if saveas, _ := r.GetStringOrNil("download_defaults", "saveas"); saveas == nil || *saveas != "/downloads" {
		t.Errorf("saveas = %v, want /downloads", saveas)
	}
	if ratio, _ := r.GetFloat("download_defaults", "seeding_ratio"); ratio != 1.5 {
		t.Errorf("seeding_ratio = %v, want 1.5", ratio)
	}
	if ports, _ := r.GetIntList("tunnel_community", "socks5_listen_ports"); len(ports) != 5 || ports[0] != 1080 {
		t.Errorf("socks5_listen_ports = %v", ports)
	}
	host, ports, _ := r.GetAddr("libtorrent", "anon_proxyserver")
	if host != "10.0.0.1" || len(ports) != 2 || ports[1] != 5001 {
		t.Errorf("anon_proxyserver = %q %v", host, ports)
	}
}

func TestPatch_NullOnNullable(t *testing.T) {
	r := config.New()
	defer r.Close()

	if err := r.SetString("download_defaults", "saveas", "/downloads"); err != nil {
		t.Fatalf("SetString() error = %v", err)
	}
	if err := Patch(r, `{"download_defaults": {"saveas": null}}`); err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if saveas, _ := r.GetStringOrNil("download_defaults", "saveas"); saveas != nil {
		t.Errorf("saveas = %q, want nil", *saveas)
	}
}

func TestPatch_Atomic(t *testing.T) {
	r := config.New()
	defer r.Close()

	// One valid entry, one constraint violation. Nothing applies.
	err := Patch(r, `{"dht": {"port": 6881}, "libtorrent": {"max_download_rate": -5}}`)
	if err == nil {
		t.Fatal("Patch() should fail")
	}
	if !errors.Is(err, config.ErrValidation) {
		t.Errorf("Patch() error = %v, want ErrValidation", err)
	}
	if port, _ := r.GetInt("dht", "port"); port != -1 {
		t.Errorf("dht.port = %d after rejected patch, want untouched -1", port)
	}
}

func TestPatch_CollectsAllErrors(t *testing.T) {
	r := config.New()
	defer r.Close()

	err := Patch(r, `{
		"dht": {"port": "six"},
		"libtorrent": {"max_download_rate": -5},
		"made_up": {"key": 1}
	}`)
	if err == nil {
		t.Fatal("Patch() should fail")
	}
	var le *config.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Patch() error type = %T, want *LoadError", err)
	}
	if len(le.Errors) != 3 {
		t.Errorf("collected %d errors, want 3: %v", len(le.Errors), le.Errors)
	}
	if !errors.Is(err, config.ErrUnknownKey) {
		t.Errorf("error chain should include ErrUnknownKey: %v", err)
	}
	if !errors.Is(err, config.ErrMalformedValue) {
		t.Errorf("error chain should include ErrMalformedValue: %v", err)
	}
}

func TestPatch_RejectsShapes(t *testing.T) {
	r := config.New()
	defer r.Close()

	tests := []struct {
		name  string
		patch string
	}{
		{"not json", "{nope"},
		{"root not object", `[1, 2]`},
		{"fractional int", `{"dht": {"port": 68.81}}`},
		{"bool for int", `{"dht": {"port": true}}`},
		{"null on non-nullable", `{"general": {"log_dir": null}}`},
		{"mixed list", `{"tunnel_community": {"socks5_listen_ports": [1080, "x"]}}`},
		{"addr missing ports", `{"libtorrent": {"anon_proxyserver": ["10.0.0.1"]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Patch(r, tt.patch); err == nil {
				t.Error("Patch() = nil, want error")
			}
		})
	}
}

func TestPatch_RoundTripsOwnJSON(t *testing.T) {
	src := config.New()
	defer src.Close()
	if err := src.SetInt("dht", "port", 9999); err != nil {
		t.Fatalf("SetInt() error = %v", err)
	}

	doc, err := JSON(src)
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	dst := config.New()
	defer dst.Close()
	if err := Patch(dst, doc); err != nil {
		t.Fatalf("Patch(JSON()) error = %v", err)
	}

	if port, _ := dst.GetInt("dht", "port"); port != 9999 {
		t.Errorf("dht.port = %d after round trip, want 9999", port)
	}
	back, err := JSON(dst)
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if back != doc {
		t.Errorf("round-tripped document differs:\n got: %s\nwant: %s", back, doc)
	}
}

func TestTOML_Defaults(t *testing.T) {
	r := config.New()
	defer r.Close()

	out, err := TOML(r)
	if err != nil {
		t.Fatalf("TOML() error = %v", err)
	}

	var doc map[string]map[string]interface{}
	if err := toml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("Unmarshal(TOML()) error = %v\n%s", err, out)
	}

	if v, ok := doc["general"]["version"].(int64); !ok || v != 18 {
		t.Errorf("general.version = %v, want 18", doc["general"]["version"])
	}
	if v, ok := doc["dht"]["port"].(int64); !ok || v != -1 {
		t.Errorf("dht.port = %v, want -1", doc["dht"]["port"])
	}

	// TOML has no null; nullable keys at None are omitted.
	if _, present := doc["download_defaults"]["saveas"]; present {
		t.Error("saveas should be omitted from TOML while None")
	}
}

func TestYAML_Defaults(t *testing.T) {
	r := config.New()
	defer r.Close()

	out, err := YAML(r)
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}

	// Sections keep schema order, so the document starts with general.
	if !strings.HasPrefix(out, "general:") {
		t.Errorf("YAML() should start with the general section:\n%s", out)
	}

	var doc map[string]map[string]interface{}
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("Unmarshal(YAML()) error = %v\n%s", err, out)
	}
	if v, ok := doc["general"]["version"].(int); !ok || v != 18 {
		t.Errorf("general.version = %v, want 18", doc["general"]["version"])
	}
	if v, present := doc["download_defaults"]["saveas"]; !present || v != nil {
		t.Errorf("saveas = %v, want explicit null", v)
	}
}

func TestText_Effective(t *testing.T) {
	r := config.New()
	defer r.Close()

	out, err := Text(r)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}

	if !strings.HasPrefix(out, "[general]\nversion = 18\n") {
		t.Errorf("Text() should start with the general section:\n%s", out)
	}
	for _, want := range []string{
		"saveas = None\n",
		"anon_proxyserver = ('127.0.0.1', [-1,-1,-1,-1,-1])\n",
		"family_filter = True\n",
		"seeding_ratio = 2.0\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Text() missing %q:\n%s", want, out)
		}
	}
}

func TestText_IncludesUnknown(t *testing.T) {
	r, err := config.Load("[general]\nversion = 18\n\n[experimental_lab]\ncoil = 7\n")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer r.Close()

	out, err := Text(r)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if !strings.Contains(out, "[experimental_lab]\ncoil = 7\n") {
		t.Errorf("Text() dropped unknown entries:\n%s", out)
	}
}
