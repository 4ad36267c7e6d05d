package schema

import (
	"github.com/skiffnet/skiff/internal/config/value"
)

// Default returns the built-in Skiff key table at CurrentVersion.
func Default() *Table {
	t := New()
	t.registerDefaults()
	if err := t.Verify(); err != nil {
		panic(err)
	}
	return t
}

// registerDefaults registers every built-in Skiff key.
func (t *Table) registerDefaults() {
	// General settings. The general section has no enabled key: it is
	// always active and carries the schema version marker.
	t.MustRegister(Definition{
		Section:     "general",
		Key:         "version",
		Kind:        value.KindInt,
		Default:     value.Int(CurrentVersion),
		Description: "Schema version of the persisted file",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "general",
		Key:         "log_dir",
		Kind:        value.KindString,
		Default:     value.String("logs"),
		Description: "Directory for application log output",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "general",
		Key:         "state_dir",
		Kind:        value.KindString,
		Default:     value.String(""),
		Description: "Root directory for session state (empty for the platform default)",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "general",
		Key:         "ec_keypair_filename",
		Kind:        value.KindString,
		Default:     value.String(""),
		Description: "Elliptic-curve keypair file for the permanent peer identity",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "general",
		Key:         "family_filter",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Hide adult content in search results",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "general",
		Key:         "testnet",
		Kind:        value.KindBool,
		Default:     value.Bool(false),
		Description: "Join the test network instead of the production overlay",
		Since:       15,
	})

	// Trustchain ledger.
	t.MustRegister(Definition{
		Section:     "trustchain",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Start the trustchain ledger community",
		Since:       18,
	})

	t.MustRegister(Definition{
		Section:     "trustchain",
		Key:         "ec_keypair_filename",
		Kind:        value.KindString,
		Default:     value.String(""),
		Description: "Keypair file for trustchain block signing",
		Since:       18,
	})

	t.MustRegister(Definition{
		Section:     "trustchain",
		Key:         "live_edges_enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Gossip live-edge blocks to neighbors",
		Since:       18,
	})

	// Anonymous tunnel community.
	t.MustRegister(Definition{
		Section:     "tunnel_community",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Start the anonymous tunnel community",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "tunnel_community",
		Key:         "socks5_listen_ports",
		Kind:        value.KindList,
		Elem:        value.KindInt,
		Default:     value.List(value.Int(-1), value.Int(-1), value.Int(-1), value.Int(-1), value.Int(-1)),
		Check:       EachPort(),
		Description: "SOCKS5 listen ports per hop count, -1 picks random ports",
		Since:       17,
	})

	t.MustRegister(Definition{
		Section:     "tunnel_community",
		Key:         "exitnode_enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(false),
		Description: "Relay tunnel exit traffic to the clearnet",
		Since:       15,
	})

	// IPv8 overlay.
	t.MustRegister(Definition{
		Section:     "ipv8",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Start the IPv8 peer-to-peer overlay",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "ipv8",
		Key:         "port",
		Kind:        value.KindInt,
		Default:     value.Int(7759),
		Check:       Port(),
		Description: "UDP port for the IPv8 endpoint, -1 picks a random port",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "ipv8",
		Key:         "address",
		Kind:        value.KindString,
		Default:     value.String("0.0.0.0"),
		Description: "Bind address for the IPv8 endpoint",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "ipv8",
		Key:         "bootstrap_override",
		Kind:        value.KindString,
		Nullable:    true,
		Default:     value.Null(),
		Description: "Override bootstrap server as host:port, None for the built-in list",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "ipv8",
		Key:         "statistics",
		Kind:        value.KindBool,
		Default:     value.Bool(false),
		Description: "Collect per-overlay message statistics",
		Since:       15,
	})

	// Mainline DHT session.
	t.MustRegister(Definition{
		Section:     "dht",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Start the DHT session for trackerless torrents",
		Since:       18,
	})

	t.MustRegister(Definition{
		Section:     "dht",
		Key:         "port",
		Kind:        value.KindInt,
		Default:     value.Int(-1),
		Check:       Port(),
		Description: "UDP port for the DHT session, -1 picks a random port",
		Since:       18,
	})

	// Libtorrent engine.
	t.MustRegister(Definition{
		Section:     "libtorrent",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Start the libtorrent download engine",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "libtorrent",
		Key:         "port",
		Kind:        value.KindInt,
		Default:     value.Int(-1),
		Check:       Port(),
		Description: "TCP listen port for peer connections, -1 picks a random port",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "libtorrent",
		Key:         "proxy_type",
		Kind:        value.KindInt,
		Default:     value.Int(0),
		Check:       Range(0, 5),
		Description: "Proxy type for plain downloads: 0 none, 1 SOCKS4, 2 SOCKS5, 3 SOCKS5+auth, 4 HTTP, 5 HTTP+auth",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "libtorrent",
		Key:         "proxy_server",
		Kind:        value.KindAddr,
		Default:     value.Addr("", []int{-1}),
		Description: "Proxy server for plain downloads as ('host', [port])",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "libtorrent",
		Key:         "proxy_auth",
		Kind:        value.KindString,
		Default:     value.String(""),
		Description: "Proxy credentials as username:password, empty for none",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "libtorrent",
		Key:         "max_connections_download",
		Kind:        value.KindInt,
		Default:     value.Int(-1),
		Check:       AtLeast(-1),
		Description: "Connection limit per download, -1 for unlimited",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "libtorrent",
		Key:         "max_download_rate",
		Kind:        value.KindInt,
		Default:     value.Int(0),
		Check:       NonNegative(),
		Description: "Download rate limit in bytes per second, 0 for unlimited",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "libtorrent",
		Key:         "max_upload_rate",
		Kind:        value.KindInt,
		Default:     value.Int(0),
		Check:       NonNegative(),
		Description: "Upload rate limit in bytes per second, 0 for unlimited",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "libtorrent",
		Key:         "utp",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Enable the uTP transport",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "libtorrent",
		Key:         "anon_listen_port",
		Kind:        value.KindInt,
		Default:     value.Int(-1),
		Check:       Port(),
		Description: "Listen port for the anonymous session, -1 picks a random port",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "libtorrent",
		Key:         "anon_proxy_type",
		Kind:        value.KindInt,
		Default:     value.Int(2),
		Check:       Range(0, 5),
		Description: "Proxy type for the anonymous session",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "libtorrent",
		Key:         "anon_proxyserver",
		Kind:        value.KindAddr,
		Default:     value.Addr("127.0.0.1", []int{-1, -1, -1, -1, -1}),
		Description: "SOCKS5 endpoints of the tunnel community as ('host', [port per hop])",
		Since:       16,
	})

	t.MustRegister(Definition{
		Section:     "libtorrent",
		Key:         "anon_proxy_auth",
		Kind:        value.KindString,
		Default:     value.String(""),
		Description: "Credentials for the anonymous session proxy",
		Since:       15,
	})

	// Download policy defaults applied to new downloads.
	t.MustRegister(Definition{
		Section:     "download_defaults",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Apply these defaults to newly added downloads",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "download_defaults",
		Key:         "anonymity_enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(false),
		Description: "Route new downloads through the tunnel community",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "download_defaults",
		Key:         "number_hops",
		Kind:        value.KindInt,
		Default:     value.Int(1),
		Check:       HopCount(),
		Description: "Tunnel hops for anonymous downloads",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "download_defaults",
		Key:         "safeseeding_enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Seed anonymously after an anonymous download completes",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "download_defaults",
		Key:         "saveas",
		Kind:        value.KindString,
		Nullable:    true,
		Default:     value.Null(),
		Description: "Download directory, None to ask per download",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "download_defaults",
		Key:         "seeding_mode",
		Kind:        value.KindString,
		Default:     value.String("ratio"),
		Check:       OneOf("ratio", "forever", "time", "never"),
		Description: "When to stop seeding completed downloads",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "download_defaults",
		Key:         "seeding_ratio",
		Kind:        value.KindFloat,
		Default:     value.Float(2.0),
		Check:       NonNegative(),
		Description: "Stop seeding at this upload/download ratio",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "download_defaults",
		Key:         "seeding_time",
		Kind:        value.KindFloat,
		Default:     value.Float(60.0),
		Check:       NonNegative(),
		Description: "Stop seeding after this many minutes",
		Since:       15,
	})

	// Torrent checker.
	t.MustRegister(Definition{
		Section:     "torrent_checking",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Periodically check tracker health of known torrents",
		Since:       15,
	})

	// HTTP API.
	t.MustRegister(Definition{
		Section:     "http_api",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(false),
		Description: "Start the local HTTP API",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "http_api",
		Key:         "port",
		Kind:        value.KindInt,
		Default:     value.Int(-1),
		Check:       Port(),
		Description: "TCP port for the HTTP API, -1 picks a random port",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "http_api",
		Key:         "key",
		Kind:        value.KindString,
		Default:     value.String(""),
		Description: "API access token required on every request, empty disables auth",
		Since:       15,
	})

	// Resource monitor.
	t.MustRegister(Definition{
		Section:     "resource_monitor",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Sample process CPU and memory usage",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "resource_monitor",
		Key:         "cpu_priority",
		Kind:        value.KindInt,
		Default:     value.Int(1),
		Check:       Range(0, 7),
		Description: "Process priority class, 0 lowest to 7 highest",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "resource_monitor",
		Key:         "poll_interval",
		Kind:        value.KindInt,
		Default:     value.Int(5),
		Check:       Positive(),
		Description: "Seconds between resource samples",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "resource_monitor",
		Key:         "history_size",
		Kind:        value.KindInt,
		Default:     value.Int(20),
		Check:       Positive(),
		Description: "Number of resource samples to retain",
		Since:       15,
	})

	// Credit mining.
	t.MustRegister(Definition{
		Section:     "credit_mining",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(false),
		Description: "Invest idle bandwidth in swarms to earn upload credit",
		Since:       17,
	})

	t.MustRegister(Definition{
		Section:     "credit_mining",
		Key:         "sources",
		Kind:        value.KindList,
		Elem:        value.KindString,
		Default:     value.List(),
		Description: "Channel identifiers to mine from",
		Since:       17,
	})

	t.MustRegister(Definition{
		Section:     "credit_mining",
		Key:         "max_disk_space",
		Kind:        value.KindInt,
		Default:     value.Int(53687091200),
		Check:       NonNegative(),
		Description: "Disk budget for mined data in bytes",
		Since:       17,
	})

	// Watch folder.
	t.MustRegister(Definition{
		Section:     "watch_folder",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(false),
		Description: "Add torrent files dropped into the watch directory",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "watch_folder",
		Key:         "directory",
		Kind:        value.KindString,
		Default:     value.String(""),
		Description: "Directory scanned for new torrent files",
		Since:       15,
	})

	// Popularity community.
	t.MustRegister(Definition{
		Section:     "popularity_community",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Gossip swarm health with neighboring peers",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "popularity_community",
		Key:         "cache_dir",
		Kind:        value.KindString,
		Default:     value.String("health_cache"),
		Description: "Directory for cached swarm health records",
		Since:       15,
	})

	// Metadata store.
	t.MustRegister(Definition{
		Section:     "metadata",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Collect and serve channel metadata",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "metadata",
		Key:         "store_dir",
		Kind:        value.KindString,
		Default:     value.String("collected_metadata"),
		Description: "Directory for collected metadata",
		Since:       15,
	})

	// Video-on-demand server.
	t.MustRegister(Definition{
		Section:     "video_server",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Serve streaming video from partial downloads",
		Since:       15,
	})

	t.MustRegister(Definition{
		Section:     "video_server",
		Key:         "port",
		Kind:        value.KindInt,
		Default:     value.Int(-1),
		Check:       Port(),
		Description: "TCP port for the video server, -1 picks a random port",
		Since:       15,
	})

	// State upgrader.
	t.MustRegister(Definition{
		Section:     "upgrader",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Upgrade on-disk state from older releases at startup",
		Since:       15,
	})

	// Bootstrap download.
	t.MustRegister(Definition{
		Section:     "bootstrap",
		Key:         "enabled",
		Kind:        value.KindBool,
		Default:     value.Bool(true),
		Description: "Fetch the bootstrap payload over the swarm",
		Since:       16,
	})

	t.MustRegister(Definition{
		Section:     "bootstrap",
		Key:         "max_download_rate",
		Kind:        value.KindInt,
		Default:     value.Int(1000000),
		Check:       Positive(),
		Description: "Rate limit for the bootstrap download in bytes per second",
		Since:       16,
	})

	t.MustRegister(Definition{
		Section:     "bootstrap",
		Key:         "infohash",
		Kind:        value.KindString,
		Default:     value.String(""),
		Description: "Infohash of the bootstrap payload",
		Since:       16,
	})
}
