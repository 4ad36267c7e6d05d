package config

// Section accessor methods return snapshot structs. Mutating the returned
// struct does not modify the underlying configuration. Use the Set*
// accessors to update configuration values.

// Endpoint is a host and its ordered candidate ports. A port of -1
// means unset.
type Endpoint struct {
	// Host is the endpoint address, empty when unconfigured.
	Host string

	// Ports lists candidate ports in preference order.
	Ports []int
}

// GeneralConfig provides type-safe access to top-level settings.
type GeneralConfig struct {
	// Version is the schema version recorded in the store.
	Version int

	// LogDir is the directory for log output.
	LogDir string

	// StateDir is the directory holding session state and keys.
	StateDir string

	// ECKeypairFilename is the elliptic-curve keypair file for the peer identity.
	ECKeypairFilename string

	// FamilyFilter hides adult content from search results.
	FamilyFilter bool

	// Testnet joins the test network instead of the production overlay.
	Testnet bool
}

// TrustchainConfig provides type-safe access to trustchain ledger settings.
type TrustchainConfig struct {
	// Enabled starts the trustchain community.
	Enabled bool

	// ECKeypairFilename is the keypair file used to sign blocks.
	ECKeypairFilename string

	// LiveEdgesEnabled gossips live-edge blocks to neighbors.
	LiveEdgesEnabled bool
}

// TunnelCommunityConfig provides type-safe access to anonymous tunnel settings.
type TunnelCommunityConfig struct {
	// Enabled starts the tunnel community.
	Enabled bool

	// Socks5ListenPorts are the five per-hop SOCKS5 listener ports.
	Socks5ListenPorts []int

	// ExitnodeEnabled relays other peers' traffic to the clearnet.
	ExitnodeEnabled bool
}

// IPv8Config provides type-safe access to overlay network settings.
type IPv8Config struct {
	// Enabled starts the IPv8 overlay.
	Enabled bool

	// Port is the overlay UDP port, -1 for a random port.
	Port int

	// Address is the interface address to bind.
	Address string

	// BootstrapOverride replaces the built-in bootstrap servers with
	// one host:port. Nil means use the built-in list.
	BootstrapOverride *string

	// Statistics enables per-community network statistics.
	Statistics bool
}

// DHTConfig provides type-safe access to DHT settings.
type DHTConfig struct {
	// Enabled starts the DHT client.
	Enabled bool

	// Port is the DHT UDP port, -1 for a random port.
	Port int
}

// LibtorrentConfig provides type-safe access to torrent engine settings.
type LibtorrentConfig struct {
	// Enabled starts the torrent engine.
	Enabled bool

	// Port is the BitTorrent listen port, -1 for a random port.
	Port int

	// ProxyType selects the proxy protocol, 0 for none.
	ProxyType int

	// ProxyServer is the proxy endpoint for plain sessions.
	ProxyServer Endpoint

	// ProxyAuth is the "user:password" credential for the proxy.
	ProxyAuth string

	// MaxConnectionsDownload caps connections per download, -1 unlimited.
	MaxConnectionsDownload int

	// MaxDownloadRate caps download speed in bytes per second, 0 unlimited.
	MaxDownloadRate int

	// MaxUploadRate caps upload speed in bytes per second, 0 unlimited.
	MaxUploadRate int

	// UTP enables the uTP transport.
	UTP bool

	// AnonListenPort is the listen port for anonymous sessions.
	AnonListenPort int

	// AnonProxyType selects the proxy protocol for anonymous sessions.
	AnonProxyType int

	// AnonProxyServer is the tunnel entry endpoint for anonymous sessions.
	AnonProxyServer Endpoint

	// AnonProxyAuth is the credential for the anonymous proxy.
	AnonProxyAuth string
}

// DownloadDefaultsConfig provides type-safe access to new-download defaults.
type DownloadDefaultsConfig struct {
	// Enabled applies these defaults to new downloads.
	Enabled bool

	// AnonymityEnabled routes new downloads through the tunnels.
	AnonymityEnabled bool

	// NumberHops is the tunnel circuit length for anonymous downloads.
	NumberHops int

	// SafeseedingEnabled seeds completed anonymous downloads through tunnels.
	SafeseedingEnabled bool

	// SaveAs is the default download directory. Nil means ask per download.
	SaveAs *string

	// SeedingMode selects when seeding stops ("ratio", "forever", "time", "never").
	SeedingMode string

	// SeedingRatio is the upload/download ratio to seed to in ratio mode.
	SeedingRatio float64

	// SeedingTime is the time to seed in time mode, in seconds.
	SeedingTime float64
}

// TorrentCheckingConfig provides type-safe access to tracker checking settings.
type TorrentCheckingConfig struct {
	// Enabled periodically rechecks torrent health against trackers.
	Enabled bool
}

// HTTPAPIConfig provides type-safe access to the local HTTP API settings.
type HTTPAPIConfig struct {
	// Enabled starts the local HTTP API server.
	Enabled bool

	// Port is the API listen port, -1 for a random port.
	Port int

	// Key authenticates API requests.
	Key string
}

// ResourceMonitorConfig provides type-safe access to resource monitor settings.
type ResourceMonitorConfig struct {
	// Enabled samples process CPU and memory usage.
	Enabled bool

	// CPUPriority lowers the process priority, 0 normal to 5 lowest.
	CPUPriority int

	// PollInterval is the sampling interval in seconds.
	PollInterval int

	// HistorySize is the number of samples retained.
	HistorySize int
}

// CreditMiningConfig provides type-safe access to credit mining settings.
type CreditMiningConfig struct {
	// Enabled invests idle bandwidth in swarms to earn upload credit.
	Enabled bool

	// Sources are the channel identifiers to mine from.
	Sources []string

	// MaxDiskSpace is the disk budget for mined data in bytes.
	MaxDiskSpace int
}

// WatchFolderConfig provides type-safe access to watch folder settings.
type WatchFolderConfig struct {
	// Enabled adds torrent files dropped into the watch directory.
	Enabled bool

	// Directory is the directory scanned for new torrent files.
	Directory string
}

// PopularityCommunityConfig provides type-safe access to popularity gossip settings.
type PopularityCommunityConfig struct {
	// Enabled gossips swarm popularity estimates.
	Enabled bool

	// CacheDir is the directory caching popularity data.
	CacheDir string
}

// MetadataConfig provides type-safe access to metadata store settings.
type MetadataConfig struct {
	// Enabled stores channel and torrent metadata.
	Enabled bool

	// StoreDir is the directory holding the metadata store.
	StoreDir string
}

// VideoServerConfig provides type-safe access to video streaming settings.
type VideoServerConfig struct {
	// Enabled starts the local video streaming server.
	Enabled bool

	// Port is the streaming listen port, -1 for a random port.
	Port int
}

// UpgraderConfig provides type-safe access to state upgrade settings.
type UpgraderConfig struct {
	// Enabled upgrades on-disk state from older releases at startup.
	Enabled bool
}

// BootstrapConfig provides type-safe access to bootstrap download settings.
type BootstrapConfig struct {
	// Enabled fetches the bootstrap payload over the swarm.
	Enabled bool

	// MaxDownloadRate limits the bootstrap download in bytes per second.
	MaxDownloadRate int

	// Infohash identifies the bootstrap payload.
	Infohash string
}

// General returns type-safe access to top-level settings.
func (r *Registry) General() GeneralConfig {
	return GeneralConfig{
		Version:           r.intAt("general", "version"),
		LogDir:            r.stringAt("general", "log_dir"),
		StateDir:          r.stringAt("general", "state_dir"),
		ECKeypairFilename: r.stringAt("general", "ec_keypair_filename"),
		FamilyFilter:      r.boolAt("general", "family_filter"),
		Testnet:           r.boolAt("general", "testnet"),
	}
}

// Trustchain returns type-safe access to trustchain ledger settings.
func (r *Registry) Trustchain() TrustchainConfig {
	return TrustchainConfig{
		Enabled:           r.boolAt("trustchain", "enabled"),
		ECKeypairFilename: r.stringAt("trustchain", "ec_keypair_filename"),
		LiveEdgesEnabled:  r.boolAt("trustchain", "live_edges_enabled"),
	}
}

// TunnelCommunity returns type-safe access to anonymous tunnel settings.
func (r *Registry) TunnelCommunity() TunnelCommunityConfig {
	return TunnelCommunityConfig{
		Enabled:           r.boolAt("tunnel_community", "enabled"),
		Socks5ListenPorts: r.intListAt("tunnel_community", "socks5_listen_ports"),
		ExitnodeEnabled:   r.boolAt("tunnel_community", "exitnode_enabled"),
	}
}

// IPv8 returns type-safe access to overlay network settings.
func (r *Registry) IPv8() IPv8Config {
	return IPv8Config{
		Enabled:           r.boolAt("ipv8", "enabled"),
		Port:              r.intAt("ipv8", "port"),
		Address:           r.stringAt("ipv8", "address"),
		BootstrapOverride: r.stringOrNilAt("ipv8", "bootstrap_override"),
		Statistics:        r.boolAt("ipv8", "statistics"),
	}
}

// DHT returns type-safe access to DHT settings.
func (r *Registry) DHT() DHTConfig {
	return DHTConfig{
		Enabled: r.boolAt("dht", "enabled"),
		Port:    r.intAt("dht", "port"),
	}
}

// Libtorrent returns type-safe access to torrent engine settings.
func (r *Registry) Libtorrent() LibtorrentConfig {
	return LibtorrentConfig{
		Enabled:                r.boolAt("libtorrent", "enabled"),
		Port:                   r.intAt("libtorrent", "port"),
		ProxyType:              r.intAt("libtorrent", "proxy_type"),
		ProxyServer:            r.addrAt("libtorrent", "proxy_server"),
		ProxyAuth:              r.stringAt("libtorrent", "proxy_auth"),
		MaxConnectionsDownload: r.intAt("libtorrent", "max_connections_download"),
		MaxDownloadRate:        r.intAt("libtorrent", "max_download_rate"),
		MaxUploadRate:          r.intAt("libtorrent", "max_upload_rate"),
		UTP:                    r.boolAt("libtorrent", "utp"),
		AnonListenPort:         r.intAt("libtorrent", "anon_listen_port"),
		AnonProxyType:          r.intAt("libtorrent", "anon_proxy_type"),
		AnonProxyServer:        r.addrAt("libtorrent", "anon_proxyserver"),
		AnonProxyAuth:          r.stringAt("libtorrent", "anon_proxy_auth"),
	}
}

// DownloadDefaults returns type-safe access to new-download defaults.
func (r *Registry) DownloadDefaults() DownloadDefaultsConfig {
	return DownloadDefaultsConfig{
		Enabled:            r.boolAt("download_defaults", "enabled"),
		AnonymityEnabled:   r.boolAt("download_defaults", "anonymity_enabled"),
		NumberHops:         r.intAt("download_defaults", "number_hops"),
		SafeseedingEnabled: r.boolAt("download_defaults", "safeseeding_enabled"),
		SaveAs:             r.stringOrNilAt("download_defaults", "saveas"),
		SeedingMode:        r.stringAt("download_defaults", "seeding_mode"),
		SeedingRatio:       r.floatAt("download_defaults", "seeding_ratio"),
		SeedingTime:        r.floatAt("download_defaults", "seeding_time"),
	}
}

// TorrentChecking returns type-safe access to tracker checking settings.
func (r *Registry) TorrentChecking() TorrentCheckingConfig {
	return TorrentCheckingConfig{
		Enabled: r.boolAt("torrent_checking", "enabled"),
	}
}

// HTTPAPI returns type-safe access to the local HTTP API settings.
func (r *Registry) HTTPAPI() HTTPAPIConfig {
	return HTTPAPIConfig{
		Enabled: r.boolAt("http_api", "enabled"),
		Port:    r.intAt("http_api", "port"),
		Key:     r.stringAt("http_api", "key"),
	}
}

// ResourceMonitor returns type-safe access to resource monitor settings.
func (r *Registry) ResourceMonitor() ResourceMonitorConfig {
	return ResourceMonitorConfig{
		Enabled:      r.boolAt("resource_monitor", "enabled"),
		CPUPriority:  r.intAt("resource_monitor", "cpu_priority"),
		PollInterval: r.intAt("resource_monitor", "poll_interval"),
		HistorySize:  r.intAt("resource_monitor", "history_size"),
	}
}

// CreditMining returns type-safe access to credit mining settings.
func (r *Registry) CreditMining() CreditMiningConfig {
	return CreditMiningConfig{
		Enabled:      r.boolAt("credit_mining", "enabled"),
		Sources:      r.stringListAt("credit_mining", "sources"),
		MaxDiskSpace: r.intAt("credit_mining", "max_disk_space"),
	}
}

// WatchFolder returns type-safe access to watch folder settings.
func (r *Registry) WatchFolder() WatchFolderConfig {
	return WatchFolderConfig{
		Enabled:   r.boolAt("watch_folder", "enabled"),
		Directory: r.stringAt("watch_folder", "directory"),
	}
}

// PopularityCommunity returns type-safe access to popularity gossip settings.
func (r *Registry) PopularityCommunity() PopularityCommunityConfig {
	return PopularityCommunityConfig{
		Enabled:  r.boolAt("popularity_community", "enabled"),
		CacheDir: r.stringAt("popularity_community", "cache_dir"),
	}
}

// Metadata returns type-safe access to metadata store settings.
func (r *Registry) Metadata() MetadataConfig {
	return MetadataConfig{
		Enabled:  r.boolAt("metadata", "enabled"),
		StoreDir: r.stringAt("metadata", "store_dir"),
	}
}

// VideoServer returns type-safe access to video streaming settings.
func (r *Registry) VideoServer() VideoServerConfig {
	return VideoServerConfig{
		Enabled: r.boolAt("video_server", "enabled"),
		Port:    r.intAt("video_server", "port"),
	}
}

// Upgrader returns type-safe access to state upgrade settings.
func (r *Registry) Upgrader() UpgraderConfig {
	return UpgraderConfig{
		Enabled: r.boolAt("upgrader", "enabled"),
	}
}

// Bootstrap returns type-safe access to bootstrap download settings.
func (r *Registry) Bootstrap() BootstrapConfig {
	return BootstrapConfig{
		Enabled:         r.boolAt("bootstrap", "enabled"),
		MaxDownloadRate: r.intAt("bootstrap", "max_download_rate"),
		Infohash:        r.stringAt("bootstrap", "infohash"),
	}
}

// Snapshot helpers. After a successful load every known key decodes
// cleanly, so these fall back to the schema default only on misuse.

func (r *Registry) boolAt(section, key string) bool {
	v, err := r.GetBool(section, key)
	if err != nil {
		if def, ok := r.schema.Lookup(section, key); ok {
			b, _ := def.Default.Bool()
			return b
		}
		return false
	}
	return v
}

func (r *Registry) intAt(section, key string) int {
	v, err := r.GetInt(section, key)
	if err != nil {
		if def, ok := r.schema.Lookup(section, key); ok {
			i, _ := def.Default.Int()
			return int(i)
		}
		return 0
	}
	return v
}

func (r *Registry) floatAt(section, key string) float64 {
	v, err := r.GetFloat(section, key)
	if err != nil {
		if def, ok := r.schema.Lookup(section, key); ok {
			f, _ := def.Default.Float()
			return f
		}
		return 0
	}
	return v
}

func (r *Registry) stringAt(section, key string) string {
	v, err := r.GetString(section, key)
	if err != nil {
		if def, ok := r.schema.Lookup(section, key); ok {
			s, _ := def.Default.Str()
			return s
		}
		return ""
	}
	return v
}

func (r *Registry) stringOrNilAt(section, key string) *string {
	v, err := r.GetStringOrNil(section, key)
	if err != nil {
		return nil
	}
	return v
}

func (r *Registry) intListAt(section, key string) []int {
	v, err := r.GetIntList(section, key)
	if err != nil {
		return nil
	}
	return v
}

func (r *Registry) stringListAt(section, key string) []string {
	v, err := r.GetStringList(section, key)
	if err != nil {
		return nil
	}
	return v
}

func (r *Registry) addrAt(section, key string) Endpoint {
	host, ports, err := r.GetAddr(section, key)
	if err != nil {
		return Endpoint{}
	}
	return Endpoint{Host: host, Ports: ports}
}
