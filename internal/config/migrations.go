package config

import (
	"fmt"

	"github.com/skiffnet/skiff/internal/config/schema"
	"github.com/skiffnet/skiff/internal/config/store"
	"github.com/skiffnet/skiff/internal/config/value"
)

// defaultMigrator builds the upgrade chain for persisted Skiff
// configurations. The oldest readable version is 15; anything older
// predates the INI format and is rejected.
//
// Introduction steps write the defaults that were current when the
// version shipped, not the schema's current defaults. A file migrated
// today must end up identical to one that lived through the upgrade
// when it was released.
func defaultMigrator() *Migrator {
	m := NewMigrator(schema.CurrentVersion)
	m.MustRegister(Step{
		From:        15,
		Description: "merge anon proxy host/ports, drop megacache, add bootstrap",
		Apply:       migrateV15,
	})
	m.MustRegister(Step{
		From:        16,
		Description: "widen socks5 port to a listen-port list, add credit mining",
		Apply:       migrateV16,
	})
	m.MustRegister(Step{
		From:        17,
		Description: "add trustchain, rename mainline_dht to dht",
		Apply:       migrateV17,
	})
	return m
}

// migrateV15 upgrades version 15 to 16.
//
// The separate anon proxy host and port-list keys become a single
// composite address. Files that never configured a proxy get the
// unconfigured address. The defunct megacache toggle is dropped and
// the bootstrap section is introduced.
func migrateV15(s *store.Store) error {
	host := "127.0.0.1"
	if raw, ok := s.Raw("libtorrent", "anon_proxy_server_ip"); ok {
		v, err := value.Decode(raw, value.Shape{Kind: value.KindString})
		if err != nil {
			return fmt.Errorf("libtorrent.anon_proxy_server_ip: %w", err)
		}
		host, _ = v.Str()
	}
	ports := []int{-1, -1, -1, -1, -1}
	if raw, ok := s.Raw("libtorrent", "anon_proxy_server_ports"); ok {
		v, err := value.Decode(raw, value.Shape{Kind: value.KindList, Elem: value.KindInt})
		if err != nil {
			return fmt.Errorf("libtorrent.anon_proxy_server_ports: %w", err)
		}
		elems, _ := v.Elems()
		ports = ports[:0]
		for _, e := range elems {
			p, _ := e.Int()
			ports = append(ports, int(p))
		}
	}
	s.Delete("libtorrent", "anon_proxy_server_ip")
	s.Delete("libtorrent", "anon_proxy_server_ports")
	s.Set("libtorrent", "anon_proxyserver", value.Addr(host, ports))

	s.Delete("general", "megacache")

	if !s.HasSection("bootstrap") {
		s.Set("bootstrap", "enabled", value.Bool(true))
		s.Set("bootstrap", "max_download_rate", value.Int(1000000))
		s.Set("bootstrap", "infohash", value.String(""))
	}
	return nil
}

// migrateV16 upgrades version 16 to 17.
//
// The single socks5_port becomes a five-entry listen-port list: an
// unset or sentinel port stays fully unconfigured, a real port p fans
// out to p..p+4 so each tunnel circuit hop keeps its own listener.
func migrateV16(s *store.Store) error {
	ports := []int{-1, -1, -1, -1, -1}
	if raw, ok := s.Raw("tunnel_community", "socks5_port"); ok {
		v, err := value.Decode(raw, value.Shape{Kind: value.KindInt})
		if err != nil {
			return fmt.Errorf("tunnel_community.socks5_port: %w", err)
		}
		p, _ := v.Int()
		if p > 0 {
			for i := range ports {
				ports[i] = int(p) + i
			}
		}
		s.Delete("tunnel_community", "socks5_port")
	}
	elems := make([]value.Value, len(ports))
	for i, p := range ports {
		elems[i] = value.Int(int64(p))
	}
	s.Set("tunnel_community", "socks5_listen_ports", value.List(elems...))

	if !s.HasSection("credit_mining") {
		s.Set("credit_mining", "enabled", value.Bool(false))
		s.Set("credit_mining", "sources", value.List())
		s.Set("credit_mining", "max_disk_space", value.Int(53687091200))
	}
	return nil
}

// migrateV17 upgrades version 17 to 18.
//
// The trustchain section is introduced and the DHT section loses its
// implementation-specific name. The rename keeps key order and raw
// text; a file that somehow carries both names keeps the new one.
func migrateV17(s *store.Store) error {
	if !s.HasSection("trustchain") {
		s.Set("trustchain", "enabled", value.Bool(true))
		s.Set("trustchain", "ec_keypair_filename", value.String(""))
		s.Set("trustchain", "live_edges_enabled", value.Bool(true))
	}
	if s.HasSection("mainline_dht") {
		if !s.RenameSection("mainline_dht", "dht") {
			s.DeleteSection("mainline_dht")
		}
	}
	return nil
}
