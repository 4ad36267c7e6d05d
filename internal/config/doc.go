// Package config provides the configuration system for Skiff.
//
// The config package owns the authoritative in-memory representation of
// every tunable parameter in the application: network listeners, DHT,
// anonymous tunnels, the torrent engine, download policy, the HTTP API
// and the rest of the optional components, each gated by its section's
// reserved enabled key.
//
// # Architecture
//
// Loading is a one-way pipeline from persisted text to a ready registry:
//
//	┌──────────────┐   ┌───────────────┐   ┌──────────────┐   ┌──────────┐
//	│ parse blob   │ → │ migrate store │ → │ validate all │ → │  Ready   │
//	│ (store)      │   │ (version n→18)│   │ known keys   │   │ Registry │
//	└──────────────┘   └───────────────┘   └──────────────┘   └──────────┘
//
// Values use a Python-literal encoding with no inherent type tags; the
// schema table directs decoding, so `True`, `[5,4,3,2,1]` and
// `('127.0.0.1', [5,4,3,2,1])` each parse into the kind the key
// declares. Keys the schema does not know are preserved verbatim and
// round-trip on save, which keeps files from newer builds readable.
//
// # Sub-packages
//
//   - value: Tagged value union and the literal codec
//   - schema: Static key table with defaults and constraints
//   - store: Ordered section store with byte-level round-trip
//   - notify: Change notification and observer pattern
//   - watcher: File watching for live reload
//   - dump: JSON, TOML and YAML export of the current state
//
// # Basic Usage
//
// Load a persisted blob and read typed settings:
//
//	reg, err := config.Load(blob)
//	if err != nil {
//	    // err is a *LoadError listing every problem in the blob
//	}
//
//	rate, err := reg.GetInt("libtorrent", "max_download_rate")
//	lt := reg.Libtorrent()
//	fmt.Println(lt.Port, lt.UTP)
//
// Mutations validate before committing, so a rejected value never
// replaces the current one:
//
//	if err := reg.SetInt("libtorrent", "max_download_rate", -5); err != nil {
//	    // prior value still in effect
//	}
//
// # Error Handling
//
// The package defines one error type per failure class:
//
//   - MalformedValueError: raw text cannot be decoded for its key
//   - ValidationError: a decoded value violates its constraint
//   - MigrationError: no contiguous upgrade path covers the file
//   - FutureVersionError: the file is from a newer build
//   - UnknownKeyError: a typed accessor named an undeclared key
//   - LoadError: every problem a single load collected
package config
