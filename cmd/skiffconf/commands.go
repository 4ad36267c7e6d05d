package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tidwall/gjson"

	"github.com/skiffnet/skiff/internal/config"
	"github.com/skiffnet/skiff/internal/config/dump"
	"github.com/skiffnet/skiff/internal/config/notify"
	"github.com/skiffnet/skiff/internal/config/watcher"
	"github.com/skiffnet/skiff/internal/session"
)

const defaultFile = "skiff.conf"

// newFlagSet builds a subcommand flag set with the shared -f flag.
func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("f", defaultFile, "configuration file")
	return fs, file
}

// readConfig reads a configuration file. A missing file is not an error;
// the second return distinguishes it from an empty one.
func readConfig(path string) (string, bool, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

// loadRequired loads a configuration file that must exist, printing to
// stderr on failure. A nil registry means the caller should return code.
func loadRequired(path string, stderr io.Writer) (*config.Registry, int) {
	text, exists, err := readConfig(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, 1
	}
	if !exists {
		fmt.Fprintf(stderr, "Error: %s does not exist (run skiffconf init)\n", path)
		return nil, 1
	}
	r, err := config.Load(text)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return nil, 1
	}
	return r, 0
}

// loadOptional loads a configuration file, treating a missing one as a
// fresh default configuration.
func loadOptional(path string, stderr io.Writer) (*config.Registry, int) {
	text, _, err := readConfig(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, 1
	}
	r, err := config.Load(text)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return nil, 1
	}
	return r, 0
}

func writeConfig(path string, r *config.Registry) error {
	return os.WriteFile(path, []byte(r.Save()), 0o644)
}

func cmdValidate(args []string, stdout, stderr io.Writer) int {
	fs, file := newFlagSet("validate", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "Error: validate takes no arguments")
		return 2
	}

	r, code := loadRequired(*file, stderr)
	if r == nil {
		return code
	}
	defer r.Close()

	fmt.Fprintf(stdout, "%s: valid at version %d\n", *file, r.Version())
	return 0
}

func cmdShow(args []string, stdout, stderr io.Writer) int {
	fs, file := newFlagSet("show", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "Error: show takes no arguments")
		return 2
	}

	r, code := loadOptional(*file, stderr)
	if r == nil {
		return code
	}
	defer r.Close()

	text, err := dump.Text(r)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprint(stdout, text)
	return 0
}

func cmdGet(args []string, stdout, stderr io.Writer) int {
	fs, file := newFlagSet("get", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(stderr, "Error: usage: skiffconf get [-f file] <section> <key>")
		return 2
	}
	section, key := fs.Arg(0), fs.Arg(1)

	r, code := loadOptional(*file, stderr)
	if r == nil {
		return code
	}
	defer r.Close()

	v, err := r.Get(section, key)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, v.String())
	return 0
}

func cmdSet(args []string, stdout, stderr io.Writer) int {
	fs, file := newFlagSet("set", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 3 {
		fmt.Fprintln(stderr, "Error: usage: skiffconf set [-f file] <section> <key> <value>")
		return 2
	}
	section, key, literal := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	r, code := loadRequired(*file, stderr)
	if r == nil {
		return code
	}
	defer r.Close()

	def, ok := r.Schema().Lookup(section, key)
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown key %s.%s\n", section, key)
		return 1
	}
	v, err := def.Decode(literal)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s.%s: %v\n", section, key, err)
		return 1
	}
	if err := r.Set(section, key, v); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := writeConfig(*file, r); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func cmdMigrate(args []string, stdout, stderr io.Writer) int {
	fs, file := newFlagSet("migrate", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "Error: migrate takes no arguments")
		return 2
	}

	r, code := loadRequired(*file, stderr)
	if r == nil {
		return code
	}
	defer r.Close()

	if !r.Migrated() {
		fmt.Fprintf(stdout, "%s: already at version %d\n", *file, r.Version())
		return 0
	}
	if err := writeConfig(*file, r); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s: migrated to version %d\n", *file, r.Version())
	return 0
}

func cmdExport(args []string, stdout, stderr io.Writer) int {
	fs, file := newFlagSet("export", stderr)
	format := fs.String("format", "json", "output format: json, toml or yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "Error: export takes no arguments")
		return 2
	}

	r, code := loadOptional(*file, stderr)
	if r == nil {
		return code
	}
	defer r.Close()

	var out string
	var err error
	switch *format {
	case "json":
		out, err = dump.JSON(r)
		if err == nil {
			out = gjson.Get(out, "@pretty").String()
		}
	case "toml":
		out, err = dump.TOML(r)
	case "yaml":
		out, err = dump.YAML(r)
	default:
		fmt.Fprintf(stderr, "Error: unknown format %q (want json, toml or yaml)\n", *format)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprint(stdout, out)
	return 0
}

func cmdInit(args []string, stdout, stderr io.Writer) int {
	fs, file := newFlagSet("init", stderr)
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "Error: init takes no arguments")
		return 2
	}

	if _, err := os.Stat(*file); err == nil && !*force {
		fmt.Fprintf(stderr, "Error: %s already exists (use -force to overwrite)\n", *file)
		return 1
	}

	r := config.New()
	defer r.Close()
	text, err := dump.Text(r)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := os.WriteFile(*file, []byte(text), 0o644); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %s at version %d\n", *file, r.Version())
	return 0
}

func cmdPlan(args []string, stdout, stderr io.Writer) int {
	fs, file := newFlagSet("plan", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "Error: plan takes no arguments")
		return 2
	}

	r, code := loadOptional(*file, stderr)
	if r == nil {
		return code
	}
	defer r.Close()

	plan, err := session.Default().Plan(r)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	for _, spec := range plan.Components() {
		fmt.Fprintf(stdout, "%-22s %s\n", spec.Name, spec.Description)
	}
	return 0
}

func cmdWatch(args []string, stdout, stderr io.Writer) int {
	fs, file := newFlagSet("watch", stderr)
	debounce := fs.Duration("debounce", 200*time.Millisecond, "quiet window before reloading")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(stderr, "Error: watch takes no arguments")
		return 2
	}

	r, code := loadRequired(*file, stderr)
	if r == nil {
		return code
	}
	defer r.Close()
	fmt.Fprintf(stdout, "%s: valid at version %d, watching\n", *file, r.Version())

	r.Subscribe(func(change notify.Change) {
		switch change.Type {
		case notify.ChangeSet:
			fmt.Fprintf(stdout, "  %s.%s: %s -> %s\n", change.Section, change.Key, changed(change.Old), changed(change.New))
		case notify.ChangeDelete:
			fmt.Fprintf(stdout, "  %s.%s: removed\n", change.Section, change.Key)
		}
	})

	w, err := watcher.New(*file, watcher.WithDebounce(*debounce))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	w.Run(ctx, func(event watcher.Event) {
		text, exists, err := readConfig(*file)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return
		}
		if !exists {
			fmt.Fprintf(stderr, "Error: %s removed, keeping last valid state\n", *file)
			return
		}
		if err := r.Reload(text); err != nil {
			fmt.Fprintln(stderr, err)
			return
		}
		fmt.Fprintf(stdout, "%s: reloaded at version %d\n", *file, r.Version())
	}, func(err error) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	})
	return 0
}

// changed renders a change endpoint, tolerating the unset side of a
// first write.
func changed(v fmt.Stringer) string {
	s := v.String()
	if s == "" {
		return "unset"
	}
	return s
}
