// Command eventsphere-backup exports, restores and inspects store
// snapshots while the server is stopped.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/eventsphere/eventsphere/internal/app"
	"github.com/eventsphere/eventsphere/internal/backup"
	"github.com/eventsphere/eventsphere/internal/config"
	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const usage = `Usage: eventsphere-backup <command> [flags]

Commands:
  export    write a snapshot of the store to a file or to backup storage
  restore   load a snapshot into an empty store
  list      list snapshots in backup storage
  inspect   verify a snapshot file and summarize its contents

Run "eventsphere-backup <command> --help" for the flags of a command.
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing command")
	}
	_ = godotenv.Load()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "export":
		return runExport(ctx, rest, out)
	case "restore":
		return runRestore(ctx, rest, out)
	case "list":
		return runList(ctx, rest, out)
	case "inspect":
		return runInspect(rest, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// commonFlags are shared by the commands that open the store.
type commonFlags struct {
	configFile string
	dataDir    string
	storeType  string
	storePath  string
}

func (c *commonFlags) add(fs *pflag.FlagSet) {
	fs.StringVarP(&c.configFile, "config", "c", "", "path to configuration file (YAML or JSON)")
	fs.StringVar(&c.dataDir, "data-dir", "", "base directory for all data files")
	fs.StringVar(&c.storeType, "store", "", "store backend: sqlite or badger")
	fs.StringVar(&c.storePath, "store-path", "", "sqlite file or badger directory")
}

func (c *commonFlags) load() (*config.Config, error) {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return nil, err
	}
	if c.dataDir != "" {
		cfg.DataDir = c.dataDir
	}
	if c.storeType != "" {
		cfg.Store.Type = c.storeType
	}
	if c.storePath != "" {
		cfg.Store.Path = c.storePath
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(fs *pflag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, nil
		}
		return false, err
	}
	if fs.NArg() > 0 {
		return false, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return true, nil
}

func runExport(ctx context.Context, args []string, out io.Writer) error {
	var common commonFlags
	var outFile string
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	common.add(fs)
	fs.StringVarP(&outFile, "out", "o", "", "write the snapshot to this file instead of backup storage")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	s, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		info, err := backup.Export(ctx, s, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s: %d entries, %d bytes, checksum %016x\n", outFile, info.Entries, info.Bytes, info.Checksum)
		return nil
	}

	m, err := app.NewBackupManager(ctx, cfg, s, nil)
	if err != nil {
		return err
	}
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "uploaded %s: %d entries, %d bytes\n", snap.Object, snap.Entries, snap.Bytes)
	return nil
}

func runRestore(ctx context.Context, args []string, out io.Writer) error {
	var common commonFlags
	var inFile, object string
	fs := pflag.NewFlagSet("restore", pflag.ContinueOnError)
	common.add(fs)
	fs.StringVarP(&inFile, "in", "i", "", "restore from this snapshot file")
	fs.StringVar(&object, "object", "", "restore this object from backup storage (default: latest)")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	if inFile != "" && object != "" {
		return errors.New("--in and --object are mutually exclusive")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	s, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	var info backup.Info
	if inFile != "" {
		f, err := os.Open(inFile)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err = backup.Import(ctx, s, f)
		if err != nil {
			return err
		}
	} else {
		m, err := app.NewBackupManager(ctx, cfg, s, nil)
		if err != nil {
			return err
		}
		if info, err = m.Restore(ctx, object); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "restored %d entries into %s store at %s\n", info.Entries, cfg.Store.Type, cfg.Store.Path)
	return nil
}

func runList(ctx context.Context, args []string, out io.Writer) error {
	var common commonFlags
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	common.add(fs)
	if ok, err := parse(fs, args); !ok {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	// Listing never touches records, so a memory store stands in.
	m, err := app.NewBackupManager(ctx, cfg, store.NewMemoryStore(), nil)
	if err != nil {
		return err
	}
	names, err := m.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}

func runInspect(args []string, out io.Writer) error {
	var inFile string
	fs := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	fs.StringVarP(&inFile, "in", "i", "", "snapshot file to inspect")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	if inFile == "" {
		return errors.New("--in is required")
	}

	f, err := os.Open(inFile)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, info, err := backup.Decode(f)
	if err != nil {
		return err
	}

	counts := make(map[store.Namespace]int)
	for _, e := range entries {
		counts[e.Namespace]++
	}
	namespaces := make([]string, 0, len(counts))
	for ns := range counts {
		namespaces = append(namespaces, string(ns))
	}
	sort.Strings(namespaces)

	fmt.Fprintf(out, "checksum %016x, %d bytes, %d entries\n", info.Checksum, info.Bytes, info.Entries)
	for _, ns := range namespaces {
		fmt.Fprintf(out, "  %-10s %d\n", ns, counts[store.Namespace(ns)])
	}
	return nil
}
