// Command orders-export archives persisted storefront blobs as
// gzip-compressed JSONL files, one element per line. Its main use is taking
// a portable snapshot of the order history off a live deployment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/farmlane/storefront/internal/kv"
)

func main() {
	var (
		driver      string
		databaseURL string
		redisAddr   string
		dataDir     string
		outDir      string
		keys        string
	)

	flag.StringVar(&driver, "driver", "file", "storage driver: file, postgres or redis")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&redisAddr, "redis-addr", "localhost:6379", "redis address for the redis driver")
	flag.StringVar(&dataDir, "data-dir", "data", "data directory for the file driver")
	flag.StringVar(&outDir, "out-dir", "export", "directory for the exported archives")
	flag.StringVar(&keys, "keys", "storefront:orders", "comma-separated blob keys to export")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, driver, databaseURL, redisAddr, dataDir, outDir, strings.Split(keys, ",")); err != nil {
		slog.Error("export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("export completed")
}

func run(ctx context.Context, driver, databaseURL, redisAddr, dataDir, outDir string, keys []string) error {
	store, err := openStore(ctx, driver, databaseURL, redisAddr, dataDir)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer func() { _ = store.Close() }()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := strings.TrimSpace(key)
		if key == "" {
			continue
		}
		g.Go(func() error { return exportKey(ctx, store, key, outDir) })
	}
	return g.Wait()
}

func openStore(ctx context.Context, driver, databaseURL, redisAddr, dataDir string) (kv.Store, error) {
	switch driver {
	case "postgres":
		if databaseURL == "" {
			return nil, errors.New("database URL is required: set --database-url or DATABASE_URL")
		}
		return kv.NewPostgres(ctx, databaseURL)
	case "redis":
		return kv.NewRedis(redisAddr), nil
	case "file":
		return kv.NewFiles(dataDir)
	default:
		return nil, errors.Errorf("unknown storage driver %q", driver)
	}
}

// exportKey streams one blob's array elements into <out-dir>/<key>.jsonl.gz.
func exportKey(ctx context.Context, store kv.Store, key, outDir string) error {
	raw, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			slog.Warn("blob not found, skipping", slog.String("key", key))
			return nil
		}
		return errors.Wrapf(err, "read %q", key)
	}

	// Blobs are JSON arrays; split into one document per line so the
	// archive is greppable and streamable.
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return errors.Wrapf(err, "decode %q", key)
	}

	path := filepath.Join(outDir, safeName(key)+".jsonl.gz")
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() { _ = f.Close() }()

	gz := pgzip.NewWriter(f)
	for _, el := range elements {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := gz.Write(append(el, '\n')); err != nil {
			return errors.Wrapf(err, "write %s", path)
		}
	}
	if err := gz.Close(); err != nil {
		return errors.Wrapf(err, "flush %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}

	slog.Info("exported", slog.String("key", key), slog.Int("records", len(elements)), slog.String("path", path))
	return nil
}

func safeName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
