package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/veeableful/folder/pkg/engine"
	"github.com/veeableful/folder/pkg/index"
	"github.com/veeableful/folder/pkg/metrics"
)

// ErrIndexPathRequired is returned if the search command is invoked
// without an index path argument.
var ErrIndexPathRequired = errors.New("cmd: <index-path> argument is required")

// ErrQueryRequired is returned if the search command is invoked without a
// query argument.
var ErrQueryRequired = errors.New("cmd: <query> argument is required")

func searchCommand(flagSources flagSourcesFn) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "query an index and print the JSON-encoded search result",
		ArgsUsage: "<index-path> <query>",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:    "size",
				Usage:   "maximum number of hits to return",
				Value:   engine.DefaultSize,
				Sources: flagSources("FOLDER_SEARCH_SIZE"),
			},
			&cli.UintFlag{
				Name:    "from",
				Usage:   "number of ranked candidates to skip",
				Sources: flagSources("FOLDER_SEARCH_FROM"),
			},
			&cli.BoolFlag{
				Name:    "no-cache",
				Usage:   "run against a fresh, throwaway store instead of the handle's persistent one",
				Sources: flagSources("FOLDER_SEARCH_NO_CACHE"),
			},
			&cli.BoolFlag{
				Name:    "zst",
				Usage:   "transparently decompress zstd-compressed shard artifacts",
				Sources: flagSources("FOLDER_INDEX_ZST"),
			},
		},
		Action: searchAction,
	}
}

func searchAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return ErrIndexPathRequired
	}

	if cmd.Args().Len() < 2 {
		return ErrQueryRequired
	}

	indexPath := cmd.Args().Get(0)
	query := strings.Join(cmd.Args().Slice()[1:], " ")

	h, err := openFromPath(ctx, indexPath)
	if err != nil {
		return err
	}

	if cmd.Bool("zst") {
		h = h.WithZstd()
	}

	if addr := cmd.String("metrics-addr"); addr != "" {
		m := metrics.New()
		h = h.WithMetrics(m)
		serveMetrics(ctx, addr, m)
	}

	opts := engine.SearchOptions{
		Size:     uint32(cmd.Uint("size")),
		From:     uint32(cmd.Uint("from")),
		UseCache: !cmd.Bool("no-cache"),
	}

	result, err := h.SearchWithOptions(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("cmd: search failed: %w", err)
	}

	enc := json.NewEncoder(cmd.Writer)
	enc.SetIndent("", "  ")

	return enc.Encode(result)
}

// openFromPath opens an index from a CLI-provided path: an "http(s)://"
// URL whose last path segment is the index name, or a local filesystem
// path whose last element is the index name.
func openFromPath(ctx context.Context, indexPath string) (*index.Handle, error) {
	if strings.HasPrefix(indexPath, "http://") || strings.HasPrefix(indexPath, "https://") {
		u, err := url.Parse(indexPath)
		if err != nil {
			return nil, fmt.Errorf("cmd: parsing index URL %q: %w", indexPath, err)
		}

		name := path.Base(u.Path)
		u.Path = path.Dir(u.Path)

		return index.OpenHTTP(ctx, u.String(), name)
	}

	dir := filepath.Dir(indexPath)
	name := filepath.Base(indexPath)

	return index.OpenLocal(ctx, dir, name)
}

// serveMetrics starts a background HTTP server exposing m's registry at
// GET /metrics on addr. It is stopped when ctx is canceled.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Err(err).Str("addr", addr).Msg("metrics server exited")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
}
