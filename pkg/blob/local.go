package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const otelPackageNameLocal = "github.com/veeableful/folder/pkg/blob"

//nolint:gochecknoglobals
var localTracer trace.Tracer

//nolint:gochecknoinits
func init() {
	localTracer = otel.Tracer(otelPackageNameLocal)
}

// LocalSource serves artifacts from an index directory on the local
// filesystem: <dir>/<name>/<artifactPath>.
type LocalSource struct {
	dir  string
	name string
}

// NewLocal returns a Source that reads index name's artifacts from dir.
func NewLocal(dir, name string) *LocalSource {
	return &LocalSource{dir: dir, name: name}
}

// Fetch reads <dir>/<name>/<artifactPath> and returns its bytes.
func (s *LocalSource) Fetch(ctx context.Context, artifactPath string) ([]byte, error) {
	full := filepath.Join(s.dir, s.name, artifactPath)

	_, span := localTracer.Start(
		ctx,
		"blob.LocalSource.Fetch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("artifact_path", full)),
	)
	defer span.End()

	b, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("blob: reading %q: %w", full, err)
	}

	return b, nil
}
