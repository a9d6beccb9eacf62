package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/veeableful/folder/pkg/circuitbreaker"
)

const (
	otelPackageNameHTTP = "github.com/veeableful/folder/pkg/blob"

	defaultHTTPTimeout = 5 * time.Second
)

// ErrCircuitOpen is returned when the HTTP or S3 backend's circuit breaker
// is open and the call was short-circuited without hitting the network.
var ErrCircuitOpen = errors.New("blob: circuit breaker open")

//nolint:gochecknoglobals
var httpTracer trace.Tracer

//nolint:gochecknoinits
func init() {
	httpTracer = otel.Tracer(otelPackageNameHTTP)
}

// HTTPSource fetches artifacts via GET against baseURL/name/artifactPath.
// Any non-2xx response is treated as ErrNotFound, per spec §4.1.
type HTTPSource struct {
	client  *http.Client
	baseURL string
	name    string
	breaker *circuitbreaker.CircuitBreaker
}

// NewHTTP returns a Source that serves index name's artifacts from
// baseURL. baseURL must already include the scheme. Requests are wrapped
// with an otelhttp transport and a circuit breaker so a flaky origin
// stops being hammered once it has failed threshold times in a row.
func NewHTTP(baseURL, name string) *HTTPSource {
	return &HTTPSource{
		client: &http.Client{
			Timeout:   defaultHTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: baseURL,
		name:    name,
		breaker: circuitbreaker.New(circuitbreaker.DefaultThreshold, circuitbreaker.DefaultTimeout),
	}
}

// Fetch issues GET {baseURL}/{name}/{artifactPath}.
func (s *HTTPSource) Fetch(ctx context.Context, artifactPath string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%s", s.baseURL, s.name, artifactPath)

	ctx, span := httpTracer.Start(
		ctx,
		"blob.HTTPSource.Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("url", url)),
	)
	defer span.End()

	if !s.breaker.AllowRequest() {
		return nil, ErrCircuitOpen
	}

	b, err := s.doFetch(ctx, url)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.breaker.RecordFailure()

		return nil, err
	}

	s.breaker.RecordSuccess()

	return b, err
}

func (s *HTTPSource) doFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("blob: building request for %q: %w", url, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blob: GET %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrNotFound
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("blob: reading response body for %q: %w", url, err)
	}

	return b, nil
}
