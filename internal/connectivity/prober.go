package connectivity

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HTTPProber checks reachability with a HEAD request against the
// configured endpoint. Any response counts as reachable; only transport
// errors mean offline — a 500 from the backend still proves the wire.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// PoolProber checks reachability by pinging the Postgres pool.
type PoolProber struct {
	Pool *pgxpool.Pool
}

func (p *PoolProber) Probe(ctx context.Context) error {
	if p.Pool == nil {
		return fmt.Errorf("no database pool configured")
	}
	return p.Pool.Ping(ctx)
}
