package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/markdown-dms/backend/config"
)

var ErrUnexpectedStatus = errors.New("unexpected status code")

// PostgresProbe pings a lazily connected pool.
type PostgresProbe struct {
	pool *pgxpool.Pool
}

func NewPostgresProbe(ctx context.Context, dsn string) (*PostgresProbe, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	return &PostgresProbe{pool: pool}, nil
}

func (p *PostgresProbe) Check(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresProbe) Close() error {
	p.pool.Close()
	return nil
}

type RedisProbe struct {
	client *redis.Client
}

func NewRedisProbe(rawURL string) (*RedisProbe, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.MaxRetries = -1

	return &RedisProbe{client: redis.NewClient(opts)}, nil
}

func (p *RedisProbe) Check(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *RedisProbe) Close() error {
	return p.client.Close()
}

// HTTPProbe expects a 2xx answer to a GET request.
type HTTPProbe struct {
	url    string
	client *http.Client
}

func NewHTTPProbe(url string, client *http.Client) *HTTPProbe {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProbe{url: url, client: client}
}

func (p *HTTPProbe) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, res.StatusCode)
	}
	return nil
}

// Probes holds the probes built from configuration.
type Probes map[string]Probe

// NewProbes builds a probe for every dependency with a configured URL.
// Dependencies without a URL are left out and report not_implemented.
func NewProbes(ctx context.Context, deps config.DependenciesConfig, client *http.Client) (Probes, error) {
	probes := make(Probes)

	if deps.DatabaseURL != "" {
		probe, err := NewPostgresProbe(ctx, deps.DatabaseURL)
		if err != nil {
			return nil, err
		}
		probes[CheckDatabase] = probe
	}

	if deps.RedisURL != "" {
		probe, err := NewRedisProbe(deps.RedisURL)
		if err != nil {
			_ = probes.Close()
			return nil, err
		}
		probes[CheckRedis] = probe
	}

	if deps.GitServiceURL != "" {
		probes[CheckGitService] = NewHTTPProbe(deps.GitServiceURL, client)
	}

	return probes, nil
}

func (p Probes) Options() []Option {
	opts := make([]Option, 0, len(p))
	for name, probe := range p {
		opts = append(opts, WithProbe(name, probe))
	}
	return opts
}

func (p Probes) Close() error {
	var errs []error
	for _, probe := range p {
		if closer, ok := probe.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}
