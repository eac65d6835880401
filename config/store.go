package config

import "context"

// Store persists the singleton configuration and the subscription id
// counter. Init must be exclusive: a second call fails. NextID allocates
// ids starting at 1, strictly increasing; an id once returned is never
// re-issued.
type Store interface {
	Init(ctx context.Context, c *Config) error
	Get(ctx context.Context) (*Config, error)
	NextID(ctx context.Context) (uint64, error)
}
