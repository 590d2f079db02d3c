package asset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"timeliner/internal/logging"
)

// Chain asks each resolver in turn and returns the first answer.
type Chain struct {
	resolvers []Resolver
	logger    *slog.Logger
}

// NewChain skips nil resolvers.
func NewChain(logger *slog.Logger, resolvers ...Resolver) *Chain {
	live := make([]Resolver, 0, len(resolvers))
	for _, r := range resolvers {
		if r != nil {
			live = append(live, r)
		}
	}
	return &Chain{resolvers: live, logger: logging.NewComponentLogger(logger, "resolver")}
}

func (c *Chain) Resolve(ctx context.Context, uri string) (Info, error) {
	var errs []error
	for idx, r := range c.resolvers {
		if err := ctx.Err(); err != nil {
			return Info{}, fmt.Errorf("%w: %s: %w", ErrUnresolved, uri, err)
		}
		info, err := r.Resolve(ctx, uri)
		if err == nil {
			return info, nil
		}
		c.logger.Debug("resolver backend declined",
			logging.String("uri", uri),
			logging.Int("backend", idx),
			logging.Error(err),
		)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Info{}, fmt.Errorf("%w: %s: no resolvers configured", ErrUnresolved, uri)
	}
	return Info{}, fmt.Errorf("%w: %s: %w", ErrUnresolved, uri, errors.Join(errs...))
}
