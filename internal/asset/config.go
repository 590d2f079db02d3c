package asset

import (
	"log/slog"

	"timeliner/internal/config"
)

// NewFromConfig assembles the resolver stack described by the [resolver] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (Resolver, Policy, error) {
	policy, err := ParsePolicy(cfg.Resolver.OnFailure)
	if err != nil {
		return nil, PolicyDegrade, err
	}
	var backends []Resolver
	if cfg.Resolver.NativeEBML {
		backends = append(backends, NewEBMLResolver(cfg.ResolverTimeout()))
	}
	backends = append(backends, NewFFprobeResolver(cfg.FFprobeBinary(), cfg.ResolverTimeout(), logger))
	return NewCache(NewChain(logger, backends...), cfg.Resolver.CacheEntries), policy, nil
}
