package provider

import (
	"lending-ledger/config"
	"lending-ledger/internal/core/ports"
	"lending-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// Registry resolves a provider client by name.
type Registry struct {
	clients map[string]ports.ProviderClient
}

// NewRegistry builds clients for every configured provider.
func NewRegistry(cfg config.ProvidersConfig, log zerolog.Logger) *Registry {
	r := &Registry{clients: make(map[string]ports.ProviderClient)}
	for _, c := range []*Client{
		NewFincra(cfg.Fincra, cfg.Timeout, log),
		NewPaystack(cfg.Paystack, cfg.Timeout, log),
		NewMono(cfg.Mono, cfg.Timeout, log),
	} {
		r.clients[c.Name()] = c
	}
	return r
}

// Get returns the client for a provider name.
func (r *Registry) Get(name string) (ports.ProviderClient, error) {
	client, ok := r.clients[name]
	if !ok {
		return nil, apperror.ErrUnknownProvider(name)
	}
	return client, nil
}
