//go:build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/amaumene/tamilarr/internal/config"
)

// Initialize builds the application graph. The returned cleanup closes the
// database and flushes the tracer provider.
func Initialize(cfg *config.Config) (*App, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
