package catalog

import (
	"context"
	"fmt"

	"github.com/phobologic/apiscan/internal/fetch"
)

// Load fetches the header at location (URL or local path) and builds a
// Catalog from its declarations.
func Load(ctx context.Context, location string) (*Catalog, error) {
	data, err := fetch.Read(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("loading api header: %w", err)
	}
	symbols, err := ParseHeader(ctx, data, location)
	if err != nil {
		return nil, fmt.Errorf("loading api header: %w", err)
	}
	return New(symbols), nil
}
