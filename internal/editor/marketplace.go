package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/gosimple/slug"

	"finitefield.org/catalog-editor/internal/backend"
)

// ErrMarketplaceRequired indicates a listing has no marketplace name.
var ErrMarketplaceRequired = errors.New("editor: marketplace is required")

// MarketplaceKey normalizes a marketplace name into the channel key.
func MarketplaceKey(name string) string {
	return slug.Make(name)
}

// EnsureMarketplaceChannel returns the channel for marketplace, creating it when no
// existing channel carries the same key.
func EnsureMarketplaceChannel(ctx context.Context, catalog backend.Catalog, marketplace string) (backend.Channel, error) {
	key := MarketplaceKey(marketplace)
	if key == "" {
		return backend.Channel{}, ErrMarketplaceRequired
	}
	channels, err := catalog.SearchMarketplaceChannels(ctx, key)
	if err != nil {
		return backend.Channel{}, fmt.Errorf("search channels: %w", err)
	}
	for _, ch := range channels {
		if MarketplaceKey(ch.Marketplace) == key {
			return ch, nil
		}
	}
	ch, err := catalog.CreateMarketplaceChannel(ctx, key)
	if err != nil {
		return backend.Channel{}, fmt.Errorf("create channel: %w", err)
	}
	return ch, nil
}
