// Package metadata fetches tile source descriptions from the tile server.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/matjam/smoothtile/internal/types"
	"resty.dev/v3"
)

const WebMercator = "EPSG:3857"

var ErrNoItem = errors.New("no item id configured")

type Provider struct {
	client *resty.Client
	server string
}

// NewProvider returns a provider for the REST API rooted at server. A
// non-empty token is sent as the Girder-Token header.
func NewProvider(server, token string, timeout time.Duration) *Provider {
	server = strings.TrimRight(server, "/")
	client := resty.New()
	client.SetBaseURL(server)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "smoothtile")
	if token != "" {
		client.SetHeader("Girder-Token", token)
	}
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &Provider{client: client, server: server}
}

// Client is the configured HTTP client, shared with the tile engine so
// tile requests carry the same credentials.
func (p *Provider) Client() *resty.Client { return p.client }

func (p *Provider) Close() error { return p.client.Close() }

// Fetch returns the metadata of item. Geospatial items are described in
// web mercator, which is what the viewer displays them in.
func (p *Provider) Fetch(ctx context.Context, item string) (types.Metadata, error) {
	if item == "" {
		return types.Metadata{}, ErrNoItem
	}

	meta, err := p.get(ctx, item, nil)
	if err != nil {
		return types.Metadata{}, err
	}
	if !meta.Geospatial {
		return meta, nil
	}

	projected, err := p.get(ctx, item, map[string]string{"projection": WebMercator})
	if err != nil {
		return types.Metadata{}, err
	}
	log.Debug("using projected metadata", "item", item, "levels", projected.Levels)
	if projected.Frames == nil {
		projected.Frames = meta.Frames
	}
	projected.Geospatial = true
	return projected, nil
}

func (p *Provider) get(ctx context.Context, item string, query map[string]string) (types.Metadata, error) {
	var meta types.Metadata
	res, err := p.client.R().
		SetContext(ctx).
		SetPathParam("item", item).
		SetQueryParams(query).
		SetResult(&meta).
		Get("/item/{item}/tiles")
	if err != nil {
		return types.Metadata{}, fmt.Errorf("fetching metadata for %s: %w", item, err)
	}
	if res.IsError() {
		return types.Metadata{}, fmt.Errorf("fetching metadata for %s: %s", item, res.Status())
	}
	return meta, nil
}

// TileURL is the tile URL template of item; tilePath is relative to the
// item's tiles endpoint and keeps its {z}, {x} and {y} placeholders.
func (p *Provider) TileURL(item, tilePath string) string {
	return p.server + "/item/" + item + "/tiles/" + strings.TrimLeft(tilePath, "/")
}
