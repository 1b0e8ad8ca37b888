package wmsclient

import (
	"context"
	"encoding/json"
	"strconv"
)

const defaultPageSize = 600

// Paginator is a restartable, lazy pull-based sequence over a WMS list
// endpoint. Each call to Next fetches exactly one page, so a caller that
// stops early (an error, a `stop after N` policy) never pays for pages it
// didn't ask for — unlike a generator that prefetches, this holds no
// in-flight request between calls.
type Paginator struct {
	client   *Client
	endpoint string
	params   map[string]string
	pageSize int
	offset   int
	done     bool
}

// NewPaginator creates a paginator over endpoint. params are merged into
// every page request alongside limit/offset. startPage sets the initial
// offset (used to resume a previously interrupted scan); pageSize <= 0
// uses the WMS default of 600.
func NewPaginator(c *Client, endpoint string, params map[string]string, startPage, pageSize int) *Paginator {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Paginator{
		client:   c,
		endpoint: endpoint,
		params:   params,
		pageSize: pageSize,
		offset:   startPage,
	}
}

// Next fetches the next page of raw JSON objects. A page with fewer than
// pageSize items ends the iteration: a non-empty short page is returned
// with done=false, an empty one with done=true, and every later call
// returns nil with done=true without issuing a request.
func (p *Paginator) Next(ctx context.Context) (items []json.RawMessage, done bool, err error) {
	if p.done {
		return nil, true, nil
	}

	query := map[string]string{
		"limit":  strconv.Itoa(p.pageSize),
		"offset": strconv.Itoa(p.offset),
	}
	for k, v := range p.params {
		query[k] = v
	}

	var page []json.RawMessage
	if err := p.client.Get(ctx, p.endpoint, query, &page); err != nil {
		return nil, false, err
	}

	p.offset += len(page)
	if len(page) < p.pageSize {
		p.done = true
	}
	return page, p.done && len(page) == 0, nil
}

// Each drives the paginator to completion, invoking fn once per page and
// stopping early if fn returns false or an error.
func (p *Paginator) Each(ctx context.Context, fn func(page []json.RawMessage) (bool, error)) error {
	for {
		items, done, err := p.Next(ctx)
		if err != nil {
			return err
		}
		if len(items) > 0 {
			cont, err := fn(items)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		if done {
			return nil
		}
	}
}
