package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultPageSize is the per-page item limit requested from Shopify.
	DefaultPageSize = 250
	// DefaultMaxPages bounds a single collection run so a misbehaving or
	// enormous store cannot loop forever.
	DefaultMaxPages = 20
	// DefaultPageDelay is the enforced pause between page requests, keeping
	// within the 2-requests/second REST budget. Fixed, not adaptive.
	DefaultPageDelay = 500 * time.Millisecond
)

// nextLinkPattern matches the rel="next" URL of a Shopify Link pagination
// header and captures its page_info query parameter.
var nextLinkPattern = regexp.MustCompile(`<[^>]*[?&]page_info=([^&>]+)[^>]*>;\s*rel="next"`)

// ExtractNextPageInfo returns the page_info cursor of the rel="next" link, if
// the header carries one.
func ExtractNextPageInfo(header http.Header) (string, bool) {
	link := header.Get("Link")
	if link == "" {
		return "", false
	}
	matches := nextLinkPattern.FindStringSubmatch(link)
	if matches == nil {
		return "", false
	}
	return matches[1], true
}

// RestFetchFunc fetches one REST page with the supplied pagination
// parameters already merged in.
type RestFetchFunc func(ctx context.Context, params url.Values) (*Response, error)

// RestPager drives a paginated REST collection. Pages are consumed once and
// strictly in order; the cursor of each page comes from the previous
// response. Addressing is page_info from the Link header when present,
// otherwise since_id from the last item of the current page.
type RestPager struct {
	fetch    RestFetchFunc
	itemsKey string
	pageSize int
	maxPages int
	delay    time.Duration

	pageInfo string
	sinceID  int64
	page     int
	done     bool
}

// NewRestPager builds a pager over fetch. itemsKey names the collection field
// of the response body ("orders", "products", ...).
func NewRestPager(fetch RestFetchFunc, itemsKey string, pageSize, maxPages int, delay time.Duration) *RestPager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &RestPager{fetch: fetch, itemsKey: itemsKey, pageSize: pageSize, maxPages: maxPages, delay: delay}
}

// Next fetches the next page. ok is false once the pager is exhausted. The
// inter-page delay is a blocking pause; callers needing cancellation must
// bound the whole collection with a timeout.
func (p *RestPager) Next(ctx context.Context) (items []json.RawMessage, ok bool, err error) {
	if p.done || p.page >= p.maxPages {
		return nil, false, nil
	}
	if p.page > 0 {
		time.Sleep(p.delay)
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(p.pageSize))
	switch {
	case p.pageInfo != "":
		params.Set("page_info", p.pageInfo)
	case p.sinceID > 0:
		params.Set("since_id", strconv.FormatInt(p.sinceID, 10))
	}

	resp, err := p.fetch(ctx, params)
	if err != nil {
		p.done = true
		return nil, false, err
	}
	p.page++

	items, err = decodeItems(resp.Body, p.itemsKey)
	if err != nil {
		p.done = true
		return nil, false, err
	}
	if len(items) == 0 {
		p.done = true
		return nil, false, nil
	}

	if cursor, found := ExtractNextPageInfo(resp.Header); found {
		p.pageInfo = cursor
	} else {
		p.pageInfo = ""
		lastID, idErr := itemID(items[len(items)-1])
		if idErr != nil {
			p.done = true
			return items, true, nil
		}
		p.sinceID = lastID
	}

	if len(items) < p.pageSize {
		p.done = true
	}
	return items, true, nil
}

func decodeItems(body json.RawMessage, itemsKey string) ([]json.RawMessage, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "decode page body")
	}
	raw, found := payload[itemsKey]
	if !found {
		return nil, errors.Errorf("page body missing %q collection", itemsKey)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrapf(err, "decode %q collection", itemsKey)
	}
	return items, nil
}

func itemID(item json.RawMessage) (int64, error) {
	var probe struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(item, &probe); err != nil {
		return 0, errors.Wrap(err, "probe item id")
	}
	if probe.ID == 0 {
		return 0, errors.New("item has no numeric id")
	}
	return probe.ID, nil
}

// PageInfo is the GraphQL connection cursor state.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// Connection is the generic edges/pageInfo shape of a GraphQL collection
// field. Nodes stay raw for the normalizer to interpret.
type Connection struct {
	Edges []struct {
		Cursor string          `json:"cursor"`
		Node   json.RawMessage `json:"node"`
	} `json:"edges"`
	PageInfo PageInfo `json:"pageInfo"`
}

// Nodes returns the raw nodes of the connection.
func (c Connection) Nodes() []json.RawMessage {
	nodes := make([]json.RawMessage, 0, len(c.Edges))
	for _, edge := range c.Edges {
		nodes = append(nodes, edge.Node)
	}
	return nodes
}

// GraphQLFetchFunc fetches one GraphQL page; after is the cursor passed as
// the $after variable, empty for the first page.
type GraphQLFetchFunc func(ctx context.Context, after string) (Connection, error)

// GraphQLPager drives a cursor-paginated GraphQL collection with the same
// stop policy and inter-page delay as the REST pager.
type GraphQLPager struct {
	fetch    GraphQLFetchFunc
	pageSize int
	maxPages int
	delay    time.Duration

	after string
	page  int
	done  bool
}

func NewGraphQLPager(fetch GraphQLFetchFunc, pageSize, maxPages int, delay time.Duration) *GraphQLPager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &GraphQLPager{fetch: fetch, pageSize: pageSize, maxPages: maxPages, delay: delay}
}

// Next fetches the next page of nodes; ok is false once exhausted.
func (p *GraphQLPager) Next(ctx context.Context) (nodes []json.RawMessage, ok bool, err error) {
	if p.done || p.page >= p.maxPages {
		return nil, false, nil
	}
	if p.page > 0 {
		time.Sleep(p.delay)
	}

	conn, err := p.fetch(ctx, p.after)
	if err != nil {
		p.done = true
		return nil, false, err
	}
	p.page++

	nodes = conn.Nodes()
	if len(nodes) == 0 {
		p.done = true
		return nil, false, nil
	}

	if !conn.PageInfo.HasNextPage || conn.PageInfo.EndCursor == "" {
		p.done = true
	}
	p.after = conn.PageInfo.EndCursor

	if len(nodes) < p.pageSize {
		p.done = true
	}
	return nodes, true, nil
}
