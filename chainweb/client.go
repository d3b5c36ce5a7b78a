package chainweb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/r3labs/sse"

	"github.com/kadena-io/chainweb-indexer/common"
	"github.com/kadena-io/chainweb-indexer/log"
)

var logger = log.NewModuleLogger(log.Chainweb)

// BlocksPerBatch is the descending-height window size GetBlocks sweeps
// the branch-walk API in, matching the node's own pagination cost
// model.
const BlocksPerBatch = 300

// branchLimit is the page size within one window.
const branchLimit = 150

// reconnectDelay is how long the live stream sleeps before retrying
// after any error.
const reconnectDelay = 10 * time.Second

// parentCacheSize bounds the live-stream parent-continuity cache.
const parentCacheSize = 256

// BlockOrErr is one element of a block channel: exactly one of Block
// or Err is set.
type BlockOrErr struct {
	Block *Block
	Err   error
}

// Client talks to a single Chainweb node: the startup handshake, the
// historical branch-walk API, and the live block-update stream.
type Client struct {
	baseURL    string
	network    string
	httpClient *http.Client
	cache      common.Cache // hash -> *Block, recent-block continuity cache
}

// NewClient constructs a client against the given node base URL
// (e.g. "https://api.chainweb.com"). Open must be called before any
// other method.
func NewClient(baseURL string) *Client {
	cache, _ := common.NewCache(common.LRUConfig{CacheSize: parentCacheSize})
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}
}

type infoResponse struct {
	NodeVersion        string `json:"nodeVersion"`
	NodePackageVersion string `json:"nodePackageVersion"`
}

// Open performs the /info handshake, learning the network id that
// every subsequent API URL is namespaced under.
func (c *Client) Open(ctx context.Context) error {
	logger.Info("retrieving chainweb info")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/info", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "fetching /info")
	}
	defer resp.Body.Close()

	var info infoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return errors.Wrap(err, "decoding /info response")
	}
	c.network = info.NodeVersion
	logger.Info("node version", "nodePackageVersion", info.NodePackageVersion)
	logger.Info("network", "nodeVersion", info.NodeVersion)
	return nil
}

func (c *Client) apiURL() string {
	return fmt.Sprintf("%s/chainweb/0.0/%s", c.baseURL, c.network)
}

type branchBody struct {
	Lower []string `json:"lower"`
	Upper []string `json:"upper"`
}

type branchResponse struct {
	Items []json.RawMessage `json:"items"`
	Next  string            `json:"next"`
}

// GetBlocks returns a lazy, finite stream of blocks on chain, between
// minHeight and maxHeight inclusive, walking backwards from
// parentHash. Blocks arrive in descending height order. The channel
// is closed once the range is exhausted or ctx is cancelled; a
// transient HTTP error is sent once as a BlockOrErr and then the
// channel is closed (the caller, per spec, owns retry/backoff).
func (c *Client) GetBlocks(ctx context.Context, chain, parentHash string, minHeight, maxHeight uint64) <-chan BlockOrErr {
	out := make(chan BlockOrErr)
	go func() {
		defer close(out)
		body := branchBody{Lower: []string{}, Upper: []string{parentHash}}

		for hi := maxHeight; ; hi -= BlocksPerBatch {
			lo := minHeight
			if hi >= BlocksPerBatch && hi-(BlocksPerBatch-1) > minHeight {
				lo = hi - (BlocksPerBatch - 1)
			}

			next := ""
			first := true
			for first || next != "" {
				first = false
				blocks, nextCursor, err := c.fetchBranchPage(ctx, chain, lo, hi, next, body)
				if err != nil {
					select {
					case out <- BlockOrErr{Err: err}:
					case <-ctx.Done():
					}
					return
				}
				for _, blk := range blocks {
					select {
					case out <- BlockOrErr{Block: blk}:
					case <-ctx.Done():
						return
					}
				}
				next = nextCursor
			}

			if lo <= minHeight {
				break
			}
		}
	}()
	return out
}

func (c *Client) fetchBranchPage(ctx context.Context, chain string, lo, hi uint64, next string, body branchBody) ([]*Block, string, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(branchLimit))
	q.Set("minheight", strconv.FormatUint(lo, 10))
	q.Set("maxheight", strconv.FormatUint(hi, 10))
	if next != "" {
		q.Set("next", next)
	}

	reqURL := fmt.Sprintf("%s/chain/%s/block/branch?%s", c.apiURL(), chain, q.Encode())
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", errors.Wrapf(err, "branch walk chain=%s lo=%d hi=%d", chain, lo, hi)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", errors.Errorf("branch walk chain=%s lo=%d hi=%d: status %d", chain, lo, hi, resp.StatusCode)
	}

	var br branchResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, "", errors.Wrap(err, "decoding branch response")
	}

	blocks := make([]*Block, 0, len(br.Items))
	for _, item := range br.Items {
		blk, err := ParseBlock(item)
		if err != nil {
			return nil, "", err
		}
		blocks = append(blocks, blk)
	}
	return blocks, br.Next, nil
}

// Stream opens the live block-update SSE connection and reconnects
// indefinitely (sleeping reconnectDelay between attempts) on any
// error. The channel only closes when ctx is cancelled.
//
// A bounded cache of recently-seen blocks (by hash) ensures a child's
// parent is emitted immediately before it even if the server's first
// post-reconnect block is a few steps ahead of the cache: if the
// incoming block's parent hash is cached, the cached parent is emitted
// first.
func (c *Client) Stream(ctx context.Context) <-chan BlockOrErr {
	out := make(chan BlockOrErr)
	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}
			if err := c.streamOnce(ctx, out); err != nil {
				logger.Error("error when reading block stream", "err", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(reconnectDelay):
				}
				logger.Info("trying to reconnect")
			}
		}
	}()
	return out
}

func (c *Client) streamOnce(ctx context.Context, out chan<- BlockOrErr) error {
	client := sse.NewClient(c.apiURL() + "/block/updates")
	client.Method = http.MethodPost

	events := make(chan *sse.Event)
	if err := client.SubscribeChanRaw(events); err != nil {
		return errors.Wrap(err, "subscribing to block stream")
	}
	defer client.Unsubscribe(events)

	first := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-events:
			if !ok {
				return errors.New("block stream closed")
			}
			blk, err := ParseBlock(msg.Data)
			if err != nil {
				return errors.Wrap(err, "parsing streamed block")
			}
			if first {
				logger.Info("block stream OK")
				first = false
			}
			if cached, ok := c.cache.Get(blk.Header.Parent); ok {
				select {
				case out <- BlockOrErr{Block: cached.(*Block)}:
				case <-ctx.Done():
					return nil
				}
			}
			c.cache.Add(blk.Header.Hash, blk)
			select {
			case out <- BlockOrErr{Block: blk}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Close releases the underlying HTTP connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
