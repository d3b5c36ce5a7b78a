package chainweb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlockJSON(height uint64, hash, parent string, chain int) []byte {
	w := wireBlock{
		Header: wireHeader{
			Hash:         hash,
			Height:       height,
			Parent:       parent,
			ChainID:      chain,
			CreationTime: time.Now().UnixMicro(),
		},
		PayloadWithOutputs: wirePayload{
			Coinbase:     "",
			Transactions: [][2]string{},
		},
	}
	b, _ := json.Marshal(w)
	return b
}

func TestOpenParsesInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(infoResponse{NodeVersion: "mainnet01", NodePackageVersion: "2.19"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.Open(context.Background()))
	assert.Equal(t, "mainnet01", c.network)
}

func TestGetBlocksWalksPagesDescending(t *testing.T) {
	pageOne := []json.RawMessage{
		testBlockJSON(1099, "h1099", "h1098", 0),
		testBlockJSON(1098, "h1098", "h1097", 0),
	}
	pageTwo := []json.RawMessage{
		testBlockJSON(1097, "h1097", "h1096", 0),
	}

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("next") == "" {
			json.NewEncoder(w).Encode(branchResponse{Items: pageOne, Next: "cursor-1"})
			return
		}
		json.NewEncoder(w).Encode(branchResponse{Items: pageTwo, Next: ""})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.network = "mainnet01"

	ch := c.GetBlocks(context.Background(), "0", "h1099", 1097, 1099)
	var got []uint64
	for r := range ch {
		require.NoError(t, r.Err)
		got = append(got, r.Block.Header.Height)
	}
	assert.Equal(t, []uint64{1099, 1098, 1097}, got)
	assert.Equal(t, 2, calls)
}

func TestGetBlocksSurfacesHTTPErrorOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.network = "mainnet01"

	ch := c.GetBlocks(context.Background(), "0", "tip", 0, 10)
	r, ok := <-ch
	require.True(t, ok)
	assert.Error(t, r.Err)
	_, ok = <-ch
	assert.False(t, ok, "channel should close after surfacing the error")
}

func TestGetBlocksRespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(branchResponse{
			Items: []json.RawMessage{testBlockJSON(100, "h100", "h99", 0)},
			Next:  "keeps-going",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.network = "mainnet01"

	ctx, cancel := context.WithCancel(context.Background())
	ch := c.GetBlocks(ctx, "0", "tip", 0, 100)
	<-ch
	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after context cancellation")
	}
}

func TestFetchBranchPageBuildsExpectedURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		json.NewEncoder(w).Encode(branchResponse{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.network = "mainnet01"
	_, _, err := c.fetchBranchPage(context.Background(), "3", 0, 100, "", branchBody{Upper: []string{"tip"}})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("/chainweb/0.0/mainnet01/chain/3/block/branch"), gotPath)
}
