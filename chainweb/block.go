// Package chainweb retrieves and decodes blocks from a Chainweb node:
// the branch-walk REST API for historical ranges, and the
// server-sent-event stream for new blocks.
package chainweb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kadena-io/chainweb-indexer/codec"
	"github.com/kadena-io/chainweb-indexer/pact"
)

// Header carries the block-level fields every Event is annotated
// with.
type Header struct {
	Hash         string
	Height       uint64
	Parent       string
	Chain        string
	CreationTime time.Time // microsecond-precision UTC
}

// wireHeader is the JSON shape the node sends on the wire.
type wireHeader struct {
	Hash         string `json:"hash"`
	Height       uint64 `json:"height"`
	Parent       string `json:"parent"`
	ChainID      int    `json:"chainId"`
	CreationTime int64  `json:"creationTime"` // microseconds since epoch
}

type wirePayload struct {
	Coinbase     string      `json:"coinbase"`
	Transactions [][2]string `json:"transactions"`
}

type wireBlock struct {
	Header             wireHeader  `json:"header"`
	PayloadWithOutputs wirePayload `json:"payloadWithOutputs"`
}

// Block wraps one node block: its header plus the base64-encoded
// coinbase and transaction outputs needed to derive its event stream.
// Its lifetime is bounded by the decoding pipeline: once its events
// have been read and persisted the Block itself is discarded.
type Block struct {
	Header  Header
	payload wirePayload
}

// ParseBlock decodes a single block JSON object as the node emits it,
// from either the branch-walk response or the SSE stream.
func ParseBlock(raw []byte) (*Block, error) {
	var w wireBlock
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("parsing block: %w", err)
	}
	return &Block{
		Header: Header{
			Hash:         w.Header.Hash,
			Height:       w.Header.Height,
			Parent:       w.Header.Parent,
			Chain:        fmt.Sprintf("%d", w.Header.ChainID),
			CreationTime: time.UnixMicro(w.Header.CreationTime).UTC(),
		},
		payload: w.PayloadWithOutputs,
	}, nil
}

// Event is an immutable record describing one contract-emitted event.
// Created during block decoding, it is never mutated and is destroyed
// once persisted (or discarded as not watched).
type Event struct {
	Name      string // fully-qualified: namespace.module.NAME or module.NAME
	Params    []pact.Value
	ReqKey    string
	Chain     string
	Block     string
	Rank      int
	Height    uint64
	Timestamp time.Time
}

func moduleFQN(namespace, name string) string {
	if namespace != "" {
		return namespace + "." + name
	}
	return name
}

// fieldString reads a string-valued key out of a decoded pact map,
// tolerating a missing or non-string key (empty string).
func fieldString(m map[string]pact.Value, key string) string {
	v, ok := m[key]
	if !ok || v.Kind != pact.KindString {
		return ""
	}
	return v.Str
}

// eventsFromOutput extracts the Events field from one decoded
// coinbase/transaction output (a pact.Value of Kind Map), annotating
// each with the enclosing block/transaction fields and its rank.
func (b *Block) eventsFromOutput(out pact.Value, rank int) []Event {
	if out.Kind != pact.KindMap {
		return nil
	}
	rawEvents, ok := out.Map["events"]
	if !ok || rawEvents.Kind != pact.KindList {
		return nil
	}
	reqKey := fieldString(out.Map, "reqKey")

	events := make([]Event, 0, len(rawEvents.List))
	for _, ev := range rawEvents.List {
		if ev.Kind != pact.KindMap {
			continue
		}
		module, _ := ev.Map["module"]
		namespace, name := "", ""
		if module.Kind == pact.KindMap {
			namespace = fieldString(module.Map, "namespace")
			name = fieldString(module.Map, "name")
		}
		eventName := fieldString(ev.Map, "name")
		var params []pact.Value
		if p, ok := ev.Map["params"]; ok && p.Kind == pact.KindList {
			params = p.List
		}
		events = append(events, Event{
			Name:      moduleFQN(namespace, name) + "." + eventName,
			Params:    params,
			ReqKey:    reqKey,
			Chain:     b.Header.Chain,
			Block:     b.Header.Hash,
			Rank:      rank,
			Height:    b.Header.Height,
			Timestamp: b.Header.CreationTime,
		})
	}
	return events
}

// Events lazily decodes every transaction output's events in block
// order: the coinbase output first (rank 0), then each transaction in
// the order the block lists them. A decode anomaly inside one output
// (an unparseable tagged value) is logged at warn and does not drop
// the event or the rest of the block; the raw value is preserved.
func (b *Block) Events() ([]Event, error) {
	outputs := make([]string, 0, len(b.payload.Transactions)+1)
	outputs = append(outputs, b.payload.Coinbase)
	for _, tx := range b.payload.Transactions {
		outputs = append(outputs, tx[1])
	}

	var events []Event
	for rank, b64 := range outputs {
		raw, err := codec.DecodeB64(b64)
		if err != nil {
			return nil, fmt.Errorf("decoding output %d: %w", rank, err)
		}
		out, anomalies, err := pact.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing output %d: %w", rank, err)
		}
		for _, a := range anomalies {
			logger.Warn("decode anomaly: event still emitted with raw value preserved", "chain", b.Header.Chain, "block", b.Header.Hash, "height", b.Header.Height, "rank", rank, "reason", a.Reason)
		}
		events = append(events, b.eventsFromOutput(out, rank)...)
	}
	return events, nil
}
