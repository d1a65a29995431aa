package chain

import (
	"encoding/json"
	"strconv"

	"github.com/VictoriaMetrics/fastcache"
)

// readCache holds the serialized JSON of persisted blocks, keyed by
// id, and is consulted first by Blockchain.Get (the VIEW_BLOCK path).
// It never participates in invariant checking — Append and Validate
// always read the in-memory chain slice — and an evicted or
// undecodable entry makes Get fall back to that slice.
type readCache struct {
	c *fastcache.Cache
}

func newReadCache(maxBytes int) *readCache {
	return &readCache{c: fastcache.New(maxBytes)}
}

func (rc *readCache) put(b *Block) {
	buf, err := json.Marshal(b)
	if err != nil {
		return
	}
	rc.c.Set(cacheKey(b.ID), buf)
}

func (rc *readCache) get(id int) (*Block, bool) {
	buf, ok := rc.c.HasGet(nil, cacheKey(id))
	if !ok {
		return nil, false
	}
	var b Block
	if err := json.Unmarshal(buf, &b); err != nil {
		return nil, false
	}
	return &b, true
}

func cacheKey(id int) []byte {
	return []byte(strconv.Itoa(id))
}
