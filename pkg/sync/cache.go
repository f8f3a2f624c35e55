// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sync

import (
	"fmt"
	stdsync "sync"

	json "github.com/goccy/go-json"

	"github.com/united-manufacturing-hub/treesync/pkg/persistence"
)

// LayerCache holds, per (spec identity, layer index), the document set as it
// was last observed from the store. Diffs are always computed against this
// prior observation, never against a previous in-memory tree snapshot.
//
// DESIGN DECISION: Explicit injected object, not a package-level global
// WHY: Cache identity must be an explicit value (the spec identity) so two
// engines, or tests, can hold independent snapshot state. A process-wide
// global couples unrelated sync passes through ambient state.
//
// Snapshots are stored in canonical JSON form: string-keyed maps with
// store-native ids flattened to their hex string form. This keeps cached
// state independent of whichever representation the store handed back.
//
// The cache is guarded by an RWMutex. One sync pass is single-threaded, but
// save and load passes over different specs may share a cache; concurrent
// passes over the same spec identity remain unsafe and must be serialized by
// the caller.
type LayerCache struct {
	mu        stdsync.RWMutex
	snapshots map[string]map[int][]persistence.Document
}

// NewLayerCache creates an empty layer cache.
func NewLayerCache() *LayerCache {
	return &LayerCache{
		snapshots: make(map[string]map[int][]persistence.Document),
	}
}

// Update overwrites the snapshot for (specID, layer) with a canonical copy
// of docs. Callers invoke this only after the layer's store operations have
// succeeded. A nil docs slice records an explicitly empty snapshot.
func (c *LayerCache) Update(specID string, layer int, docs []persistence.Document) error {
	canonical, err := canonicalDocuments(docs)
	if err != nil {
		return fmt.Errorf("canonicalize layer %d snapshot: %w", layer, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	layers, ok := c.snapshots[specID]
	if !ok {
		layers = make(map[int][]persistence.Document)
		c.snapshots[specID] = layers
	}

	layers[layer] = canonical

	return nil
}

// Get returns the snapshot for (specID, layer). The second return is false
// when the layer was never synced. The returned documents are a copy; the
// caller may mutate them freely.
func (c *LayerCache) Get(specID string, layer int) ([]persistence.Document, bool) {
	c.mu.RLock()
	docs, ok := c.snapshots[specID][layer]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	// Snapshots are JSON-safe by construction, so this copy cannot fail.
	copied, err := canonicalDocuments(docs)
	if err != nil {
		return nil, false
	}

	return copied, true
}

// Clear drops all layer snapshots for the given spec identity.
func (c *LayerCache) Clear(specID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.snapshots, specID)
}

// canonicalDocument returns a JSON-safe copy of doc: string-keyed maps all
// the way down, native ids flattened to their string form.
func canonicalDocument(doc persistence.Document) (persistence.Document, error) {
	if doc == nil {
		return nil, nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var canonical persistence.Document
	if err := json.Unmarshal(raw, &canonical); err != nil {
		return nil, err
	}

	return canonical, nil
}

// canonicalDocuments canonicalizes a document slice, preserving order.
func canonicalDocuments(docs []persistence.Document) ([]persistence.Document, error) {
	canonical := make([]persistence.Document, 0, len(docs))

	for i, doc := range docs {
		c, err := canonicalDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}

		canonical = append(canonical, c)
	}

	return canonical, nil
}
