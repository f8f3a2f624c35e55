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

// Package sync implements the layered diff-and-sync engine.
//
// A SyncSpec declares an ordered list of layers, each mapping a subtree path
// of an application state tree to one store collection. The Engine runs two
// pipelines over a spec: SyncSave walks layers in reverse declared order,
// diffing each layer's documents against the last-observed snapshot and
// applying minimal insert/update/delete sets; SyncLoad walks layers in
// declared order, reading collections back into a fresh tree.
//
// Layers are strictly sequential: each pipeline stage consumes the tree the
// previous stage produced. Within one many layer the operation groups fan
// out concurrently and join before the layer completes.
package sync

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/treesync/pkg/logger"
	"github.com/united-manufacturing-hub/treesync/pkg/persistence"
)

// validateContext checks if the provided context is nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context cannot be nil")
	}

	return nil
}

// Engine runs save and load pipelines against a document store, keeping
// per-layer snapshots in an injected LayerCache.
//
// The engine performs no internal retries and offers no cross-operation
// atomicity: a store failure aborts the current layer and surfaces to the
// caller with already-applied operations left in place. Retry policy belongs
// to the store collaborator (see persistence.RetryStore) or the caller.
type Engine struct {
	store persistence.Store
	cache *LayerCache
	log   *zap.SugaredLogger
}

// NewEngine creates an engine over store and cache. A nil cache gets a fresh
// empty one, giving the engine private snapshot state.
func NewEngine(store persistence.Store, cache *LayerCache) *Engine {
	if cache == nil {
		cache = NewLayerCache()
	}

	return &Engine{
		store: store,
		cache: cache,
		log:   logger.For(logger.ComponentSyncEngine),
	}
}

// Cache returns the engine's layer cache, e.g. for clearing a spec's
// snapshots between full resyncs.
func (e *Engine) Cache() *LayerCache {
	return e.cache
}
