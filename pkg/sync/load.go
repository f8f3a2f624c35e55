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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/treesync/pkg/metrics"
	"github.com/united-manufacturing-hub/treesync/pkg/persistence"
	"github.com/united-manufacturing-hub/treesync/pkg/tree"
)

// SyncLoad rebuilds a state tree from the store, layer by layer in declared
// order, and refreshes the layer cache with what each layer observed.
//
// A single layer finding nothing is not an error: the tree stays untouched
// for that layer and an empty snapshot is cached. Store failures abort the
// pass.
func (e *Engine) SyncLoad(ctx context.Context, spec *SyncSpec) (interface{}, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	specID := spec.Identity()
	start := time.Now()

	var state interface{} = map[string]interface{}{}

	log := e.log.With("run_id", uuid.NewString(), "spec", specID, "pipeline", metrics.PipelineLoad)
	log.Debugw("load_started", "layers", len(spec.Layers))

	for i := range spec.Layers {
		layer := &spec.Layers[i]
		layerStart := time.Now()

		next, err := e.loadLayer(ctx, state, spec, specID, i,
			log.With("layer", i, "collection", layer.Collection))

		metrics.ObserveLayerTime(metrics.PipelineLoad, specID, layer.Collection, time.Since(layerStart))

		if err != nil {
			metrics.IncErrorCount(metrics.ComponentLoadPipeline, specID)

			return nil, fmt.Errorf("load layer %d (%s): %w", i, layer.Collection, err)
		}

		state = next
	}

	metrics.ObserveSyncTime(metrics.PipelineLoad, specID, time.Since(start))
	log.Debugw("load_finished", "duration", time.Since(start))

	return state, nil
}

func (e *Engine) loadLayer(ctx context.Context, state interface{}, spec *SyncSpec, specID string, index int, log *zap.SugaredLogger) (interface{}, error) {
	layer := &spec.Layers[index]

	if layer.SkipLoad {
		log.Debugw("layer_skipped", "reason", "skip-load")

		return state, nil
	}

	switch layer.Kind {
	case KindSingle:
		return e.loadSingle(ctx, state, spec, specID, index, log)
	case KindMany:
		return e.loadMany(ctx, state, spec, specID, index, log)
	default:
		log.Warnw("unknown_layer_kind", "kind", layer.Kind)

		return state, nil
	}
}

// loadSingle fetches one document by the layer's key condition. An empty
// layer path replaces the whole tree with the document.
func (e *Engine) loadSingle(ctx context.Context, state interface{}, spec *SyncSpec, specID string, index int, log *zap.SugaredLogger) (interface{}, error) {
	layer := &spec.Layers[index]
	db := spec.LoadDB(layer)

	doc, err := e.store.FindOne(ctx, db, layer.Collection, layer.Keys, layer.Fields)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			log.Debugw("single_not_found")

			if cacheErr := e.cache.Update(specID, index, nil); cacheErr != nil {
				return nil, cacheErr
			}

			return state, nil
		}

		return nil, fmt.Errorf("find one in %s/%s: %w", db, layer.Collection, err)
	}

	if len(layer.Path) == 0 {
		state = map[string]interface{}(doc)
	} else {
		state = tree.Set(state, layer.Path, doc)
	}

	if err := e.cache.Update(specID, index, []persistence.Document{doc}); err != nil {
		return nil, err
	}

	return state, nil
}

// loadMany fetches the layer's document sequence and inserts it at the
// layer's path, re-keyed into a mapping when a path-key is configured. The
// cache always receives the raw fetched sequence, not the re-keyed form.
func (e *Engine) loadMany(ctx context.Context, state interface{}, spec *SyncSpec, specID string, index int, log *zap.SugaredLogger) (interface{}, error) {
	layer := &spec.Layers[index]
	db := spec.LoadDB(layer)

	docs, err := e.store.Find(ctx, db, layer.Collection, layer.Keys, layer.Fields)
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			return nil, fmt.Errorf("find in %s/%s: %w", db, layer.Collection, err)
		}

		docs = nil
	}

	log.Debugw("layer_loaded", "documents", len(docs))

	var value interface{}

	if layer.PathKey != "" {
		keyed := make(map[string]interface{}, len(docs))
		for _, doc := range docs {
			keyed[persistence.IDToString(doc[layer.PathKey])] = map[string]interface{}(doc)
		}

		value = keyed
	} else {
		seq := make([]interface{}, 0, len(docs))
		for _, doc := range docs {
			seq = append(seq, map[string]interface{}(doc))
		}

		value = seq
	}

	state = tree.Set(state, layer.Path, value)

	if err := e.cache.Update(specID, index, docs); err != nil {
		return nil, err
	}

	return state, nil
}
