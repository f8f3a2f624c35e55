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
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/united-manufacturing-hub/treesync/pkg/metrics"
	"github.com/united-manufacturing-hub/treesync/pkg/persistence"
	"github.com/united-manufacturing-hub/treesync/pkg/tree"
)

// SaveOptions adjusts a save pass.
type SaveOptions struct {
	// DryRun suppresses every store mutation, tree subtraction, and cache
	// update. Diffs are still computed and id-map entries are still booked
	// for items that already carry an id, so callers can preview a pass.
	DryRun bool
}

// SyncSave reconciles state against the store, layer by layer in reverse
// declared order, and returns the reduced tree plus the id map accumulated
// across layers.
//
// Reverse order means deeper-declared layers peel their subtrees off the
// tree first, so an earlier single layer persisting "the whole tree" sees
// only the remainder. A store failure aborts the pass; completed layers are
// not rolled back.
func (e *Engine) SyncSave(ctx context.Context, state interface{}, spec *SyncSpec, opts SaveOptions) (interface{}, IDMap, error) {
	if err := validateContext(ctx); err != nil {
		return nil, nil, err
	}

	specID := spec.Identity()
	idMap := make(IDMap)
	start := time.Now()

	log := e.log.With("run_id", uuid.NewString(), "spec", specID, "pipeline", metrics.PipelineSave)
	log.Debugw("save_started", "layers", len(spec.Layers), "dry_run", opts.DryRun)

	for i := len(spec.Layers) - 1; i >= 0; i-- {
		layer := &spec.Layers[i]
		layerStart := time.Now()

		next, err := e.saveLayer(ctx, state, spec, specID, i, idMap, opts,
			log.With("layer", i, "collection", layer.Collection))

		metrics.ObserveLayerTime(metrics.PipelineSave, specID, layer.Collection, time.Since(layerStart))

		if err != nil {
			metrics.IncErrorCount(metrics.ComponentSavePipeline, specID)

			return nil, nil, fmt.Errorf("save layer %d (%s): %w", i, layer.Collection, err)
		}

		state = next
	}

	metrics.ObserveSyncTime(metrics.PipelineSave, specID, time.Since(start))
	log.Debugw("save_finished", "id_map_entries", len(idMap), "duration", time.Since(start))

	return state, idMap, nil
}

func (e *Engine) saveLayer(ctx context.Context, state interface{}, spec *SyncSpec, specID string, index int, idMap IDMap, opts SaveOptions, log *zap.SugaredLogger) (interface{}, error) {
	layer := &spec.Layers[index]

	if layer.SkipSave {
		log.Debugw("layer_skipped", "reason", "skip-save")

		return state, nil
	}

	switch layer.Kind {
	case KindSingle:
		return e.saveSingle(ctx, state, spec, index, idMap, opts, log)
	case KindMany:
		return e.saveMany(ctx, state, spec, specID, index, idMap, opts, log)
	default:
		log.Warnw("unknown_layer_kind", "kind", layer.Kind)

		return state, nil
	}
}

// saveSingle upserts the whole remaining tree as one document addressed by
// the layer's key condition, then removes the layer's subtree.
func (e *Engine) saveSingle(ctx context.Context, state interface{}, spec *SyncSpec, index int, idMap IDMap, opts SaveOptions, log *zap.SugaredLogger) (interface{}, error) {
	layer := &spec.Layers[index]

	body, ok := state.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("single layer requires a mapping tree, got %T", state)
	}

	if opts.DryRun {
		log.Debugw("single_dry_run")

		return state, nil
	}

	db := spec.SaveDB(layer)

	result, err := e.store.UpdateOne(ctx, db, layer.Collection, layer.Keys, body, true)
	if err != nil {
		return nil, fmt.Errorf("upsert into %s/%s: %w", db, layer.Collection, err)
	}

	if result.UpsertedID != nil {
		idMap.Put(nil, "", *result.UpsertedID)
	}

	log.Debugw("single_saved", "upserted", result.UpsertedID != nil)

	return tree.Remove(state, layer.Path), nil
}

// saveMany diffs the layer's item sequence against the cached snapshot and
// applies the resulting operation groups, then merges assigned ids back into
// the snapshot and removes the layer's subtree.
func (e *Engine) saveMany(ctx context.Context, state interface{}, spec *SyncSpec, specID string, index int, idMap IDMap, opts SaveOptions, log *zap.SugaredLogger) (interface{}, error) {
	layer := &spec.Layers[index]

	docs, err := canonicalDocuments(layerItems(state, layer, log))
	if err != nil {
		return nil, fmt.Errorf("canonicalize items: %w", err)
	}

	diff := diffDocuments(snapshotOf(e.cache, specID, index), docs)

	metrics.AddDiffOps(specID, layer.Collection, "insert", len(diff.Insert))
	metrics.AddDiffOps(specID, layer.Collection, "update", len(diff.Update))
	metrics.AddDiffOps(specID, layer.Collection, "delete", len(diff.Delete))

	log.Debugw("layer_diffed",
		"items", len(docs),
		"insert", len(diff.Insert),
		"update", len(diff.Update),
		"delete", len(diff.Delete))

	if opts.DryRun {
		bookIDMapEntries(idMap, layer, docs)

		return state, nil
	}

	if layer.SkipLoad && len(diff.Delete) > 0 {
		// A layer that never loads must not destroy documents the load side
		// never observed.
		log.Debugw("deletes_suppressed", "reason", "skip-load", "count", len(diff.Delete))
	}

	if err := e.applyDiff(ctx, spec.SaveDB(layer), layer, diff); err != nil {
		return nil, err
	}

	// Store-assigned ids have been written onto the diffed documents, which
	// alias docs; booking and caching now sees every item as already known.
	bookIDMapEntries(idMap, layer, docs)

	if err := e.cache.Update(specID, index, docs); err != nil {
		return nil, err
	}

	return tree.Remove(state, layer.Path), nil
}

// applyDiff dispatches the operation groups of one many layer concurrently
// and joins them before returning. Inserts carrying an id are upserted so an
// externally created document with the same identity is taken over rather
// than duplicated; inserts without an id go through one bulk insert that
// reports the assigned ids back.
func (e *Engine) applyDiff(ctx context.Context, db string, layer *LayerSpec, diff *Diff) error {
	insertWithID := make([]persistence.Document, 0, len(diff.Insert))
	insertWithoutID := make([]persistence.Document, 0, len(diff.Insert))

	for _, doc := range diff.Insert {
		if _, ok := persistence.GetID(doc, false); ok {
			insertWithID = append(insertWithID, doc)
		} else {
			insertWithoutID = append(insertWithoutID, doc)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for _, doc := range insertWithID {
			if _, err := e.store.UpdateOne(gctx, db, layer.Collection, idCondition(doc), doc, true); err != nil {
				return fmt.Errorf("upsert insert into %s/%s: %w", db, layer.Collection, err)
			}
		}

		return nil
	})

	g.Go(func() error {
		result, err := e.store.InsertMany(gctx, db, layer.Collection, insertWithoutID)
		if err != nil {
			return fmt.Errorf("insert into %s/%s: %w", db, layer.Collection, err)
		}

		for i, id := range result.InsertedIDs {
			if i < len(insertWithoutID) {
				insertWithoutID[i][persistence.IDFields[0]] = id
			}
		}

		return nil
	})

	if !layer.SkipLoad {
		g.Go(func() error {
			for _, doc := range diff.Delete {
				if err := e.store.DeleteOne(gctx, db, layer.Collection, doc); err != nil {
					return fmt.Errorf("delete from %s/%s: %w", db, layer.Collection, err)
				}
			}

			return nil
		})
	}

	g.Go(func() error {
		for _, doc := range diff.Update {
			if _, err := e.store.UpdateOne(gctx, db, layer.Collection, idCondition(doc), doc, false); err != nil {
				return fmt.Errorf("update in %s/%s: %w", db, layer.Collection, err)
			}
		}

		return nil
	})

	return g.Wait()
}

// layerItems extracts the layer's item sequence from the tree: the mapping's
// values in key order when a path-key is configured, the sequence itself
// otherwise. A missing subtree is an empty sequence, so a subtree removed
// from the tree diffs into deletes.
func layerItems(state interface{}, layer *LayerSpec, log *zap.SugaredLogger) []persistence.Document {
	subtree, ok := tree.Get(state, layer.Path)
	if !ok {
		return nil
	}

	var raw []interface{}

	if layer.PathKey != "" {
		m, isMap := subtree.(map[string]interface{})
		if !isMap {
			log.Warnw("subtree_not_a_mapping", "path", strings.Join(layer.Path, "/"))

			return nil
		}

		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			raw = append(raw, m[k])
		}
	} else {
		seq, isSeq := subtree.([]interface{})
		if !isSeq {
			log.Warnw("subtree_not_a_sequence", "path", strings.Join(layer.Path, "/"))

			return nil
		}

		raw = seq
	}

	items := make([]persistence.Document, 0, len(raw))

	for i, item := range raw {
		doc, isDoc := item.(map[string]interface{})
		if !isDoc {
			log.Warnw("item_not_a_document", "index", i)

			continue
		}

		items = append(items, doc)
	}

	return items
}

// bookIDMapEntries records an id-map entry for every item that carries an
// id, keyed by the configured path-key field or the item's position.
func bookIDMapEntries(idMap IDMap, layer *LayerSpec, docs []persistence.Document) {
	for i, doc := range docs {
		id, ok := persistence.GetID(doc, false)
		if !ok {
			continue
		}

		idMap.Put(layer.Path, itemKey(doc, layer.PathKey, i), id)
	}
}

// itemKey computes a document's id-map key: the path-key field's value when
// configured, the item's position otherwise.
func itemKey(doc persistence.Document, pathKey string, index int) string {
	if pathKey != "" {
		return persistence.IDToString(doc[pathKey])
	}

	return strconv.Itoa(index)
}

// idCondition builds the condition addressing doc by its own identity, in
// native form.
func idCondition(doc persistence.Document) persistence.Document {
	for _, field := range persistence.IDFields {
		if v, ok := doc[field]; ok && v != nil {
			return persistence.Document{field: persistence.IDToNative(v)}
		}
	}

	return nil
}
