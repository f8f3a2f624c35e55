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

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"

	"github.com/united-manufacturing-hub/treesync/pkg/persistence"
)

// Kind selects how a layer maps its subtree onto a collection.
type Kind string

const (
	// KindSingle maps the whole remaining tree onto one document, addressed
	// by the layer's key condition.
	KindSingle Kind = "single"
	// KindMany maps a sequence (or keyed mapping) of documents onto a
	// collection, one document per item.
	KindMany Kind = "many"
)

// LayerSpec declares one mapping between a subtree path and a collection.
type LayerSpec struct {
	// Kind is single or many.
	Kind Kind `yaml:"kind"`

	// Path locates the layer's subtree within the state tree. An empty path
	// addresses the whole tree.
	Path []string `yaml:"path,omitempty"`

	// PathKey names the document field used to re-key a loaded sequence into
	// a mapping, and to key id-map entries during save. When empty, loaded
	// documents stay a sequence and id-map entries fall back to the item's
	// position.
	PathKey string `yaml:"path-key,omitempty"`

	// Collection is the target collection name.
	Collection string `yaml:"collection"`

	// DB overrides the spec-level database name for this layer.
	DB string `yaml:"db,omitempty"`

	// DBSave overrides the database name for saves only.
	DBSave string `yaml:"db-save,omitempty"`

	// Keys is the query condition used by single layers and by loads.
	Keys persistence.Document `yaml:"keys,omitempty"`

	// Fields is the projection applied to loaded documents.
	Fields []string `yaml:"fields,omitempty"`

	// SkipLoad excludes the layer from load passes. It also suppresses
	// save-side deletes: a layer that never loads must not destroy documents
	// the load side never observed.
	SkipLoad bool `yaml:"skip-load,omitempty"`

	// SkipSave excludes the layer from save passes.
	SkipSave bool `yaml:"skip-save,omitempty"`
}

// SyncSpec is the full ordered list of layers plus default database naming.
//
// Layer order matters twice: loads walk layers in declared order, saves walk
// them in reverse declared order so deeper-declared layers peel their
// subtrees off the tree before earlier layers consume the remainder.
type SyncSpec struct {
	// ID is the explicit cache identity of the spec. When empty, an identity
	// is derived from the spec's content, so two structurally identical specs
	// share cache state.
	ID string `yaml:"id,omitempty"`

	// Layers are the declared layer mappings, in order.
	Layers []LayerSpec `yaml:"layers"`

	// DB is the default database name for all layers.
	DB string `yaml:"db"`

	// DBSave overrides DB for save passes.
	DBSave string `yaml:"db-save,omitempty"`
}

// Identity returns the spec's cache identity: the explicit ID when set,
// otherwise an xxhash over the spec's canonical JSON encoding.
func (s *SyncSpec) Identity() string {
	if s.ID != "" {
		return s.ID
	}

	raw, err := json.Marshal(s)
	if err != nil {
		// Specs come from YAML config and are always encodable; reaching
		// this means a hand-built spec carries a non-serializable key value.
		return fmt.Sprintf("unhashable-%p", s)
	}

	return fmt.Sprintf("%016x", xxhash.Sum64(raw))
}

// Validate checks the spec for configuration errors that would make every
// pass fail. Unknown layer kinds are deliberately not rejected here: the
// pipelines treat them as non-fatal and skip the layer.
func (s *SyncSpec) Validate() error {
	if len(s.Layers) == 0 {
		return fmt.Errorf("sync spec has no layers")
	}

	for i := range s.Layers {
		layer := &s.Layers[i]

		if layer.Collection == "" {
			return fmt.Errorf("layer %d: collection is required", i)
		}

		// A save-only database (db-save) does not make loads resolvable, so
		// each direction the layer participates in is checked separately.
		if !layer.SkipSave && s.SaveDB(layer) == "" {
			return fmt.Errorf("layer %d: no database resolvable for saves", i)
		}

		if !layer.SkipLoad && s.LoadDB(layer) == "" {
			return fmt.Errorf("layer %d: no database resolvable for loads", i)
		}
	}

	return nil
}

// SaveDB resolves the effective database name for saving a layer, in
// priority order: layer save-override, layer database, spec save-override,
// spec database.
func (s *SyncSpec) SaveDB(layer *LayerSpec) string {
	switch {
	case layer.DBSave != "":
		return layer.DBSave
	case layer.DB != "":
		return layer.DB
	case s.DBSave != "":
		return s.DBSave
	default:
		return s.DB
	}
}

// LoadDB resolves the effective database name for loading a layer: the layer
// override when set, the spec default otherwise.
func (s *SyncSpec) LoadDB(layer *LayerSpec) string {
	if layer.DB != "" {
		return layer.DB
	}

	return s.DB
}
