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
	"reflect"

	"github.com/united-manufacturing-hub/treesync/pkg/persistence"
)

// Diff is the insert/update/delete partition of a layer's documents relative
// to its last-known snapshot.
type Diff struct {
	Insert []persistence.Document
	Update []persistence.Document
	Delete []persistence.Document
}

// Empty reports whether the diff carries no operations.
func (d *Diff) Empty() bool {
	return len(d.Insert) == 0 && len(d.Update) == 0 && len(d.Delete) == 0
}

// DiffLayer partitions current against the cached snapshot for
// (specID, layer).
//
// Identity comparison always goes through the string form of ids, so the
// partition is stable regardless of the backend's id representation. Update
// detection is structural equality with id fields stripped. Documents
// without any id field are unconditionally inserts; a document reappearing
// with an id the snapshot never held is an insert too, never an update.
//
// The Insert and Update slices alias the canonicalized current documents, so
// store-assigned ids written onto them flow back into the caller's snapshot
// merge. Delete documents come from the cached snapshot, since the tree no
// longer holds them.
func DiffLayer(cache *LayerCache, specID string, layer int, current []persistence.Document) (*Diff, error) {
	canonical, err := canonicalDocuments(current)
	if err != nil {
		return nil, fmt.Errorf("canonicalize current documents: %w", err)
	}

	return diffDocuments(snapshotOf(cache, specID, layer), canonical), nil
}

func snapshotOf(cache *LayerCache, specID string, layer int) []persistence.Document {
	if cache == nil {
		return nil
	}

	docs, _ := cache.Get(specID, layer)

	return docs
}

// diffDocuments computes the partition of canonical current docs against the
// canonical old snapshot.
func diffDocuments(old, current []persistence.Document) *Diff {
	withID := make([]persistence.Document, 0, len(current))
	withoutID := make([]persistence.Document, 0)

	for _, doc := range current {
		if _, ok := persistence.GetID(doc, false); ok {
			withID = append(withID, doc)
		} else {
			withoutID = append(withoutID, doc)
		}
	}

	// String id → the id as previously observed. Keys come from the raw
	// stored value's string form, exactly like the current side, so the
	// partition cannot drift on ids the native conversion would rewrite.
	// The native form is kept separately for re-attachment, so update calls
	// address the store's own identity representation.
	oldByID := make(map[string]persistence.Document, len(old))
	oldNativeID := make(map[string]interface{}, len(old))

	for _, doc := range old {
		id, ok := persistence.GetID(doc, false)
		if !ok {
			continue
		}

		s := persistence.IDToString(id)
		oldByID[s] = doc
		oldNativeID[s] = persistence.IDToNative(id)
	}

	currentIDs := make(map[string]struct{}, len(withID))
	for _, doc := range withID {
		id, _ := persistence.GetID(doc, false)
		currentIDs[persistence.IDToString(id)] = struct{}{}
	}

	diff := &Diff{
		Insert: make([]persistence.Document, 0),
		Update: make([]persistence.Document, 0),
		Delete: make([]persistence.Document, 0),
	}

	for _, doc := range withID {
		id, _ := persistence.GetID(doc, false)
		s := persistence.IDToString(id)

		oldDoc, survived := oldByID[s]
		if !survived {
			diff.Insert = append(diff.Insert, doc)

			continue
		}

		if reflect.DeepEqual(persistence.RemoveID(doc), persistence.RemoveID(oldDoc)) {
			continue
		}

		diff.Update = append(diff.Update, setID(doc, oldNativeID[s]))
	}

	diff.Insert = append(diff.Insert, withoutID...)

	for _, doc := range old {
		id, ok := persistence.GetID(doc, false)
		if !ok {
			continue
		}

		if _, alive := currentIDs[persistence.IDToString(id)]; !alive {
			diff.Delete = append(diff.Delete, doc)
		}
	}

	return diff
}

// setID writes id onto doc's present id field (first recognized field when
// none is present) and returns doc.
func setID(doc persistence.Document, id interface{}) persistence.Document {
	for _, field := range persistence.IDFields {
		if v, ok := doc[field]; ok && v != nil {
			doc[field] = id

			return doc
		}
	}

	doc[persistence.IDFields[0]] = id

	return doc
}
