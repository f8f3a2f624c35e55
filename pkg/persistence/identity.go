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

package persistence

import (
	"fmt"
)

// IDFields is the set of recognized document id field names, in the fixed
// priority order in which they are checked. The first present field wins.
//
// DESIGN DECISION: Named constant slice, not per-call knowledge
// WHY: Several components (diff engine, pipelines, stores) must agree on
// which fields carry identity; a single enumeration prevents drift.
// WARNING: Exported for read-only access. DO NOT MODIFY.
var IDFields = []string{"_id", "id"}

// IDToString returns the canonical string form of any id value. ObjectIDs
// become their 24-hex form; everything else is stringified. Identity
// comparison in the diff engine always goes through this, so document
// partitions are stable regardless of the backend's id representation.
func IDToString(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case ObjectID:
		return v.Hex()
	case *ObjectID:
		if v == nil {
			return ""
		}

		return v.Hex()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IDToNative converts a string id matching the 24-hex ObjectID pattern into
// its native form. Non-matching values pass through unchanged, so the
// function is idempotent and safe to apply to ids that were never native.
func IDToNative(id interface{}) interface{} {
	s, ok := id.(string)
	if !ok {
		return id
	}

	if !IsHexID(s) {
		return id
	}

	native, err := ObjectIDFromHex(s)
	if err != nil {
		return id
	}

	return native
}

// GetID scans doc's recognized id fields in priority order and returns the
// first present value. With ensureNative true the value is passed through
// IDToNative; otherwise it is returned as stored. The second return is false
// when the document carries no identity at all.
func GetID(doc Document, ensureNative bool) (interface{}, bool) {
	if doc == nil {
		return nil, false
	}

	for _, field := range IDFields {
		if id, ok := doc[field]; ok && id != nil {
			if ensureNative {
				return IDToNative(id), true
			}

			return id, true
		}
	}

	return nil, false
}

// RemoveID returns a copy of doc with all recognized id fields stripped.
// Used for the structural equality that decides updated vs unchanged.
func RemoveID(doc Document) Document {
	if doc == nil {
		return nil
	}

	stripped := make(Document, len(doc))
	for k, v := range doc {
		stripped[k] = v
	}

	for _, field := range IDFields {
		delete(stripped, field)
	}

	return stripped
}

// NormalizeID rewrites whichever id field is present in doc, in place,
// through IDToNative (ensureNative true) or IDToString (ensureNative false).
// Documents without identity are left untouched.
func NormalizeID(doc Document, ensureNative bool) Document {
	if doc == nil {
		return nil
	}

	for _, field := range IDFields {
		id, ok := doc[field]
		if !ok || id == nil {
			continue
		}

		if ensureNative {
			doc[field] = IDToNative(id)
		} else {
			doc[field] = IDToString(id)
		}

		break
	}

	return doc
}
