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

// Package tree implements generic path access into nested state trees.
//
// A tree node is one of: mapping (map[string]interface{}), sequence
// ([]interface{}), or scalar. Paths are key sequences; a numeric segment
// indexes into a sequence node. The accessors never assume anything about
// the shape beyond the node they are currently looking at, so arbitrary
// application state trees pass through opaquely.
package tree

import (
	"strconv"
)

// Get returns the value at path, walking mapping keys and sequence indices.
// The second return is false when any segment is missing or of the wrong
// shape. An empty path returns the tree itself.
func Get(tree interface{}, path []string) (interface{}, bool) {
	node := tree

	for _, key := range path {
		switch n := node.(type) {
		case map[string]interface{}:
			child, ok := n[key]
			if !ok {
				return nil, false
			}

			node = child
		case []interface{}:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(n) {
				return nil, false
			}

			node = n[idx]
		default:
			return nil, false
		}
	}

	return node, true
}

// Set returns the tree with value placed at path, creating intermediate
// mappings as needed. Mutates mapping and sequence nodes in place where they
// already exist; the return value must still be used because an empty path
// (or a scalar at the root) replaces the tree wholesale.
func Set(tree interface{}, path []string, value interface{}) interface{} {
	if len(path) == 0 {
		return value
	}

	key := path[0]

	switch n := tree.(type) {
	case map[string]interface{}:
		n[key] = Set(n[key], path[1:], value)

		return n
	case []interface{}:
		idx, err := strconv.Atoi(key)
		if err == nil && idx >= 0 && idx < len(n) {
			n[idx] = Set(n[idx], path[1:], value)

			return n
		}

		if err == nil && idx == len(n) {
			return append(n, Set(nil, path[1:], value))
		}
	}

	// Missing or scalar node: grow a fresh mapping in its place.
	node := make(map[string]interface{}, 1)
	node[key] = Set(nil, path[1:], value)

	return node
}

// Remove returns the tree with the value at path deleted. An empty path is
// total replacement: it always yields a fresh empty mapping, regardless of
// the tree's prior contents. For a non-empty path only the final key is
// removed; missing intermediate nodes make the call a no-op.
func Remove(tree interface{}, path []string) interface{} {
	if len(path) == 0 {
		return map[string]interface{}{}
	}

	parentPath, last := path[:len(path)-1], path[len(path)-1]

	parent, ok := Get(tree, parentPath)
	if !ok {
		return tree
	}

	switch p := parent.(type) {
	case map[string]interface{}:
		delete(p, last)
	case []interface{}:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(p) {
			return tree
		}

		shortened := append(p[:idx], p[idx+1:]...)
		if len(parentPath) == 0 {
			return shortened
		}

		return Set(tree, parentPath, shortened)
	}

	return tree
}
