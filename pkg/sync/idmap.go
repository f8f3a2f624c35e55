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
	"strings"
)

// IDMap connects tree locations to assigned or existing document identities.
//
// Keys are the layer path segments joined with "/", extended with the item's
// computed key for many layers. The map is accumulated monotonically during
// one save pass and never read back into the layer cache.
type IDMap map[string]interface{}

// Put records id under the location formed by path and key.
func (m IDMap) Put(path []string, key string, id interface{}) {
	m[JoinPath(path, key)] = id
}

// Get returns the id recorded for the location formed by path and key.
func (m IDMap) Get(path []string, key string) (interface{}, bool) {
	id, ok := m[JoinPath(path, key)]

	return id, ok
}

// JoinPath builds an id-map key from path segments and an optional item key.
// An empty path with an empty key yields "".
func JoinPath(path []string, key string) string {
	if key == "" {
		return strings.Join(path, "/")
	}

	return strings.Join(append(append([]string{}, path...), key), "/")
}
