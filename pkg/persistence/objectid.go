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
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// ObjectID is the store-native document identity: 12 bytes whose string form
// is 24 hex characters.
//
// DESIGN DECISION: Value type ([12]byte), not a wrapper around string
// WHY: Comparable (usable as a map key), zero-allocation equality, and a
// single unambiguous native representation. The string form is derived via
// Hex(), never stored alongside.
//
// INSPIRED BY: MongoDB ObjectId layout (4-byte timestamp, 5-byte process
// random, 3-byte counter).
type ObjectID [12]byte

// NilObjectID is the zero value of ObjectID.
var NilObjectID ObjectID

var (
	processRandom  [5]byte
	objectIDTicker atomic.Uint32
)

func init() {
	if _, err := rand.Read(processRandom[:]); err != nil {
		panic("persistence: cannot seed object id randomness: " + err.Error())
	}

	var seed [4]byte
	if _, err := rand.Read(seed[:]); err != nil {
		panic("persistence: cannot seed object id counter: " + err.Error())
	}

	objectIDTicker.Store(binary.BigEndian.Uint32(seed[:]))
}

// NewObjectID generates a new unique ObjectID.
func NewObjectID() ObjectID {
	var id ObjectID

	binary.BigEndian.PutUint32(id[0:4], uint32(time.Now().Unix()))
	copy(id[4:9], processRandom[:])

	counter := objectIDTicker.Add(1)
	id[9] = byte(counter >> 16)
	id[10] = byte(counter >> 8)
	id[11] = byte(counter)

	return id
}

// Hex returns the 24-character lowercase hex string form of the id.
func (id ObjectID) Hex() string {
	return hex.EncodeToString(id[:])
}

// String implements fmt.Stringer, returning the hex form.
func (id ObjectID) String() string {
	return id.Hex()
}

// IsZero reports whether the id is the zero value.
func (id ObjectID) IsZero() bool {
	return id == NilObjectID
}

// MarshalJSON encodes the id as its quoted hex string, so that JSON
// round-trips (layer cache snapshots) carry the stable string form rather
// than a byte array.
func (id ObjectID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.Hex() + `"`), nil
}

// UnmarshalJSON decodes a quoted 24-hex-character string.
func (id *ObjectID) UnmarshalJSON(data []byte) error {
	if len(data) != 26 || data[0] != '"' || data[25] != '"' {
		return fmt.Errorf("invalid object id literal %s", data)
	}

	parsed, err := ObjectIDFromHex(string(data[1:25]))
	if err != nil {
		return err
	}

	*id = parsed

	return nil
}

// ObjectIDFromHex parses a 24-hex-character string into an ObjectID.
func ObjectIDFromHex(s string) (ObjectID, error) {
	var id ObjectID

	if !IsHexID(s) {
		return id, fmt.Errorf("invalid object id %q: want 24 hex characters", s)
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid object id %q: %w", s, err)
	}

	copy(id[:], raw)

	return id, nil
}

// IsHexID reports whether s is exactly 24 lowercase hex characters, i.e.
// the string form of an ObjectID as Hex() produces it. Uppercase hex is
// deliberately not recognized: treating "ABC..." as native would make
// IDToString(IDToNative(s)) differ from s and destabilize identity
// comparison.
func IsHexID(s string) bool {
	if len(s) != 24 {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}

	return true
}
