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

package sync_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/treesync/pkg/persistence"
	"github.com/united-manufacturing-hub/treesync/pkg/sync"
)

var _ = Describe("DiffLayer", func() {
	const specID = "diff-spec"

	var cache *sync.LayerCache

	BeforeEach(func() {
		cache = sync.NewLayerCache()
	})

	It("should classify every document as insert against an empty cache", func() {
		diff, err := sync.DiffLayer(cache, specID, 0, []persistence.Document{
			{"_id": "1", "name": "a"},
			{"name": "b"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.Insert).To(HaveLen(2))
		Expect(diff.Update).To(BeEmpty())
		Expect(diff.Delete).To(BeEmpty())
	})

	It("should always classify documents without identity as insert", func() {
		Expect(cache.Update(specID, 0, []persistence.Document{
			{"_id": "1", "name": "a"},
		})).To(Succeed())

		diff, err := sync.DiffLayer(cache, specID, 0, []persistence.Document{
			{"name": "a"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.Insert).To(HaveLen(1))
		Expect(diff.Insert[0]["name"]).To(Equal("a"))
		Expect(diff.Update).To(BeEmpty())
		Expect(diff.Delete).To(HaveLen(1))
	})

	It("should partition changed and new documents", func() {
		Expect(cache.Update(specID, 0, []persistence.Document{
			{"_id": "1", "name": "x"},
		})).To(Succeed())

		diff, err := sync.DiffLayer(cache, specID, 0, []persistence.Document{
			{"_id": "1", "name": "y"},
			{"_id": "2", "name": "z"},
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(diff.Insert).To(HaveLen(1))
		Expect(diff.Insert[0]["_id"]).To(Equal("2"))
		Expect(diff.Insert[0]["name"]).To(Equal("z"))

		Expect(diff.Update).To(HaveLen(1))
		Expect(diff.Update[0]["_id"]).To(Equal("1"))
		Expect(diff.Update[0]["name"]).To(Equal("y"))

		Expect(diff.Delete).To(BeEmpty())
	})

	It("should delete documents that vanished from the current set", func() {
		Expect(cache.Update(specID, 0, []persistence.Document{
			{"_id": "1"},
			{"_id": "2"},
		})).To(Succeed())

		diff, err := sync.DiffLayer(cache, specID, 0, []persistence.Document{
			{"_id": "1"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.Insert).To(BeEmpty())
		Expect(diff.Update).To(BeEmpty())
		Expect(diff.Delete).To(HaveLen(1))
		Expect(diff.Delete[0]["_id"]).To(Equal("2"))
	})

	It("should classify a reappearing unknown id as insert, never update", func() {
		Expect(cache.Update(specID, 0, []persistence.Document{
			{"_id": "1", "name": "a"},
		})).To(Succeed())

		diff, err := sync.DiffLayer(cache, specID, 0, []persistence.Document{
			{"_id": "external", "name": "a"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.Insert).To(HaveLen(1))
		Expect(diff.Update).To(BeEmpty())
		Expect(diff.Delete).To(HaveLen(1))
	})

	It("should drop structurally unchanged documents", func() {
		Expect(cache.Update(specID, 0, []persistence.Document{
			{"_id": "1", "name": "a", "nested": map[string]interface{}{"k": "v"}},
		})).To(Succeed())

		diff, err := sync.DiffLayer(cache, specID, 0, []persistence.Document{
			{"_id": "1", "name": "a", "nested": map[string]interface{}{"k": "v"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.Empty()).To(BeTrue())
	})

	It("should compare identities through their string form", func() {
		id := persistence.NewObjectID()

		// Snapshot observed the native id; the tree carries the hex string.
		Expect(cache.Update(specID, 0, []persistence.Document{
			{"_id": id, "name": "a"},
		})).To(Succeed())

		diff, err := sync.DiffLayer(cache, specID, 0, []persistence.Document{
			{"_id": id.Hex(), "name": "a"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.Empty()).To(BeTrue())
	})

	It("should re-attach the previously observed id in native form on updates", func() {
		id := persistence.NewObjectID()

		Expect(cache.Update(specID, 0, []persistence.Document{
			{"_id": id, "name": "a"},
		})).To(Succeed())

		diff, err := sync.DiffLayer(cache, specID, 0, []persistence.Document{
			{"_id": id.Hex(), "name": "b"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.Update).To(HaveLen(1))
		Expect(diff.Update[0]["_id"]).To(Equal(id))
	})

	It("should keep uppercase string ids stable across snapshots", func() {
		doc := persistence.Document{"_id": "ABCDEFABCDEFABCDEFABCDEF", "name": "a"}

		Expect(cache.Update(specID, 0, []persistence.Document{doc})).To(Succeed())

		same, err := sync.DiffLayer(cache, specID, 0, []persistence.Document{doc})
		Expect(err).NotTo(HaveOccurred())
		Expect(same.Empty()).To(BeTrue())

		changed, err := sync.DiffLayer(cache, specID, 0, []persistence.Document{
			{"_id": "ABCDEFABCDEFABCDEFABCDEF", "name": "b"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(changed.Insert).To(BeEmpty())
		Expect(changed.Update).To(HaveLen(1))
		Expect(changed.Update[0]["_id"]).To(Equal("ABCDEFABCDEFABCDEFABCDEF"))
	})

	It("should yield an empty diff when run again after a cache update", func() {
		current := []persistence.Document{
			{"_id": "1", "name": "a"},
			{"_id": "2", "name": "b"},
		}

		first, err := sync.DiffLayer(cache, specID, 0, current)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Empty()).To(BeFalse())

		Expect(cache.Update(specID, 0, current)).To(Succeed())

		second, err := sync.DiffLayer(cache, specID, 0, current)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Empty()).To(BeTrue())
	})

	It("should survive numeric type changes from JSON canonicalization", func() {
		Expect(cache.Update(specID, 0, []persistence.Document{
			{"_id": "1", "size": float64(3)},
		})).To(Succeed())

		diff, err := sync.DiffLayer(cache, specID, 0, []persistence.Document{
			{"_id": "1", "size": 3},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.Empty()).To(BeTrue())
	})
})
