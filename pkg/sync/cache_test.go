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

var _ = Describe("LayerCache", func() {
	var cache *sync.LayerCache

	BeforeEach(func() {
		cache = sync.NewLayerCache()
	})

	It("should report unknown layers as absent", func() {
		_, ok := cache.Get("spec", 0)
		Expect(ok).To(BeFalse())
	})

	It("should distinguish an empty snapshot from an absent one", func() {
		Expect(cache.Update("spec", 0, nil)).To(Succeed())

		docs, ok := cache.Get("spec", 0)
		Expect(ok).To(BeTrue())
		Expect(docs).To(BeEmpty())
	})

	It("should store snapshots per (spec, layer)", func() {
		Expect(cache.Update("spec", 0, []persistence.Document{{"name": "a"}})).To(Succeed())
		Expect(cache.Update("spec", 1, []persistence.Document{{"name": "b"}})).To(Succeed())
		Expect(cache.Update("other", 0, []persistence.Document{{"name": "c"}})).To(Succeed())

		docs, _ := cache.Get("spec", 1)
		Expect(docs[0]["name"]).To(Equal("b"))
	})

	It("should overwrite snapshots wholesale", func() {
		Expect(cache.Update("spec", 0, []persistence.Document{{"name": "a"}, {"name": "b"}})).To(Succeed())
		Expect(cache.Update("spec", 0, []persistence.Document{{"name": "c"}})).To(Succeed())

		docs, _ := cache.Get("spec", 0)
		Expect(docs).To(HaveLen(1))
		Expect(docs[0]["name"]).To(Equal("c"))
	})

	It("should flatten native ids to their string form", func() {
		id := persistence.NewObjectID()
		Expect(cache.Update("spec", 0, []persistence.Document{{"_id": id}})).To(Succeed())

		docs, _ := cache.Get("spec", 0)
		Expect(docs[0]["_id"]).To(Equal(id.Hex()))
	})

	It("should isolate stored snapshots from the caller", func() {
		doc := persistence.Document{"name": "a"}
		Expect(cache.Update("spec", 0, []persistence.Document{doc})).To(Succeed())

		doc["name"] = "mutated"

		docs, _ := cache.Get("spec", 0)
		Expect(docs[0]["name"]).To(Equal("a"))
	})

	It("should isolate returned snapshots from later readers", func() {
		Expect(cache.Update("spec", 0, []persistence.Document{{"name": "a"}})).To(Succeed())

		first, _ := cache.Get("spec", 0)
		first[0]["name"] = "mutated"

		second, _ := cache.Get("spec", 0)
		Expect(second[0]["name"]).To(Equal("a"))
	})

	It("should clear all layers of one spec only", func() {
		Expect(cache.Update("spec", 0, []persistence.Document{{"name": "a"}})).To(Succeed())
		Expect(cache.Update("spec", 1, []persistence.Document{{"name": "b"}})).To(Succeed())
		Expect(cache.Update("other", 0, []persistence.Document{{"name": "c"}})).To(Succeed())

		cache.Clear("spec")

		_, ok := cache.Get("spec", 0)
		Expect(ok).To(BeFalse())
		_, ok = cache.Get("spec", 1)
		Expect(ok).To(BeFalse())
		_, ok = cache.Get("other", 0)
		Expect(ok).To(BeTrue())
	})
})
