// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchgroup

// groupBy partitions items by the given identity key, preserving the
// first-seen order of distinct keys: the output order of groups
// equals the order in which new identities were encountered. Output
// is stable, never sorted.
func groupBy[T any, K comparable, G any](items []T, keyFn func(T) K, newGroup func() G, appendFn func(G, T)) []G {
	var order []K
	groups := make(map[K]G)
	for _, item := range items {
		key := keyFn(item)
		group, ok := groups[key]
		if !ok {
			group = newGroup()
			groups[key] = group
			order = append(order, key)
		}
		appendFn(group, item)
	}
	out := make([]G, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key])
	}
	return out
}
