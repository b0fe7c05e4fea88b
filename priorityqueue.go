package commander

import (
	"cmp"
	"sort"
)

type bucket[K cmp.Ordered, V any] struct {
	key   K
	items []V
}

// priorityqueue keeps values in buckets sorted by key.
// Values pushed with the same key share a bucket, in arrival order (FIFO).
type priorityqueue[K cmp.Ordered, V any] struct {
	buckets []bucket[K, V]
}

func (q *priorityqueue[K, V]) Empty() bool {
	return len(q.buckets) == 0
}

func (q *priorityqueue[K, V]) Len() int {
	return len(q.buckets)
}

func (q *priorityqueue[K, V]) Push(k K, v V) {
	n := len(q.buckets)

	i := sort.Search(n, func(i int) bool {
		return cmp.Less(k, q.buckets[i].key) || k == q.buckets[i].key
	})

	if i < n && q.buckets[i].key == k {
		b := &q.buckets[i]
		b.items = append(b.items, v)
		return
	}

	if n == cap(q.buckets) {
		s := make([]bucket[K, V], 0, 2*n+1)
		s = append(s, q.buckets[:i]...)
		s = append(s, bucket[K, V]{key: k, items: []V{v}})
		s = append(s, q.buckets[i:]...)
		q.buckets = s
		return
	}

	s := q.buckets[:n+1]
	copy(s[i+1:], s[i:])
	s[i] = bucket[K, V]{key: k, items: []V{v}}
	q.buckets = s
}

// Peek returns the least key.
func (q *priorityqueue[K, V]) Peek() (k K, ok bool) {
	if len(q.buckets) == 0 {
		return k, false
	}
	return q.buckets[0].key, true
}

// Pop removes and returns the bucket with the least key.
func (q *priorityqueue[K, V]) Pop() (K, []V) {
	var zero bucket[K, V]

	b := q.buckets[0]
	q.buckets[0] = zero

	if len(q.buckets) > 1 {
		q.buckets = q.buckets[1:]
	} else {
		q.buckets = q.buckets[:0]
	}

	return b.key, b.items
}

// Filter drops values for which keep returns false, walking buckets in key
// order. It drops buckets that end up empty and stops after the first
// bucket that still holds a value.
func (q *priorityqueue[K, V]) Filter(keep func(V) bool) {
	i := 0

	for i < len(q.buckets) {
		b := &q.buckets[i]

		items := b.items[:0]
		for _, v := range b.items {
			if keep(v) {
				items = append(items, v)
			}
		}
		clear(b.items[len(items):])
		b.items = items

		if len(items) != 0 {
			break
		}

		i++
	}

	if i != 0 {
		n := copy(q.buckets, q.buckets[i:])
		clear(q.buckets[n:])
		q.buckets = q.buckets[:n]
	}
}
