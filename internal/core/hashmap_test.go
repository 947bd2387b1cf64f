package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint64Map_PutGetRemove(t *testing.T) {
	m := newUint64Map[int](8)

	_, existed := m.put(1, 100)
	assert.False(t, existed)

	v, ok := m.get(1)
	require.True(t, ok)
	assert.Equal(t, 100, v)

	prev, existed := m.put(1, 200)
	assert.True(t, existed)
	assert.Equal(t, 100, prev)

	v, ok = m.get(1)
	require.True(t, ok)
	assert.Equal(t, 200, v)

	removed, ok := m.remove(1)
	require.True(t, ok)
	assert.Equal(t, 200, removed)

	_, ok = m.get(1)
	assert.False(t, ok)
}

// TestUint64Map_ChainCompaction exercises remove's probe-chain compaction:
// inserting keys that collide at the same ideal slot, then removing the
// first one, must not break lookups for entries that follow it in the
// probe chain.
func TestUint64Map_ChainCompaction(t *testing.T) {
	m := newUint64Map[string](8)

	// Force collisions by constructing keys that land in the same bucket
	// after mixing: we don't know mix()'s output ahead of time, so instead
	// saturate a small table densely enough that collisions are inevitable
	// for any reasonable hash, then verify every surviving key is still
	// found after interleaved removes.
	const n = 40
	for i := uint64(1); i <= n; i++ {
		m.put(i, "v")
	}
	for i := uint64(1); i <= n; i += 2 {
		_, ok := m.remove(i)
		require.True(t, ok)
	}
	for i := uint64(1); i <= n; i++ {
		_, ok := m.get(i)
		if i%2 == 0 {
			assert.True(t, ok, "key %d should still be present", i)
		} else {
			assert.False(t, ok, "key %d should have been removed", i)
		}
	}
}

func TestUint64Map_GrowPreservesEntries(t *testing.T) {
	m := newUint64Map[int](4)
	const n = 200
	for i := uint64(1); i <= n; i++ {
		m.put(i, int(i)*2)
	}
	for i := uint64(1); i <= n; i++ {
		v, ok := m.get(i)
		require.True(t, ok)
		assert.Equal(t, int(i)*2, v)
	}
}

func TestUint64Map_RemoveAbsent(t *testing.T) {
	m := newUint64Map[int](8)
	_, ok := m.remove(1)
	assert.False(t, ok)
}
