package object

import "github.com/clovervm/clover/value"

const (
	emptyBucket     int32 = -1
	tombstoneBucket int32 = -2

	initialBuckets = 16
)

// IndirectDict is an open-addressing table mapping keys to dense, stable
// indices. The bucket array holds indices into a separate key list, so an
// index stays valid while the table grows. Keys are usually interned
// strings; other values hash by their bits.
type IndirectDict struct {
	buckets []int32
	keys    []value.Value
	used    int
}

// NewIndirectDict returns an empty dictionary.
func NewIndirectDict() *IndirectDict {
	d := &IndirectDict{}
	d.buckets = newBuckets(initialBuckets)
	return d
}

func newBuckets(n int) []int32 {
	b := make([]int32, n)
	for i := range b {
		b[i] = emptyBucket
	}
	return b
}

func keyHash(v value.Value) uint64 {
	if v.IsPtr() && HeaderOf(v).Klass() == StringKlass {
		return StringHash(v)
	}
	return uint64(v) * 0x9e3779b97f4a7c15
}

func keyEq(a, b value.Value) bool {
	if a == b {
		return true
	}
	if a.IsPtr() && b.IsPtr() && IsString(a) && IsString(b) {
		return StringEq(a, b)
	}
	return false
}

// find returns the bucket holding key, or the first reusable bucket and
// false when the key is absent.
func (d *IndirectDict) find(key value.Value) (int, bool) {
	mask := uint64(len(d.buckets) - 1)
	i := keyHash(key) & mask
	free := -1
	for {
		switch idx := d.buckets[i]; idx {
		case emptyBucket:
			if free < 0 {
				free = int(i)
			}
			return free, false
		case tombstoneBucket:
			if free < 0 {
				free = int(i)
			}
		default:
			if keyEq(d.keys[idx], key) {
				return int(i), true
			}
		}
		i = (i + 1) & mask
	}
}

// Lookup returns the index of key, or -1.
func (d *IndirectDict) Lookup(key value.Value) int32 {
	b, ok := d.find(key)
	if !ok {
		return -1
	}
	return d.buckets[b]
}

// Insert returns the index of key, adding it when absent.
func (d *IndirectDict) Insert(key value.Value) int32 {
	b, ok := d.find(key)
	if ok {
		return d.buckets[b]
	}
	if d.buckets[b] == emptyBucket {
		d.used++
	}
	idx := int32(len(d.keys))
	d.keys = append(d.keys, Incref(key))
	d.buckets[b] = idx
	if d.used*4 > len(d.buckets)*3 {
		d.grow()
	}
	return idx
}

// Reserve appends n indices that no key maps to and returns the first.
func (d *IndirectDict) Reserve(n int) int32 {
	first := int32(len(d.keys))
	for i := 0; i < n; i++ {
		d.keys = append(d.keys, value.NotPresent)
	}
	return first
}

// Delete unmaps key. Its index is not reused; Key reports not-present for
// it afterwards.
func (d *IndirectDict) Delete(key value.Value, z *ZeroCountTable) bool {
	b, ok := d.find(key)
	if !ok {
		return false
	}
	idx := d.buckets[b]
	d.buckets[b] = tombstoneBucket
	old := d.keys[idx]
	d.keys[idx] = value.NotPresent
	z.Decref(old)
	return true
}

func (d *IndirectDict) grow() {
	old := d.buckets
	d.buckets = newBuckets(len(old) * 2)
	d.used = 0
	mask := uint64(len(d.buckets) - 1)
	for _, idx := range old {
		if idx < 0 {
			continue
		}
		i := keyHash(d.keys[idx]) & mask
		for d.buckets[i] != emptyBucket {
			i = (i + 1) & mask
		}
		d.buckets[i] = idx
		d.used++
	}
}

// Key returns the key at idx.
func (d *IndirectDict) Key(idx int32) value.Value {
	return d.keys[idx]
}

// Len returns the number of indices handed out, including reserved ones.
func (d *IndirectDict) Len() int { return len(d.keys) }

// Buckets returns the bucket array size.
func (d *IndirectDict) Buckets() int { return len(d.buckets) }

// ReleaseRefs drops the references held by the keys.
func (d *IndirectDict) ReleaseRefs(z *ZeroCountTable) {
	for i, k := range d.keys {
		d.keys[i] = value.NotPresent
		z.Decref(k)
	}
}
