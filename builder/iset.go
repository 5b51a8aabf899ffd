package builder

import "math/bits"

// ISet records which fields of a struct or variant have been written.
// Indices must be below 64.
type ISet uint64

func checkIndex(i int) {
	if i < 0 || i >= 64 {
		panic("builder: ISet index out of range")
	}
}

func (s *ISet) Set(i int) {
	checkIndex(i)
	*s |= 1 << i
}

func (s *ISet) Unset(i int) {
	checkIndex(i)
	*s &^= 1 << i
}

func (s ISet) Has(i int) bool {
	checkIndex(i)
	return s&(1<<i) != 0
}

// All reports whether indices 0 through n-1 are all set.
func (s ISet) All(n int) bool {
	if n == 0 {
		return true
	}
	checkIndex(n - 1)
	mask := ISet(1)<<n - 1
	return s&mask == mask
}

// FirstUnset returns the lowest unset index below n, or -1.
func (s ISet) FirstUnset(n int) int {
	for i := range n {
		if !s.Has(i) {
			return i
		}
	}
	return -1
}

func (s ISet) Count() int { return bits.OnesCount64(uint64(s)) }

func (s *ISet) Clear() { *s = 0 }
