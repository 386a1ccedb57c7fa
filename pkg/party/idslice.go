package party

import (
	"io"
	"sort"
)

// IDSlice is a sorted slice of IDs.
type IDSlice []ID

// NewIDSlice returns a sorted copy of ids.
func NewIDSlice(ids []ID) IDSlice {
	out := make(IDSlice, len(ids))
	copy(out, ids)
	sort.Sort(out)
	return out
}

// Range returns the IDSlice {1, 2, …, n}.
func Range(n int) IDSlice {
	ids := make(IDSlice, n)
	for i := range ids {
		ids[i] = ID(i + 1)
	}
	return ids
}

func (ids IDSlice) Len() int           { return len(ids) }
func (ids IDSlice) Less(i, j int) bool { return ids[i] < ids[j] }
func (ids IDSlice) Swap(i, j int)      { ids[i], ids[j] = ids[j], ids[i] }

// Valid reports whether the slice is sorted, contains no duplicates,
// and contains no zero ID.
func (ids IDSlice) Valid() bool {
	for i := range ids {
		if !ids[i].Valid() {
			return false
		}
		if i > 0 && ids[i-1] >= ids[i] {
			return false
		}
	}
	return true
}

// Search returns the index of x in ids, assuming ids is sorted.
func (ids IDSlice) Search(x ID) (int, bool) {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= x })
	if i < len(ids) && ids[i] == x {
		return i, true
	}
	return 0, false
}

// Contains returns true if ids contains all of the given points.
// Assumes ids is sorted.
func (ids IDSlice) Contains(points ...ID) bool {
	for _, x := range points {
		if _, ok := ids.Search(x); !ok {
			return false
		}
	}
	return true
}

// Remove returns a new slice with x removed, if present.
func (ids IDSlice) Remove(x ID) IDSlice {
	out := make(IDSlice, 0, len(ids))
	for _, id := range ids {
		if id != x {
			out = append(out, id)
		}
	}
	return out
}

// Copy returns an identical copy of the slice.
func (ids IDSlice) Copy() IDSlice {
	out := make(IDSlice, len(ids))
	copy(out, ids)
	return out
}

// WriteTo implements io.WriterTo.
func (ids IDSlice) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, id := range ids {
		n, err := id.WriteTo(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Domain implements hash.WriterToWithDomain.
func (IDSlice) Domain() string {
	return "Party IDs"
}
