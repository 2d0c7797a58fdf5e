package transcript

import "sort"

// Index is a read-only lookup view over a Transcript. It never mutates the
// transcript it wraps.
type Index struct {
	tr       *Transcript
	byID     map[int]int
	natural  []int
	docOrder []int
}

// NewIndex builds an index over tr. A nil transcript yields an empty index.
func NewIndex(tr *Transcript) *Index {
	idx := &Index{tr: tr, byID: map[int]int{}}
	if tr == nil {
		return idx
	}

	for i, s := range tr.Segments {
		idx.byID[s.ID] = i
		idx.docOrder = append(idx.docOrder, i)
	}

	idx.natural = append([]int(nil), idx.docOrder...)
	sort.SliceStable(idx.natural, func(a, b int) bool {
		sa, sb := tr.Segments[idx.natural[a]], tr.Segments[idx.natural[b]]
		if sa.Start != sb.Start {
			return sa.Start < sb.Start
		}
		return sa.ID < sb.ID
	})
	return idx
}

// Transcript returns the wrapped transcript (may be nil).
func (x *Index) Transcript() *Transcript {
	return x.tr
}

// Empty reports whether there is no transcript or it has no segments.
func (x *Index) Empty() bool {
	return x.tr == nil || len(x.tr.Segments) == 0
}

// Duration returns the transcript duration, falling back to the last
// segment end when the duration field is unset.
func (x *Index) Duration() float64 {
	if x.tr == nil {
		return 0
	}
	if x.tr.Duration > 0 {
		return x.tr.Duration
	}
	d := 0.0
	for _, s := range x.tr.Segments {
		if s.End > d {
			d = s.End
		}
	}
	return d
}

// Segment returns the segment with the given id.
func (x *Index) Segment(id int) (*Segment, bool) {
	i, ok := x.byID[id]
	if !ok {
		return nil, false
	}
	return &x.tr.Segments[i], true
}

// Has reports whether a segment id exists.
func (x *Index) Has(id int) bool {
	_, ok := x.byID[id]
	return ok
}

// Word returns the word addressed by key.
func (x *Index) Word(key WordKey) (*Word, bool) {
	s, ok := x.Segment(key.SegmentID)
	if !ok || key.WordIndex < 0 || key.WordIndex >= len(s.Words) {
		return nil, false
	}
	return &s.Words[key.WordIndex], true
}

// Keys returns every word key of a segment in positional order.
func (x *Index) Keys(id int) []WordKey {
	s, ok := x.Segment(id)
	if !ok {
		return nil
	}
	keys := make([]WordKey, len(s.Words))
	for i := range s.Words {
		keys[i] = WordKey{SegmentID: id, WordIndex: i}
	}
	return keys
}

// Segments returns the segments in document order (as supplied).
func (x *Index) Segments() []*Segment {
	out := make([]*Segment, 0, len(x.docOrder))
	for _, i := range x.docOrder {
		out = append(out, &x.tr.Segments[i])
	}
	return out
}

// Natural returns the segments in ascending start order.
func (x *Index) Natural() []*Segment {
	out := make([]*Segment, 0, len(x.natural))
	for _, i := range x.natural {
		out = append(out, &x.tr.Segments[i])
	}
	return out
}

// Walk visits every word in document order. Returning false stops the walk.
func (x *Index) Walk(fn func(key WordKey, w *Word) bool) {
	for _, i := range x.docOrder {
		s := &x.tr.Segments[i]
		for wi := range s.Words {
			if !fn(WordKey{SegmentID: s.ID, WordIndex: wi}, &s.Words[wi]) {
				return
			}
		}
	}
}
