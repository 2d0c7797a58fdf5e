package edl

import (
	"sort"
	"time"

	"github.com/heimdex/heimdex-cut/internal/edit"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

// Encode serializes the persisted facets of st into operations, one per
// non-empty facet, each stamped with now. Selection is not persisted.
func Encode(st *edit.State, idx *transcript.Index, now time.Time) []Operation {
	if idx == nil {
		idx = transcript.NewIndex(nil)
	}
	ops := []Operation{}

	if ids := st.DeletedSegmentIDs(); len(ids) > 0 {
		ops = append(ops, NewOperation(DeleteSegments{SegmentIDs: ids}, now))
	}

	if keys := st.DeletedWordKeys(); len(keys) > 0 {
		var items []WordItem
		for _, k := range keys {
			if n := len(items); n > 0 && items[n-1].SegmentID == k.SegmentID {
				items[n-1].WordIndices = append(items[n-1].WordIndices, k.WordIndex)
				continue
			}
			items = append(items, WordItem{SegmentID: k.SegmentID, WordIndices: []int{k.WordIndex}})
		}
		ops = append(ops, NewOperation(DeleteWords{Items: items}, now))
	}

	if len(st.Corrections) > 0 {
		keys := make([]transcript.WordKey, 0, len(st.Corrections))
		for k := range st.Corrections {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

		items := make([]CorrectionItem, 0, len(keys))
		for _, k := range keys {
			original := ""
			if w, ok := idx.Word(k); ok {
				original = w.Text
			}
			items = append(items, CorrectionItem{
				SegmentID: k.SegmentID,
				WordIndex: k.WordIndex,
				Original:  original,
				Corrected: st.Corrections[k],
			})
		}
		ops = append(ops, NewOperation(CorrectText{Items: items}, now))
	}

	if len(st.Duplicates) > 0 {
		items := make([]DuplicateItem, 0, len(st.Duplicates))
		for id, n := range st.Duplicates {
			items = append(items, DuplicateItem{SegmentID: id, RepeatCount: n})
		}
		sort.Slice(items, func(i, j int) bool { return items[i].SegmentID < items[j].SegmentID })
		ops = append(ops, NewOperation(DuplicateSegments{Items: items}, now))
	}

	if len(st.Order) > 0 {
		ops = append(ops, NewOperation(ReorderSegments{NewOrder: append([]int(nil), st.Order...)}, now))
	}

	if len(st.SegmentSpeeds) > 0 || st.GlobalSpeed != 1 {
		items := make([]SpeedItem, 0, len(st.SegmentSpeeds))
		for id, v := range st.SegmentSpeeds {
			items = append(items, SpeedItem{SegmentID: id, Speed: v})
		}
		sort.Slice(items, func(i, j int) bool { return items[i].SegmentID < items[j].SegmentID })

		op := SetSpeed{Items: items}
		if st.GlobalSpeed != 1 {
			g := st.GlobalSpeed
			op.GlobalSpeed = &g
		}
		ops = append(ops, NewOperation(op, now))
	}

	return ops
}

// Apply rebuilds a State from scratch by replaying ops in order against the
// current transcript. Entries referencing segments or words that do not
// exist are skipped; the number of skipped entries is returned.
//
// Deletion facets are unions, so their order is irrelevant. Corrections,
// duplication counts, order and speeds are last-write-wins.
func Apply(idx *transcript.Index, ops []Operation) (*edit.State, int) {
	if idx == nil {
		idx = transcript.NewIndex(nil)
	}
	st := edit.New()
	skipped := 0

	for _, op := range ops {
		switch p := op.Payload.(type) {
		case DeleteSegments:
			for _, id := range p.SegmentIDs {
				if !idx.Has(id) {
					skipped++
					continue
				}
				st.DeleteSegment(id)
			}

		case DeleteWords:
			for _, item := range p.Items {
				for _, wi := range item.WordIndices {
					key := transcript.WordKey{SegmentID: item.SegmentID, WordIndex: wi}
					if _, ok := idx.Word(key); !ok {
						skipped++
						continue
					}
					st.DeleteWord(key)
				}
			}

		case DeleteSilences:
			// Ids are re-derived by containment against the current transcript.
			for _, r := range p.TimeRanges {
				st.DeleteTimeRange(idx, r.Start, r.End)
			}

		case CorrectText:
			for _, item := range p.Items {
				key := transcript.WordKey{SegmentID: item.SegmentID, WordIndex: item.WordIndex}
				if _, ok := idx.Word(key); !ok {
					skipped++
					continue
				}
				st.Correct(key, item.Corrected)
			}

		case DuplicateSegments:
			for _, item := range p.Items {
				if !idx.Has(item.SegmentID) {
					skipped++
					continue
				}
				if err := st.SetRepeat(item.SegmentID, item.RepeatCount); err != nil {
					skipped++
				}
			}

		case ReorderSegments:
			st.SetOrder(p.NewOrder)

		case SetSpeed:
			for _, item := range p.Items {
				if !idx.Has(item.SegmentID) {
					skipped++
					continue
				}
				if err := st.SetSegmentSpeed(item.SegmentID, item.Speed); err != nil {
					skipped++
				}
			}
			if p.GlobalSpeed != nil {
				if err := st.SetGlobalSpeed(*p.GlobalSpeed); err != nil {
					skipped++
				}
			}

		default:
			skipped++
		}
	}

	return st, skipped
}

// Concat returns a new slice holding a followed by b.
func Concat(a, b []Operation) []Operation {
	out := make([]Operation, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
