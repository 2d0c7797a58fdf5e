package edl

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/heimdex/heimdex-cut/internal/edit"
	"github.com/heimdex/heimdex-cut/internal/interval"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testIndex() *transcript.Index {
	return transcript.NewIndex(&transcript.Transcript{
		Duration: 20,
		Segments: []transcript.Segment{
			{ID: 1, Start: 0, End: 4, Text: "one two", Words: []transcript.Word{
				{Text: "one", Start: 0, End: 2}, {Text: "two", Start: 2, End: 4},
			}},
			{ID: 2, Start: 4, End: 10, Text: "three four five", Words: []transcript.Word{
				{Text: "three", Start: 4, End: 6}, {Text: "four", Start: 6, End: 8}, {Text: "five", Start: 8, End: 10},
			}},
			{ID: 3, Start: 12, End: 20, Text: "six", Words: []transcript.Word{
				{Text: "six", Start: 12, End: 20},
			}},
		},
	})
}

func TestOperation_JSONShape(t *testing.T) {
	op := NewOperation(DeleteWords{Items: []WordItem{{SegmentID: 2, WordIndices: []int{0, 2}}}}, fixedNow)

	data, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if raw["type"] != "delete_words" {
		t.Errorf("type = %v, want delete_words", raw["type"])
	}
	if raw["created_at"] != "2026-03-01T12:00:00Z" {
		t.Errorf("created_at = %v", raw["created_at"])
	}
	items, ok := raw["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("items = %v", raw["items"])
	}
}

func TestOperation_DecodeAllTypes(t *testing.T) {
	doc := `[
		{"type": "delete_segments", "segment_ids": [1], "created_at": "2026-01-01T00:00:00"},
		{"type": "delete_words", "items": [{"segment_id": 2, "word_indices": [1]}]},
		{"type": "delete_silences", "threshold": 0.5, "time_ranges": [{"start": 11, "end": 20.5}]},
		{"type": "correct_text", "items": [{"segment_id": 2, "word_index": 0, "original": "three", "corrected": "3"}]},
		{"type": "duplicate_segments", "items": [{"segment_id": 2, "repeat_count": 2, "insert_position": 0}]},
		{"type": "reorder_segments", "new_order": [3, 1]},
		{"type": "set_speed", "items": [{"segment_id": 1, "speed": 1.5}], "global_speed": 2},
		{"type": "timeline", "clips": []}
	]`

	var ops []Operation
	if err := json.Unmarshal([]byte(doc), &ops); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	want := []Type{TypeDeleteSegments, TypeDeleteWords, TypeDeleteSilences, TypeCorrectText,
		TypeDuplicateSegments, TypeReorderSegments, TypeSetSpeed, Type("timeline")}
	for i, typ := range want {
		if ops[i].Type() != typ {
			t.Errorf("ops[%d].Type() = %q, want %q", i, ops[i].Type(), typ)
		}
	}
	if ops[0].CreatedAt != "2026-01-01T00:00:00" {
		t.Errorf("created_at not preserved: %q", ops[0].CreatedAt)
	}

	dup := ops[4].Payload.(DuplicateSegments)
	if dup.Items[0].InsertPosition == nil || *dup.Items[0].InsertPosition != 0 {
		t.Errorf("insert_position not decoded: %+v", dup.Items[0])
	}

	out, err := json.Marshal(ops[7])
	if err != nil {
		t.Fatalf("Marshal(unknown) error = %v", err)
	}
	if !strings.Contains(string(out), `"clips"`) {
		t.Errorf("unknown operation not preserved: %s", out)
	}
}

func TestOperation_MissingType(t *testing.T) {
	var op Operation
	if err := json.Unmarshal([]byte(`{"segment_ids": [1]}`), &op); err == nil {
		t.Error("expected error for operation without type")
	}
}

func TestApply_ReplayFromEmpty(t *testing.T) {
	ops := []Operation{
		NewOperation(DeleteSegments{SegmentIDs: []int{1, 99}}, fixedNow),
		NewOperation(DeleteWords{Items: []WordItem{{SegmentID: 2, WordIndices: []int{1, 7}}, {SegmentID: 42, WordIndices: []int{0}}}}, fixedNow),
		NewOperation(CorrectText{Items: []CorrectionItem{{SegmentID: 2, WordIndex: 0, Corrected: "3"}}}, fixedNow),
		NewOperation(CorrectText{Items: []CorrectionItem{{SegmentID: 2, WordIndex: 0, Corrected: "THREE"}}}, fixedNow),
	}

	st, skipped := Apply(testIndex(), ops)

	if !st.DeletedSegments[1] || len(st.DeletedSegments) != 1 {
		t.Errorf("DeletedSegments = %v, want {1}", st.DeletedSegments)
	}
	if !st.DeletedWords[transcript.WordKey{SegmentID: 2, WordIndex: 1}] || len(st.DeletedWords) != 1 {
		t.Errorf("DeletedWords = %v, want {2-1}", st.DeletedWords)
	}
	if got := st.Corrections[transcript.WordKey{SegmentID: 2, WordIndex: 0}]; got != "THREE" {
		t.Errorf("correction = %q, want last write THREE", got)
	}
	if skipped != 3 {
		t.Errorf("skipped = %d, want 3", skipped)
	}
}

func TestApply_DeleteSilencesRederivesByContainment(t *testing.T) {
	ops := []Operation{
		NewOperation(DeleteSilences{Threshold: 1, TimeRanges: []interval.Interval{{Start: 11, End: 20}, {Start: 5.5, End: 8.5}}}, fixedNow),
	}

	st, _ := Apply(testIndex(), ops)

	if !st.DeletedSegments[3] {
		t.Error("segment 3 fully inside [11,20] should be deleted")
	}
	if st.DeletedSegments[2] {
		t.Error("segment 2 only partially covered should not be deleted")
	}
	if !st.DeletedWords[transcript.WordKey{SegmentID: 2, WordIndex: 1}] {
		t.Error("word 2-1 [6,8] inside [5.5,8.5] should be deleted")
	}
}

func TestApply_CompositionFacets(t *testing.T) {
	g := 1.25
	ops := []Operation{
		NewOperation(DuplicateSegments{Items: []DuplicateItem{{SegmentID: 2, RepeatCount: 3}, {SegmentID: 1, RepeatCount: 0}, {SegmentID: 50, RepeatCount: 2}}}, fixedNow),
		NewOperation(ReorderSegments{NewOrder: []int{3, 77, 1}}, fixedNow),
		NewOperation(SetSpeed{Items: []SpeedItem{{SegmentID: 1, Speed: 2}, {SegmentID: 2, Speed: -1}}, GlobalSpeed: &g}, fixedNow),
	}

	st, skipped := Apply(testIndex(), ops)

	if st.RepeatOf(2) != 3 || st.RepeatOf(1) != 1 {
		t.Errorf("repeats = %v", st.Duplicates)
	}
	if len(st.Order) != 3 || st.Order[1] != 77 {
		t.Errorf("order should be stored unvalidated, got %v", st.Order)
	}
	if st.SpeedOf(1) != 2 || st.SpeedOf(2) != 1.25 {
		t.Errorf("speeds = %v global %v", st.SegmentSpeeds, st.GlobalSpeed)
	}
	if skipped != 3 {
		t.Errorf("skipped = %d, want 3", skipped)
	}
}

func TestEncodeApply_RoundTrip(t *testing.T) {
	idx := testIndex()
	st := edit.New()
	st.DeleteSegment(3)
	st.DeleteWord(transcript.WordKey{SegmentID: 2, WordIndex: 2})
	st.DeleteWord(transcript.WordKey{SegmentID: 2, WordIndex: 0})
	st.DeleteWord(transcript.WordKey{SegmentID: 1, WordIndex: 1})
	st.Correct(transcript.WordKey{SegmentID: 1, WordIndex: 0}, "uno")
	st.SetRepeat(2, 2)
	st.SetOrder([]int{2, 1})
	st.SetSegmentSpeed(1, 0.5)
	st.SetGlobalSpeed(1.5)
	st.Selection[transcript.WordKey{SegmentID: 1, WordIndex: 0}] = true

	ops := Encode(st, idx, fixedNow)

	data, err := json.Marshal(ops)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded []Operation
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	got, skipped := Apply(idx, decoded)
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if !got.Equal(st) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, st)
	}
	if len(got.Selection) != 0 {
		t.Error("selection must not be persisted")
	}

	words := ops[1].Payload.(DeleteWords)
	if len(words.Items) != 2 || words.Items[1].SegmentID != 2 || len(words.Items[1].WordIndices) != 2 {
		t.Errorf("words not grouped by segment: %+v", words.Items)
	}
	corr := ops[2].Payload.(CorrectText)
	if corr.Items[0].Original != "one" {
		t.Errorf("original text = %q, want one", corr.Items[0].Original)
	}
}

func TestEncode_EmptyState(t *testing.T) {
	if ops := Encode(edit.New(), testIndex(), fixedNow); len(ops) != 0 {
		t.Errorf("Encode(empty) = %d ops, want 0", len(ops))
	}
}

func TestDecodeSuggestion_FlatWinsOverPreview(t *testing.T) {
	data := `{
		"action_id": "action_1",
		"action": "delete_segments",
		"description": "drop filler",
		"preview": {"segments_to_delete": [1, 2], "words_to_delete": [], "time_ranges_to_delete": []},
		"segments_to_delete": [3]
	}`

	s, err := DecodeSuggestion([]byte(data), fixedNow)
	if err != nil {
		t.Fatalf("DecodeSuggestion() error = %v", err)
	}
	if len(s.Preview.Segments) != 1 || s.Preview.Segments[0] != 3 {
		t.Errorf("preview segments = %v, want [3]", s.Preview.Segments)
	}
	if len(s.Operations) != 1 || s.Operations[0].Type() != TypeDeleteSegments {
		t.Fatalf("operations = %+v", s.Operations)
	}
}

func TestDecodeSuggestion_NestedOnly(t *testing.T) {
	data := `{"action": "delete_words", "preview": {"words_to_delete": [{"segment_id": 2, "word_indices": [0, 1]}]}}`

	s, err := DecodeSuggestion([]byte(data), fixedNow)
	if err != nil {
		t.Fatalf("DecodeSuggestion() error = %v", err)
	}
	if keys := s.Preview.WordKeys(); len(keys) != 2 {
		t.Errorf("word keys = %v, want 2", keys)
	}
	if !s.Actionable() {
		t.Error("suggestion should be actionable")
	}
}

func TestDecodeSuggestion_Kinds(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantType Type
		wantOps  int
	}{
		{"silences", `{"action": "delete_silences", "threshold": 0.8, "time_ranges_to_delete": [{"start": 1, "end": 2}]}`, TypeDeleteSilences, 1},
		{"duplicate", `{"action": "duplicate_segments", "duplicate_items": [{"segment_id": 1, "repeat_count": 2}]}`, TypeDuplicateSegments, 1},
		{"reorder", `{"action": "reorder_segments", "new_segment_order": [3, 2, 1]}`, TypeReorderSegments, 1},
		{"speed global only", `{"action": "set_speed", "global_speed": 1.5}`, TypeSetSpeed, 1},
		{"highlight with duplicates", `{"action": "highlight_segments", "highlight_segments": [2], "suggested_duplicates": [{"segment_id": 2, "repeat_count": 2}]}`, TypeDuplicateSegments, 1},
		{"no action", `{"action": "no_action"}`, "", 0},
		{"keep segments", `{"action": "keep_segments", "segments_to_delete": [2]}`, "", 0},
		{"missing action", `{"description": "nothing"}`, "", 0},
		{"empty reorder", `{"action": "reorder_segments", "new_segment_order": []}`, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := DecodeSuggestion([]byte(tt.data), fixedNow)
			if err != nil {
				t.Fatalf("DecodeSuggestion() error = %v", err)
			}
			if len(s.Operations) != tt.wantOps {
				t.Fatalf("len(Operations) = %d, want %d", len(s.Operations), tt.wantOps)
			}
			if tt.wantOps > 0 && s.Operations[0].Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", s.Operations[0].Type(), tt.wantType)
			}
		})
	}
}

func TestDecodeSuggestion_KeepSegmentsPreviewOnly(t *testing.T) {
	s, err := DecodeSuggestion([]byte(`{"action": "keep_segments", "segments_to_delete": [2, 4]}`), fixedNow)
	if err != nil {
		t.Fatalf("DecodeSuggestion() error = %v", err)
	}
	if s.Actionable() {
		t.Error("keep_segments should not be actionable")
	}
	if len(s.Preview.Segments) != 2 {
		t.Errorf("Preview.Segments = %v, want [2 4]", s.Preview.Segments)
	}
}

func TestDecodeSuggestion_Unsupported(t *testing.T) {
	if _, err := DecodeSuggestion([]byte(`{"action": "explode"}`), fixedNow); err == nil {
		t.Error("expected error for unsupported action")
	}
	if _, err := DecodeSuggestion([]byte(`not json`), fixedNow); err == nil {
		t.Error("expected error for invalid json")
	}
}
