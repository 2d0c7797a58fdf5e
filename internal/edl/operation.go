// Package edl encodes the edit-decision list: the persisted, versioned list
// of operations that reconstructs an edit State over a transcript.
package edl

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/heimdex/heimdex-cut/internal/interval"
)

type Type string

const (
	TypeDeleteSegments    Type = "delete_segments"
	TypeDeleteWords       Type = "delete_words"
	TypeDeleteSilences    Type = "delete_silences"
	TypeCorrectText       Type = "correct_text"
	TypeDuplicateSegments Type = "duplicate_segments"
	TypeReorderSegments   Type = "reorder_segments"
	TypeSetSpeed          Type = "set_speed"
)

// Payload is implemented by every operation variant.
type Payload interface {
	Type() Type
}

// Operation is one persisted edit. Exactly one payload variant is set.
type Operation struct {
	CreatedAt string
	Payload   Payload
}

// Type returns the payload tag.
func (o Operation) Type() Type {
	if o.Payload == nil {
		return ""
	}
	return o.Payload.Type()
}

type DeleteSegments struct {
	SegmentIDs []int `json:"segment_ids"`
}

type WordItem struct {
	SegmentID   int   `json:"segment_id"`
	WordIndices []int `json:"word_indices"`
}

type DeleteWords struct {
	Items []WordItem `json:"items"`
}

type DeleteSilences struct {
	Threshold  float64             `json:"threshold"`
	TimeRanges []interval.Interval `json:"time_ranges"`
}

type CorrectionItem struct {
	SegmentID int    `json:"segment_id"`
	WordIndex int    `json:"word_index"`
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
}

type CorrectText struct {
	Items []CorrectionItem `json:"items"`
}

type DuplicateItem struct {
	SegmentID      int  `json:"segment_id"`
	RepeatCount    int  `json:"repeat_count"`
	InsertPosition *int `json:"insert_position,omitempty"`
}

type DuplicateSegments struct {
	Items []DuplicateItem `json:"items"`
}

type ReorderSegments struct {
	NewOrder []int `json:"new_order"`
}

type SpeedItem struct {
	SegmentID int     `json:"segment_id"`
	Speed     float64 `json:"speed"`
}

type SetSpeed struct {
	Items       []SpeedItem `json:"items"`
	GlobalSpeed *float64    `json:"global_speed,omitempty"`
}

// Unknown keeps operations of types this package does not understand so
// they survive a load/save round trip. Replay ignores them.
type Unknown struct {
	Tag Type
	Raw json.RawMessage
}

func (DeleteSegments) Type() Type    { return TypeDeleteSegments }
func (DeleteWords) Type() Type       { return TypeDeleteWords }
func (DeleteSilences) Type() Type    { return TypeDeleteSilences }
func (CorrectText) Type() Type       { return TypeCorrectText }
func (DuplicateSegments) Type() Type { return TypeDuplicateSegments }
func (ReorderSegments) Type() Type   { return TypeReorderSegments }
func (SetSpeed) Type() Type          { return TypeSetSpeed }
func (u Unknown) Type() Type         { return u.Tag }

// NewOperation stamps a payload with an ISO-8601 creation time.
func NewOperation(p Payload, now time.Time) Operation {
	return Operation{CreatedAt: now.UTC().Format(time.RFC3339), Payload: p}
}

type envelope struct {
	Type      Type   `json:"type"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (o Operation) MarshalJSON() ([]byte, error) {
	if u, ok := o.Payload.(Unknown); ok && len(u.Raw) > 0 {
		return u.Raw, nil
	}
	if o.Payload == nil {
		return nil, fmt.Errorf("operation has no payload")
	}

	body, err := json.Marshal(o.Payload)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}

	tag, _ := json.Marshal(o.Payload.Type())
	fields["type"] = tag
	if o.CreatedAt != "" {
		ts, _ := json.Marshal(o.CreatedAt)
		fields["created_at"] = ts
	}
	return json.Marshal(fields)
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode operation envelope: %w", err)
	}
	if env.Type == "" {
		return fmt.Errorf("operation is missing type")
	}

	var (
		p   Payload
		err error
	)
	switch env.Type {
	case TypeDeleteSegments:
		p, err = decodePayload[DeleteSegments](data)
	case TypeDeleteWords:
		p, err = decodePayload[DeleteWords](data)
	case TypeDeleteSilences:
		p, err = decodePayload[DeleteSilences](data)
	case TypeCorrectText:
		p, err = decodePayload[CorrectText](data)
	case TypeDuplicateSegments:
		p, err = decodePayload[DuplicateSegments](data)
	case TypeReorderSegments:
		p, err = decodePayload[ReorderSegments](data)
	case TypeSetSpeed:
		p, err = decodePayload[SetSpeed](data)
	default:
		p = Unknown{Tag: env.Type, Raw: append(json.RawMessage(nil), data...)}
	}
	if err != nil {
		return fmt.Errorf("decode %s operation: %w", env.Type, err)
	}

	o.CreatedAt = env.CreatedAt
	o.Payload = p
	return nil
}

func decodePayload[T Payload](data []byte) (Payload, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Document is the versioned EDL exchanged with the persistence API.
type Document struct {
	Version    int         `json:"version"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Operations []Operation `json:"operations"`
}
