// Package export renders an edit as a CMX3600 edit decision list that
// third-party editors can conform against the untouched source media.
package export

// Event is one record in the exported list: a source range played at Speed.
// Times are in seconds of source media.
type Event struct {
	ClipName  string
	MediaPath string
	SourceIn  float64
	SourceOut float64
	Speed     float64
}

// RecordDuration is how long the event occupies on the output timeline.
func (e Event) RecordDuration() float64 {
	speed := e.Speed
	if speed <= 0 {
		speed = 1
	}
	return (e.SourceOut - e.SourceIn) / speed
}

type Request struct {
	Format    string  `json:"format"`
	FrameRate float64 `json:"frame_rate"`
	OutputDir string  `json:"output_dir"`
	Mode      string  `json:"mode,omitempty"`
}

type Result struct {
	OutputPath string `json:"output_path"`
	EventCount int    `json:"event_count"`
	FileSize   int64  `json:"file_size"`
}
