package export

import (
	"fmt"
	"math"
	"strings"
)

const DefaultFrameRate = 30.0

// GenerateEDL renders events as CMX3600 text. Record times are laid end to
// end in event order; events whose speed is not 1 carry an M2 motion line.
func GenerateEDL(events []Event, title string, frameRate float64) string {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", CommentText(title))}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordFrames := 0
	for i, ev := range events {
		srcIn := toFrames(ev.SourceIn, fps)
		srcOut := toFrames(ev.SourceOut, fps)
		duration := toFrames(ev.RecordDuration(), fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V",
				framesToTimecode(srcIn, fps), framesToTimecode(srcOut, fps),
				framesToTimecode(recordFrames, fps), framesToTimecode(recordFrames+duration, fps)),
		)
		if ev.Speed > 0 && math.Abs(ev.Speed-1) > 1e-9 {
			lines = append(lines, fmt.Sprintf("M2   %-8s %05.1f    %s", "AX", ev.Speed*float64(fps), framesToTimecode(srcIn, fps)))
		}
		lines = append(lines,
			fmt.Sprintf("* FROM CLIP NAME:  %s", CommentText(ev.ClipName)),
			fmt.Sprintf("* MEDIA PATH:  %s", CommentText(ev.MediaPath)),
		)

		recordFrames += duration
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func toFrames(seconds float64, fps int) int {
	if seconds < 0 {
		return 0
	}
	return int(math.Round(seconds * float64(fps)))
}

func framesToTimecode(totalFrames int, fps int) string {
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}

func secondsToTimecode(seconds float64, fps int) string {
	return framesToTimecode(toFrames(seconds, fps), fps)
}
