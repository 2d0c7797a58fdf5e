package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-cut/internal/edl"
	"github.com/heimdex/heimdex-cut/internal/editor"
	"github.com/heimdex/heimdex-cut/internal/export"
	"github.com/heimdex/heimdex-cut/internal/interval"
	"github.com/heimdex/heimdex-cut/internal/playback"
	"github.com/heimdex/heimdex-cut/internal/timeline"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

var compileCmd = &cobra.Command{
	Use:   "compile <transcript-file>",
	Short: "Compile a transcript and EDL into playback data",
	Long: `Replay an EDL against a transcript offline and print the result.

Formats:
  skip      skip intervals and kept ranges as JSON (default)
  timeline  composed timeline clips as JSON
  cmx3600   CMX3600 edit decision list`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

var (
	compileEDL     string
	compileMode    string
	compileFormat  string
	compileFPS     float64
	compileMedia   string
	compileEpsilon float64
)

func init() {
	compileCmd.Flags().StringVarP(&compileEDL, "edl", "e", "", "EDL JSON file (document or operations array)")
	compileCmd.Flags().StringVarP(&compileMode, "mode", "m", "", "playback mode: edited, original, composed (default: inferred from the EDL)")
	compileCmd.Flags().StringVarP(&compileFormat, "format", "f", "skip", "output format: skip, timeline, cmx3600")
	compileCmd.Flags().Float64Var(&compileFPS, "fps", export.DefaultFrameRate, "frame rate for cmx3600 output")
	compileCmd.Flags().StringVar(&compileMedia, "media", "", "source media path written into cmx3600 events")
	compileCmd.Flags().Float64Var(&compileEpsilon, "epsilon", interval.DefaultEpsilon, "merge tolerance in seconds")

	rootCmd.AddCommand(compileCmd)
}

type compileOutput struct {
	Mode           playback.Mode       `json:"mode"`
	SkipIntervals  []interval.Interval `json:"skip_intervals"`
	KeptRanges     []interval.Interval `json:"kept_ranges"`
	Duration       float64             `json:"duration"`
	EditedDuration float64             `json:"edited_duration"`
	Skipped        int                 `json:"skipped_entries,omitempty"`
}

type timelineOutput struct {
	Duration float64         `json:"duration"`
	Clips    []timeline.Clip `json:"clips"`
}

func runCompile(cmd *cobra.Command, args []string) error {
	tr, err := transcript.LoadFile(args[0])
	if err != nil {
		return err
	}

	var ops []edl.Operation
	if compileEDL != "" {
		if ops, err = readOperations(compileEDL); err != nil {
			return err
		}
	}

	ed := editor.New(tr, editor.Options{Epsilon: compileEpsilon, Logger: slog.Default()})
	skipped := ed.Load(ops)
	if skipped > 0 {
		slog.Warn("EDL entries reference content missing from the transcript", "skipped", skipped)
	}

	mode := ed.Mode()
	if compileMode != "" {
		if mode, err = playback.ParseMode(compileMode); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(compileFormat) {
	case "skip":
		skip := ed.SkipIntervals(mode)
		duration := ed.Index().Duration()
		res := compileOutput{
			Mode:           mode,
			SkipIntervals:  nonNil(skip),
			KeptRanges:     nonNil(interval.Complement(skip, duration)),
			Duration:       duration,
			EditedDuration: duration - interval.Total(skip),
			Skipped:        skipped,
		}
		if mode == playback.ModeComposed {
			res.EditedDuration = ed.Timeline().Duration()
		}
		return writeJSON(out, res)
	case "timeline":
		tl := ed.Timeline()
		return writeJSON(out, timelineOutput{Duration: tl.Duration(), Clips: tl.Clips})
	case "cmx3600", "edl":
		title := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		media := compileMedia
		if media == "" {
			media = title
		}
		events := export.FromEditor(ed, mode, title, media)
		_, err := io.WriteString(out, export.GenerateEDL(events, title, compileFPS))
		return err
	default:
		return fmt.Errorf("unknown format %q", compileFormat)
	}
}

// readOperations accepts either a saved EDL document or a bare operations
// array.
func readOperations(path string) ([]edl.Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read EDL: %w", err)
	}
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		var ops []edl.Operation
		if err := json.Unmarshal(data, &ops); err != nil {
			return nil, fmt.Errorf("decode EDL operations: %w", err)
		}
		return ops, nil
	}

	var doc edl.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode EDL document: %w", err)
	}
	return doc.Operations, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nonNil(in []interval.Interval) []interval.Interval {
	if in == nil {
		return []interval.Interval{}
	}
	return in
}
