package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/heimdex/heimdex-cut/internal/logging"
	"github.com/heimdex/heimdex-cut/internal/transcript"
)

const (
	maxStderrBytes = 8 * 1024

	DefaultModule  = "heimdex_media_pipelines"
	DefaultTimeout = 30 * time.Minute
)

// Runner produces a transcript for a media file.
type Runner interface {
	Transcribe(ctx context.Context, mediaPath, outPath string) (*transcript.Transcript, RunResult, error)
}

type Config struct {
	PythonPath string // empty = auto-detect
	ModuleName string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// SubprocessRunner runs `python -m <module> speech pipeline`.
type SubprocessRunner struct {
	cfg    Config
	python string
}

func NewRunner(cfg Config) (*SubprocessRunner, error) {
	python, err := resolvePython(cfg.PythonPath)
	if err != nil {
		return nil, fmt.Errorf("cannot locate python: %w", err)
	}
	if cfg.ModuleName == "" {
		cfg.ModuleName = DefaultModule
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cfg.Logger.Info("speech runner initialised", "python", python, "module", cfg.ModuleName)
	return &SubprocessRunner{cfg: cfg, python: python}, nil
}

func (r *SubprocessRunner) Transcribe(ctx context.Context, mediaPath, outPath string) (*transcript.Transcript, RunResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	result := r.exec(ctx, outPath, "speech", "pipeline", "--video", mediaPath, "--out", outPath)
	if !result.IsSuccess() {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, result, fmt.Errorf("%w: timed out after %s", ErrFailed, r.cfg.Timeout)
		}
		return nil, result, fmt.Errorf("%w: exit %d: %s", ErrFailed, result.ExitCode, truncate(result.StderrTail, 512))
	}

	tr, err := ReadOutput(outPath)
	if err != nil {
		return nil, result, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	return tr, result, nil
}

// ReadOutput loads a speech pipeline result file.
func ReadOutput(path string) (*transcript.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read output file %s: %w", logging.SanitizePath(path), err)
	}
	var out SpeechOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cannot parse output JSON: %w", err)
	}
	return out.Transcript()
}

func (r *SubprocessRunner) exec(ctx context.Context, outPath string, args ...string) RunResult {
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		r.cfg.Logger.Error("cannot create output dir", "error", err)
		return RunResult{ExitCode: -1, StderrTail: err.Error(), Duration: time.Since(start)}
	}

	cmdArgs := append([]string{"-m", r.cfg.ModuleName}, args...)
	cmd := exec.CommandContext(ctx, r.python, cmdArgs...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	cmd.Stdout = io.Discard // results go to the --out file

	r.cfg.Logger.Info("executing speech pipeline", "module", r.cfg.ModuleName, "output", logging.SanitizePath(outPath))

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	stderrTail := stderrBuf.String()
	if exitCode != 0 {
		r.cfg.Logger.Warn("speech pipeline failed",
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrTail, 512),
		)
	} else {
		r.cfg.Logger.Info("speech pipeline succeeded", "duration_ms", elapsed.Milliseconds())
	}

	return RunResult{
		ExitCode:   exitCode,
		OutputPath: outPath,
		StderrTail: stderrTail,
		Duration:   elapsed,
	}
}

func resolvePython(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured python %q not found", preferred)
	}
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no python binary found on PATH (tried python3, python)")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter keeps only the last limit bytes written.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-lw.limit:]...)
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
