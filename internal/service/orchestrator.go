package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dandantas/disloc/internal/config"
	"github.com/dandantas/disloc/internal/disloc"
	"github.com/dandantas/disloc/internal/lineofsight"
	"github.com/dandantas/disloc/internal/model"
	"github.com/dandantas/disloc/internal/runner"
	"github.com/dandantas/disloc/internal/workspace"
	"github.com/dandantas/disloc/pkg/logctx"
)

// OutputSuffix is appended to the request's output prefix
const OutputSuffix = ".csv"

// LOSSuffix names the line-of-sight table written next to the output
const LOSSuffix = "_los.csv"

// ProcessRunner executes the disloc binary under a deadline
type ProcessRunner interface {
	Run(ctx context.Context, spec runner.Spec) model.ExecutionResult
}

// Fetcher downloads remote input documents
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ManifestRecorder archives finished manifests
type ManifestRecorder interface {
	Create(ctx context.Context, record *model.ManifestRecord) error
}

// Orchestrator runs one disloc job end to end: workspace, input, process,
// line-of-sight post-processing and the persisted summary
type Orchestrator struct {
	cfg        *config.Config
	executable string
	allocator  *workspace.Allocator
	runner     ProcessRunner
	projector  lineofsight.Projector
	fetcher    Fetcher
	recorder   ManifestRecorder
}

// NewOrchestrator creates a new orchestrator. fetcher may be nil, in which
// case inputurl requests are rejected.
func NewOrchestrator(
	cfg *config.Config,
	allocator *workspace.Allocator,
	processRunner ProcessRunner,
	projector lineofsight.Projector,
	fetcher Fetcher,
) *Orchestrator {
	// Relative binary paths are resolved once; jobs launch from their workspace
	executable := cfg.DislocBinary
	if strings.ContainsRune(executable, filepath.Separator) {
		if abs, err := filepath.Abs(executable); err == nil {
			executable = abs
		}
	}

	return &Orchestrator{
		cfg:        cfg,
		executable: executable,
		allocator:  allocator,
		runner:     processRunner,
		projector:  projector,
		fetcher:    fetcher,
	}
}

// SetRecorder enables archiving of every persisted manifest
func (o *Orchestrator) SetRecorder(recorder ManifestRecorder) {
	o.recorder = recorder
}

// Run executes req and returns the persisted manifest. A failed execution
// is not an error: it yields a manifest with status failed. Errors are
// returned for rejected requests and filesystem failures.
func (o *Orchestrator) Run(ctx context.Context, req model.Request) (*model.ResultManifest, error) {
	record, err := o.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return &record.Manifest, nil
}

// Execute is Run returning the archived form of the manifest
func (o *Orchestrator) Execute(ctx context.Context, req model.Request) (*model.ManifestRecord, error) {
	start := time.Now()

	if req.CorrelationID != "" {
		ctx = logctx.WithCorrelationID(ctx, req.CorrelationID)
	}
	ctx, correlationID := logctx.Ensure(ctx)
	logger := logctx.Logger(ctx)

	if !req.HasInput() {
		return nil, model.ErrInputMissing
	}

	params, err := o.resolveParameters(req)
	if err != nil {
		return nil, err
	}

	prefix := req.OutputPrefix()
	if prefix != filepath.Base(prefix) || prefix == "." || prefix == ".." {
		return nil, fmt.Errorf("%w: output=%q", model.ErrInvalidParameter, prefix)
	}

	input, err := o.resolveInput(ctx, req)
	if err != nil {
		return nil, err
	}

	dir, err := o.workspaceFor(req)
	if err != nil {
		return nil, err
	}

	job := model.Job{
		ID:           filepath.Base(dir),
		WorkspaceDir: dir,
		InputPath:    filepath.Join(dir, disloc.InputFileName),
		OutputPath:   filepath.Join(dir, prefix+OutputSuffix),
	}
	logger = logger.With("job_id", job.ID)

	logger.Info("Starting disloc job",
		"workspace", dir,
		"event_id", req.EventID,
	)

	if err := os.WriteFile(job.InputPath, []byte(input), 0o644); err != nil {
		return nil, fmt.Errorf("%w: write input: %v", model.ErrFilesystem, err)
	}

	result := o.runner.Run(ctx, runner.Spec{
		Executable: o.executable,
		Input:      disloc.InputFileName,
		Output:     prefix + OutputSuffix,
		Dir:        dir,
		Deadline:   req.Deadline,
	})

	manifest := model.ResultManifest{
		Status:     model.StatusSuccess,
		Parameters: params,
	}

	if !result.Succeeded() {
		logger.Error("Disloc execution failed",
			"detail", result.ErrorDetail,
			"timed_out", result.TimedOut(),
		)
		manifest.Status = model.StatusFailed
		manifest.Error = o.failureMarker(result)
	} else {
		geom := lineofsight.Geometry{
			ElevationDeg: params.Elevation,
			AzimuthDeg:   params.Azimuth,
			WavelengthCm: lineofsight.WavelengthCm(params.RadarFrequency),
		}
		box, err := o.projector.Project(ctx, geom, job.OutputPath, filepath.Join(dir, prefix+LOSSuffix))
		if err != nil {
			logger.Error("Line-of-sight projection failed", "error", err.Error())
			manifest.Status = model.StatusFailed
			manifest.Error = model.ErrorMarkerLineOfSight
		} else {
			manifest.LatLonBox = &box
		}
	}

	if manifest.Output, err = o.outputList(dir, req.API); err != nil {
		return nil, err
	}

	if err := WriteSummary(dir, &manifest); err != nil {
		return nil, err
	}

	record := &model.ManifestRecord{
		JobID:         job.ID,
		CorrelationID: correlationID,
		EventID:       req.EventID,
		Workspace:     dir,
		CreatedAt:     time.Now().UTC(),
		DurationMs:    time.Since(start).Milliseconds(),
		ExecutionErr:  result.ErrorDetail,
		Manifest:      manifest,
	}

	if o.recorder != nil {
		if err := o.recorder.Create(ctx, record); err != nil {
			logger.Error("Failed to archive manifest", "error", err.Error())
		}
	}

	logger.Info("Disloc job completed",
		"status", manifest.Status,
		"files", len(manifest.Output),
		"duration_ms", record.DurationMs,
	)

	return record, nil
}

// resolveParameters applies the request overrides on top of the defaults
func (o *Orchestrator) resolveParameters(req model.Request) (model.Parameters, error) {
	params := model.Parameters{
		Elevation:      o.cfg.DefaultElevation,
		Azimuth:        o.cfg.DefaultAzimuth,
		RadarFrequency: o.cfg.DefaultRadarFrequency,
	}

	overrides := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{model.OptionElevation, req.Elevation, &params.Elevation},
		{model.OptionAzimuth, req.Azimuth, &params.Azimuth},
		{model.OptionRadarFrequency, req.RadarFrequency, &params.RadarFrequency},
	}
	for _, ov := range overrides {
		if ov.raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(ov.raw), 64)
		if err != nil {
			return params, fmt.Errorf("%w: %s=%q", model.ErrInvalidParameter, ov.name, ov.raw)
		}
		*ov.dst = v
	}

	if params.RadarFrequency <= 0 {
		return params, fmt.Errorf("%w: %s must be positive", model.ErrInvalidParameter, model.OptionRadarFrequency)
	}

	return params, nil
}

// workspaceFor returns the request's reuse directory, confined to the
// output root, or allocates a fresh one
func (o *Orchestrator) workspaceFor(req model.Request) (string, error) {
	if req.WorkDir == "" {
		if o.cfg.ExclusiveDirs {
			return o.allocator.AllocateExclusive()
		}
		return o.allocator.Allocate()
	}

	root, err := filepath.Abs(o.allocator.Root())
	if err != nil {
		return "", fmt.Errorf("%w: resolve output root: %v", model.ErrFilesystem, err)
	}

	dir := req.WorkDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	dir = filepath.Clean(dir)

	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: workdir %q is outside the output root", model.ErrInvalidParameter, req.WorkDir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create workdir: %v", model.ErrFilesystem, err)
	}
	return dir, nil
}

// resolveInput picks the input source: a file replaces the inline text, a
// URL is used only when no file is given. Fault model documents are
// rendered to disloc input.
func (o *Orchestrator) resolveInput(ctx context.Context, req model.Request) (string, error) {
	switch {
	case req.InputFile != "":
		if disloc.IsModelFile(req.InputFile) {
			m, err := disloc.LoadModel(req.InputFile)
			if err != nil {
				return "", err
			}
			return disloc.RenderInput(m)
		}
		data, err := os.ReadFile(req.InputFile)
		if err != nil {
			return "", fmt.Errorf("%w: read input file: %v", model.ErrFilesystem, err)
		}
		return string(data), nil

	case req.InputURL != "":
		if o.fetcher == nil {
			return "", fmt.Errorf("%w: inputurl is not supported", model.ErrInvalidParameter)
		}
		data, err := o.fetcher.Fetch(ctx, req.InputURL)
		if err != nil {
			return "", fmt.Errorf("fetch input: %w", err)
		}
		if ext := urlExt(req.InputURL); disloc.IsModelFile(ext) {
			m, err := disloc.ParseModel(data, ext)
			if err != nil {
				return "", err
			}
			return disloc.RenderInput(m)
		}
		return string(data), nil

	default:
		return req.Input, nil
	}
}

func (o *Orchestrator) failureMarker(result model.ExecutionResult) string {
	switch {
	case result.TimedOut():
		return model.ErrorMarkerDisloc + ": " + model.TimeoutDetail
	case o.cfg.ExposeStderr && result.ErrorDetail != "":
		return model.ErrorMarkerDisloc + ": " + result.ErrorDetail
	default:
		return model.ErrorMarkerDisloc
	}
}

// outputList enumerates the workspace plus the summary file, as bare names
// for API callers and as links otherwise
func (o *Orchestrator) outputList(dir string, api bool) ([]string, error) {
	names, err := workspace.List(dir)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(names, model.SummaryFileName) {
		names = append(names, model.SummaryFileName)
		slices.Sort(names)
	}

	if api {
		return names, nil
	}

	base := strings.TrimRight(o.cfg.URLBase, "/") + "/" + filepath.Base(dir) + "/"
	links := make([]string, len(names))
	for i, name := range names {
		links[i] = base + name
	}
	return links, nil
}

// WriteSummary persists manifest as summary.json inside dir. The document
// is written to a temporary file first and renamed into place.
func WriteSummary(dir string, manifest *model.ResultManifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".summary-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create summary: %v", model.ErrFilesystem, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write summary: %v", model.ErrFilesystem, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close summary: %v", model.ErrFilesystem, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		slog.Debug("Could not relax summary permissions", "path", tmpName, "error", err.Error())
	}

	if err := os.Rename(tmpName, filepath.Join(dir, model.SummaryFileName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename summary: %v", model.ErrFilesystem, err)
	}
	return nil
}

// ReadSummary loads the summary.json persisted in dir
func ReadSummary(dir string) (*model.ResultManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, model.SummaryFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: read summary: %v", model.ErrFilesystem, err)
	}

	var manifest model.ResultManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse summary: %w", err)
	}
	return &manifest, nil
}

func urlExt(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}
