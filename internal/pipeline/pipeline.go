// Package pipeline orchestrates a subtitle generation run: plan chunks,
// extract and confirm glossary terms, drive every chunk through the staged
// transformations under bounded concurrency, and assemble the result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"miosub/internal/chunk"
	"miosub/internal/config"
	"miosub/internal/glossary"
	"miosub/internal/logging"
	"miosub/internal/media"
	"miosub/internal/postcheck"
	"miosub/internal/reconcile"
	"miosub/internal/services"
	"miosub/internal/stage"
	"miosub/internal/subtitle"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusPreparing        Status = "preparing"
	StatusProcessing       Status = "processing"
	StatusAwaitingGlossary Status = "awaiting_glossary"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
	StatusCancelled        Status = "cancelled"
)

// ChunkStatus is the lifecycle state of one chunk within a run.
type ChunkStatus string

const (
	ChunkPending    ChunkStatus = "pending"
	ChunkProcessing ChunkStatus = "processing"
	ChunkCompleted  ChunkStatus = "completed"
	ChunkError      ChunkStatus = "error"
)

// Progress is one progress update pushed to the run's observer.
type Progress struct {
	RunID  string
	Status Status
	// ChunkStatus is set on per-chunk updates: pending at dispatch,
	// processing on each stage transition (with Stage naming the sub-stage),
	// completed or error when the chunk settles.
	ChunkStatus ChunkStatus
	Stage       stage.Name
	Chunk       int
	Total       int
	Completed   int
	Message     string
	// Terms carries the extracted glossary candidates on awaiting-glossary
	// updates so observers can present them for review.
	Terms []glossary.Item
	// Toast marks updates worth surfacing prominently rather than as a
	// progress tick.
	Toast bool
}

// ProgressFunc observes run progress. Calls are serialized.
type ProgressFunc func(Progress)

// Request describes one generation run.
type Request struct {
	MediaPath      string
	OutputPath     string
	SourceLanguage string
	TargetLanguage string
	// ActiveGlossary seeds the run's glossary; confirmed extractions merge
	// into it with existing entries winning.
	ActiveGlossary []glossary.Item
	// Bilingual renders the translation above the original in the output.
	Bilingual bool
}

// Result is the outcome of a run. Segments are present for cancelled and
// failed runs too, covering every chunk that completed.
type Result struct {
	RunID           string
	Status          Status
	Segments        []subtitle.Segment
	Glossary        []glossary.Item
	Speakers        []subtitle.SpeakerProfile
	ChunksTotal     int
	ChunksCompleted int
	Err             string
}

// Recorder persists run lifecycle transitions. Implementations must tolerate
// being called from the run goroutine only.
type Recorder interface {
	RecordStart(ctx context.Context, runID string, mediaPath string, totalChunks int) error
	RecordStatus(ctx context.Context, runID string, status Status, completed, total int, message string) error
	RecordResult(ctx context.Context, runID string, result *Result) error
}

// Runner executes generation runs one at a time.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	stages   stage.Functions
	prober   media.Prober
	audio    *media.AudioCache
	recorder Recorder
	progress ProgressFunc

	heavySem *semaphore.Weighted
	fastSem  *semaphore.Weighted

	mu   sync.Mutex
	gate *glossary.Gate

	emitMu sync.Mutex
}

// NewRunner builds a runner. prober, recorder, and progress may be nil.
func NewRunner(cfg *config.Config, logger *slog.Logger, stages stage.Functions, prober media.Prober, recorder Recorder, progress ProgressFunc) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if prober == nil {
		prober = media.FFProbe{Binary: cfg.FFprobeBinary()}
	}
	heavy := cfg.Pipeline.HeavyConcurrency
	if heavy < 1 {
		heavy = 1
	}
	fast := cfg.Pipeline.FastConcurrency
	if fast < 1 {
		fast = 1
	}
	return &Runner{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		stages:   stages,
		prober:   prober,
		audio:    media.NewAudioCache(),
		recorder: recorder,
		progress: progress,
		heavySem: semaphore.NewWeighted(int64(heavy)),
		fastSem:  semaphore.NewWeighted(int64(fast)),
	}
}

// GlossaryWaiting reports whether the current run is suspended on glossary
// confirmation.
func (r *Runner) GlossaryWaiting() bool {
	r.mu.Lock()
	gate := r.gate
	r.mu.Unlock()
	return gate != nil && gate.Waiting()
}

// ConfirmGlossary delivers the approved term list to a suspended run.
func (r *Runner) ConfirmGlossary(items []glossary.Item) error {
	r.mu.Lock()
	gate := r.gate
	r.mu.Unlock()
	if gate == nil {
		return fmt.Errorf("no run is awaiting glossary confirmation")
	}
	return gate.Confirm(items)
}

// Run executes one generation run to completion, cancellation, or terminal
// failure. Cancellation is not an error: the returned result carries
// StatusCancelled and every chunk finished before the cancel.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.New().String()
	ctx = services.WithRunID(ctx, runID)
	logger := r.logger.With(logging.String(logging.FieldRunID, runID))

	result := &Result{RunID: runID, Status: StatusPreparing}
	r.emit(Progress{RunID: runID, Status: StatusPreparing, Message: "probing source"})

	chunks, audio, err := r.prepare(ctx, logger, req)
	if err != nil {
		if services.IsCancellation(err) {
			return r.finish(ctx, logger, result, StatusCancelled, nil)
		}
		return r.finish(ctx, logger, result, StatusFailed, err)
	}
	result.ChunksTotal = len(chunks)
	if r.recorder != nil {
		if err := r.recorder.RecordStart(ctx, runID, req.MediaPath, len(chunks)); err != nil {
			logger.Warn("run persistence unavailable", logging.Error(err))
		}
	}
	if len(chunks) == 0 {
		return r.finish(ctx, logger, result, StatusCompleted, nil)
	}

	registry := subtitle.NewSpeakerRegistry()
	alloc := &stage.IDAllocator{}

	// Glossary phase: transcribe a sample of chunks, extract candidate
	// terms, and rendezvous on confirmation before any translation starts.
	transcripts := make(map[int][]subtitle.Segment)
	items, err := r.resolveGlossary(ctx, logger, req, chunks, audio, registry, alloc, transcripts)
	if err != nil {
		if services.IsCancellation(err) {
			return r.finish(ctx, logger, result, StatusCancelled, nil)
		}
		return r.finish(ctx, logger, result, StatusFailed, err)
	}
	result.Glossary = items

	result.Status = StatusProcessing
	r.emit(Progress{RunID: runID, Status: StatusProcessing, Total: len(chunks), Message: "processing chunks"})
	if r.recorder != nil {
		if err := r.recorder.RecordStatus(ctx, runID, StatusProcessing, 0, len(chunks), "processing chunks"); err != nil {
			logger.Warn("run persistence unavailable", logging.Error(err))
		}
	}

	segments, completed, runErr := r.processChunks(ctx, logger, req, chunks, audio, items, registry, alloc, transcripts)
	result.Segments = subtitle.Assemble(segments)
	result.ChunksCompleted = completed
	result.Speakers = registry.Profiles()

	switch {
	case runErr != nil && services.IsCancellation(runErr):
		return r.finish(ctx, logger, result, StatusCancelled, nil)
	case runErr != nil:
		return r.finish(ctx, logger, result, StatusFailed, runErr)
	}

	if req.OutputPath != "" {
		if err := writeSRT(req.OutputPath, result.Segments, req.Bilingual); err != nil {
			return r.finish(ctx, logger, result, StatusFailed, err)
		}
	}
	return r.finish(ctx, logger, result, StatusCompleted, nil)
}

func (r *Runner) prepare(ctx context.Context, logger *slog.Logger, req Request) ([]chunk.Descriptor, *media.AudioHandle, error) {
	identity, err := media.Identify(req.MediaPath)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrNotFound, "prepare", "identify", "source media is not readable", err)
	}
	info, err := r.prober.Probe(ctx, req.MediaPath)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := chunk.Plan(info.DurationSeconds, r.cfg.Pipeline.ChunkSeconds)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrConfiguration, "prepare", "plan", "invalid chunk duration", err)
	}
	audio, err := r.audio.Get(identity, func() ([]byte, error) {
		return os.ReadFile(req.MediaPath)
	})
	if err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "prepare", "load audio", "failed to load source audio", err)
	}
	logger.Info("run prepared",
		logging.String("source", req.MediaPath),
		logging.Float64("duration_seconds", info.DurationSeconds),
		logging.Int("chunks", len(chunks)),
	)
	return chunks, audio, nil
}

// resolveGlossary transcribes up to Glossary.SampleChunks leading chunks,
// extracts candidate terms from each, and resolves the confirmation gate.
// Sample transcripts are cached so processing does not redo them. Extraction
// failures are recorded in the metadata, never fatal on their own.
func (r *Runner) resolveGlossary(
	ctx context.Context,
	logger *slog.Logger,
	req Request,
	chunks []chunk.Descriptor,
	audio *media.AudioHandle,
	registry *subtitle.SpeakerRegistry,
	alloc *stage.IDAllocator,
	transcripts map[int][]subtitle.Segment,
) ([]glossary.Item, error) {
	sampleCount := r.cfg.Glossary.SampleChunks
	if sampleCount > len(chunks) {
		sampleCount = len(chunks)
	}
	if sampleCount < 0 {
		sampleCount = 0
	}

	results := make([]glossary.ChunkResult, 0, sampleCount)
	for _, c := range chunks[:sampleCount] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunkLogger := logger.With(logging.Int(logging.FieldChunk, c.Index))
		segments, _, err := r.runStage(ctx, chunkLogger, stage.NameTranscribe, stage.ClassHeavy,
			r.stages.Transcriber.Transcribe,
			stage.Request{Chunk: c, Audio: audio, SourceLanguage: req.SourceLanguage, TargetLanguage: req.TargetLanguage},
			registry, alloc)
		if err != nil {
			if services.IsCancellation(err) {
				return nil, err
			}
			results = append(results, glossary.ChunkResult{ChunkIndex: c.Index, Error: err.Error()})
			continue
		}
		transcripts[c.Index] = segments

		terms, err := r.stages.Extractor.ExtractTerms(ctx, stage.Request{
			Chunk:          c,
			Segments:       segments,
			SourceLanguage: req.SourceLanguage,
			TargetLanguage: req.TargetLanguage,
		})
		if err != nil {
			if services.IsCancellation(err) {
				return nil, err
			}
			results = append(results, glossary.ChunkResult{ChunkIndex: c.Index, Error: err.Error()})
			continue
		}
		results = append(results, glossary.ChunkResult{ChunkIndex: c.Index, Terms: terms})
	}

	runID, _ := services.RunIDFromContext(ctx)
	meta := glossary.NewMetadata(results)
	gate := glossary.NewGate(r.cfg.Glossary.AutoConfirm, func(m *glossary.ExtractionMetadata) {
		if m != nil {
			r.emit(Progress{
				RunID:   runID,
				Status:  StatusAwaitingGlossary,
				Stage:   stage.NameGlossary,
				Total:   len(chunks),
				Message: fmt.Sprintf("%d extracted terms awaiting confirmation", m.TotalTerms),
				Terms:   m.Terms(),
				Toast:   true,
			})
		}
	})

	r.mu.Lock()
	r.gate = gate
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.gate = nil
		r.mu.Unlock()
	}()

	items, err := gate.Resolve(ctx, req.ActiveGlossary, meta)
	if err != nil {
		return nil, err
	}
	logger.Info("glossary resolved",
		logging.Int("terms", len(items)),
		logging.Int("extracted", meta.TotalTerms),
		logging.Bool("had_failures", meta.HasFailures),
	)
	return items, nil
}

// processChunks drives every chunk through the stage sequence concurrently.
// The first terminal failure stops dispatch; chunks already finished are
// kept. The returned error is nil only when every chunk completed.
func (r *Runner) processChunks(
	ctx context.Context,
	logger *slog.Logger,
	req Request,
	chunks []chunk.Descriptor,
	audio *media.AudioHandle,
	items []glossary.Item,
	registry *subtitle.SpeakerRegistry,
	alloc *stage.IDAllocator,
	transcripts map[int][]subtitle.Segment,
) ([]subtitle.Segment, int, error) {
	workCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()

	runID, _ := services.RunIDFromContext(ctx)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		byChunk   = make(map[int][]subtitle.Segment)
		completed int
		firstErr  error
	)
	emitChunk := func(c chunk.Descriptor, status ChunkStatus, name stage.Name, message string) {
		r.emit(Progress{
			RunID:       runID,
			Status:      StatusProcessing,
			ChunkStatus: status,
			Stage:       name,
			Chunk:       c.Index,
			Total:       len(chunks),
			Message:     message,
		})
	}
	for _, c := range chunks {
		c := c
		wg.Add(1)
		emitChunk(c, ChunkPending, "", fmt.Sprintf("chunk %d queued", c.Index))
		go func() {
			defer wg.Done()
			segments, err := r.processChunk(workCtx, logger, req, c, audio, items, registry, alloc, transcripts[c.Index], emitChunk)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !services.IsCancellation(err) {
					emitChunk(c, ChunkError, "", err.Error())
					if firstErr == nil {
						firstErr = err
						stopDispatch()
					}
				}
				return
			}
			byChunk[c.Index] = segments
			completed++
			r.emit(Progress{
				RunID:       runID,
				Status:      StatusProcessing,
				ChunkStatus: ChunkCompleted,
				Chunk:       c.Index,
				Total:       len(chunks),
				Completed:   completed,
				Message:     fmt.Sprintf("chunk %d finished", c.Index),
			})
		}()
	}
	wg.Wait()

	indices := make([]int, 0, len(byChunk))
	for idx := range byChunk {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	var segments []subtitle.Segment
	for _, idx := range indices {
		segments = append(segments, byChunk[idx]...)
	}

	if firstErr != nil {
		return segments, completed, firstErr
	}
	if err := ctx.Err(); err != nil {
		logger.Info("run cancelled",
			logging.Int("chunks_completed", completed),
			logging.Int("chunks_total", len(chunks)),
		)
		return segments, completed, err
	}
	return segments, completed, nil
}

// processChunk runs one chunk through transcribe, refine, align, and
// translate. Each downstream stage's output is reconciled against its input
// so identity and scoring survive text rewrites.
func (r *Runner) processChunk(
	ctx context.Context,
	logger *slog.Logger,
	req Request,
	c chunk.Descriptor,
	audio *media.AudioHandle,
	items []glossary.Item,
	registry *subtitle.SpeakerRegistry,
	alloc *stage.IDAllocator,
	transcript []subtitle.Segment,
	emitChunk func(chunk.Descriptor, ChunkStatus, stage.Name, string),
) ([]subtitle.Segment, error) {
	logger = logger.With(logging.Int(logging.FieldChunk, c.Index))
	base := stage.Request{
		Chunk:          c,
		Audio:          audio,
		Glossary:       items,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	}
	opts := reconcile.Options{OverlapThreshold: r.cfg.Pipeline.OverlapThreshold}

	segments := transcript
	if segments == nil {
		emitChunk(c, ChunkProcessing, stage.NameTranscribe, "")
		var err error
		segments, _, err = r.runStage(ctx, logger, stage.NameTranscribe, stage.ClassHeavy, r.stages.Transcriber.Transcribe, base, registry, alloc)
		if err != nil {
			return nil, err
		}
	}
	if len(segments) == 0 {
		logger.Info("chunk has no speech", logging.String(logging.FieldStage, string(stage.NameTranscribe)))
		return nil, nil
	}

	type textStage struct {
		name stage.Name
		call func(context.Context, stage.Request) ([]stage.RawSegment, error)
	}
	for _, ts := range []textStage{
		{stage.NameRefine, r.stages.Refiner.Refine},
		{stage.NameAlign, r.stages.Aligner.Align},
		{stage.NameTranslate, r.stages.Translator.Translate},
	} {
		emitChunk(c, ChunkProcessing, ts.name, "")
		stageReq := base
		stageReq.Segments = segments
		out, check, err := r.runStage(ctx, logger, ts.name, stage.ClassFast, ts.call, stageReq, registry, alloc)
		if err != nil {
			return nil, err
		}
		// An empty or unusable result after the retry budget keeps the
		// previous stage's segments instead of erasing the chunk.
		if len(out) == 0 {
			logger.Warn("stage produced nothing usable, keeping previous segments",
				logging.String(logging.FieldStage, string(ts.name)),
				logging.Int("issues", len(check.Issues)),
			)
			continue
		}
		segments = reconcile.Merge(segments, out, opts)
	}
	return segments, nil
}

// runStage wraps one stage call in the postcheck retry loop, bounded by the
// stage class's concurrency pool for the duration of each model call.
func (r *Runner) runStage(
	ctx context.Context,
	logger *slog.Logger,
	name stage.Name,
	class stage.Class,
	call func(context.Context, stage.Request) ([]stage.RawSegment, error),
	req stage.Request,
	registry *subtitle.SpeakerRegistry,
	alloc *stage.IDAllocator,
) ([]subtitle.Segment, postcheck.Result, error) {
	sem := r.fastSem
	if class == stage.ClassHeavy {
		sem = r.heavySem
	}
	stageLogger := logger.With(logging.String(logging.FieldStage, string(name)))

	outcome, err := postcheck.Run(ctx, stageLogger, string(name), r.cfg.Pipeline.MaxRetries,
		func(ctx context.Context) ([]stage.RawSegment, error) {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil, err
			}
			defer sem.Release(1)
			return call(ctx, req)
		},
		func(_ context.Context, raws []stage.RawSegment, finalAttempt bool) ([]subtitle.Segment, postcheck.Result, error) {
			segments, adaptIssues := stage.Adapt(raws, registry, alloc)
			checked, result := stage.Check(segments, req.Chunk, finalAttempt, r.cfg.Pipeline.ConfidenceThreshold)
			if len(adaptIssues) > 0 {
				result = postcheck.Invalid(append(adaptIssues, result.Issues...)...)
			}
			return checked, result, nil
		},
	)
	if err != nil {
		return nil, outcome.Check, err
	}
	return outcome.Output, outcome.Check, nil
}

func (r *Runner) finish(ctx context.Context, logger *slog.Logger, result *Result, status Status, err error) (*Result, error) {
	result.Status = status
	if err != nil {
		result.Err = err.Error()
	}
	if r.recorder != nil {
		// Persistence must survive run cancellation.
		if recErr := r.recorder.RecordResult(context.WithoutCancel(ctx), result.RunID, result); recErr != nil {
			logger.Warn("failed to persist run result", logging.Error(recErr))
		}
	}
	r.emit(Progress{
		RunID:     result.RunID,
		Status:    status,
		Total:     result.ChunksTotal,
		Completed: result.ChunksCompleted,
		Message:   statusMessage(status, result, err),
		Toast:     true,
	})
	switch status {
	case StatusFailed:
		logger.Error("run failed", logging.Error(err))
		return result, err
	case StatusCancelled:
		logger.Info("run cancelled, partial segments preserved",
			logging.Int("segments", len(result.Segments)))
		return result, nil
	default:
		logger.Info("run completed",
			logging.Int("segments", len(result.Segments)),
			logging.Int("chunks", result.ChunksTotal),
		)
		return result, nil
	}
}

func (r *Runner) emit(p Progress) {
	if r.progress == nil {
		return
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.progress(p)
}

func statusMessage(status Status, result *Result, err error) string {
	switch status {
	case StatusCompleted:
		return fmt.Sprintf("generated %d segments", len(result.Segments))
	case StatusCancelled:
		return fmt.Sprintf("cancelled after %d of %d chunks", result.ChunksCompleted, result.ChunksTotal)
	case StatusFailed:
		if err != nil {
			return err.Error()
		}
		return "run failed"
	default:
		return ""
	}
}

func writeSRT(path string, segments []subtitle.Segment, bilingual bool) error {
	content := subtitle.RenderSRT(segments, bilingual)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, "assemble", "write output", "failed to write subtitle file", err)
	}
	return nil
}
