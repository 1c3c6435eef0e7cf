package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"thooimai-go/internal/errs"
	"thooimai-go/internal/logger"
	"thooimai-go/internal/metrics"
	"thooimai-go/internal/synthesis"
	"thooimai-go/internal/transcription"
	"thooimai-go/internal/types"
)

type SpeechToText interface {
	Recognize(ctx context.Context, audio []byte, filename string) (string, error)
}

type Translate interface {
	Translate(ctx context.Context, text string) (string, error)
}

type StructuredExtract interface {
	Extract(ctx context.Context, text string) types.Extraction
}

type TextToSpeech interface {
	Synthesize(ctx context.Context, text string) []byte
}

type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

type RecordStore interface {
	Insert(ctx context.Context, table string, r types.Report) (types.Report, error)
}

type Stage string

const (
	StageReceived     Stage = "received"
	StageTranscribing Stage = "transcribing"
	StageTranslating  Stage = "translating"
	StageExtracting   Stage = "extracting"
	StageSynthesizing Stage = "synthesizing"
	StageUploading    Stage = "uploading"
	StagePersisting   Stage = "persisting"
	StageCompleted    Stage = "completed"
	StageFailed       Stage = "failed"
)

const (
	MsgTranscription = "could not transcribe audio, please speak clearly"
	MsgTranslation   = "could not translate the report, please try again"
	MsgUpload        = "failed to store the audio recording"
	MsgPersist       = "failed to save the report"
)

// Deps are the collaborators of an Assembler. Logger and Metrics may be nil.
type Deps struct {
	Recognizer  SpeechToText
	Translator  Translate
	Extractor   StructuredExtract
	Synthesizer TextToSpeech
	Objects     ObjectStore
	Records     RecordStore

	Table   string
	City    string
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Assembler turns one voice submission into a stored report. It holds no
// per-request state and is safe for concurrent use.
type Assembler struct {
	d     Deps
	log   *logger.Logger
	newID func() string
}

func New(d Deps) *Assembler {
	if d.Table == "" {
		d.Table = "issue_reports"
	}
	if d.City == "" {
		d.City = "Madurai"
	}
	log := d.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Assembler{d: d, log: log.Component("pipeline"), newID: func() string { return uuid.New().String() }}
}

// run tracks the current stage of a single Assemble call.
type run struct {
	a       *Assembler
	log     *logger.Logger
	stage   Stage
	started time.Time
}

func (r *run) enter(s Stage) {
	r.stage = s
	r.started = time.Now()
	r.log.WithField("stage", s).Debug("stage started")
}

func (r *run) done(outcome string) {
	r.a.d.Metrics.Stage(string(r.stage), outcome)
	r.log.WithField("stage", r.stage).
		WithField("outcome", outcome).
		WithField("duration_ms", time.Since(r.started).Milliseconds()).
		Info("stage finished")
}

func (r *run) fail(kind errs.Kind, msg string, err error) error {
	r.done(metrics.OutcomeFailed)
	r.log.WithError(err).WithField("stage", r.stage).WithField("next", StageFailed).Warn("report failed")
	return &errs.PipelineError{Stage: string(r.stage), Kind: kind, Message: msg, Err: err}
}

// Assemble runs the stages strictly in order. Recognition and translation
// failures are unprocessable; storage failures are internal; extraction and
// synthesis degrade instead of failing.
func (a *Assembler) Assemble(ctx context.Context, sub types.Submission) (types.Result, error) {
	start := time.Now()
	defer func() { a.d.Metrics.ObserveDuration(time.Since(start)) }()

	r := &run{a: a, log: a.log.With("user_id", sub.UserID), stage: StageReceived, started: start}
	r.log.WithField("bytes", len(sub.Audio)).Info("report received")

	r.enter(StageTranscribing)
	tamil, err := a.d.Recognizer.Recognize(ctx, sub.Audio, sub.Filename)
	if err == nil && strings.TrimSpace(tamil) == "" {
		err = fmt.Errorf("empty transcript")
	}
	if err != nil {
		return types.Result{}, r.fail(errs.KindUnprocessable, MsgTranscription, err)
	}
	r.done(metrics.OutcomeOK)

	r.enter(StageTranslating)
	english, err := a.d.Translator.Translate(ctx, tamil)
	if err != nil {
		return types.Result{}, r.fail(errs.KindUnprocessable, MsgTranslation, err)
	}
	r.done(metrics.OutcomeOK)

	r.enter(StageExtracting)
	ex := a.d.Extractor.Extract(ctx, english)
	if ex.Fallback {
		r.done(metrics.OutcomeDegraded)
	} else {
		r.done(metrics.OutcomeOK)
	}

	r.enter(StageSynthesizing)
	speech := a.d.Synthesizer.Synthesize(ctx, english)
	if len(speech) == 0 {
		r.done(metrics.OutcomeDegraded)
	} else {
		r.done(metrics.OutcomeOK)
	}

	r.enter(StageUploading)
	contentType := sub.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = transcription.MimeType(sub.Filename)
	}
	audioPath := sub.UserID + "/" + a.newID() + transcription.Extension(contentType)
	audioURL, err := a.d.Objects.Upload(ctx, audioPath, sub.Audio, contentType)
	if err == nil && audioURL == "" {
		err = &errs.StorageError{Path: audioPath, Err: errors.New("store returned no url")}
	}
	if err != nil {
		return types.Result{}, r.fail(errs.KindInternal, MsgUpload, err)
	}
	var ttsURL string
	if len(speech) > 0 {
		ttsPath := "tts/" + sub.UserID + "/" + a.newID() + ".wav"
		if ttsURL, err = a.d.Objects.Upload(ctx, ttsPath, speech, synthesis.ContentType); err != nil {
			return types.Result{}, r.fail(errs.KindInternal, MsgUpload, err)
		}
	}
	r.done(metrics.OutcomeOK)

	r.enter(StagePersisting)
	stored, err := a.d.Records.Insert(ctx, a.d.Table, BuildReport(sub, tamil, english, ex, audioURL, ttsURL, a.d.City))
	if err != nil {
		return types.Result{}, r.fail(errs.KindInternal, MsgPersist, err)
	}
	r.done(metrics.OutcomeOK)

	a.d.Metrics.Report(string(ex.Priority))
	r.stage = StageCompleted
	r.log.WithField("stage", StageCompleted).
		WithField("report_id", stored.ID.Hex()).
		WithField("priority", ex.Priority).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("report stored")

	return types.Result{
		Success:     true,
		ReportID:    stored.ID.Hex(),
		TamilText:   tamil,
		EnglishText: english,
		Priority:    ex.Priority,
		Area:        ex.Area,
		Ward:        ex.Ward,
		Latitude:    sub.Latitude,
		Longitude:   sub.Longitude,
		ImageURL:    sub.ImageURL,
		AudioURL:    audioURL,
		TTSURL:      ttsURL,
	}, nil
}

// BuildReport maps a finished run onto the stored record.
func BuildReport(sub types.Submission, tamil, english string, ex types.Extraction, audioURL, ttsURL, city string) types.Report {
	return types.Report{
		UserID:             sub.UserID,
		Category:           types.CategoryGarbage,
		Location:           types.Location(ex.Area, ex.Ward, city),
		Latitude:           sub.Latitude,
		Longitude:          sub.Longitude,
		ImageURL:           sub.ImageURL,
		AudioURL:           audioURL,
		TTSURL:             ttsURL,
		Status:             types.StatusPending,
		Notes:              "Priority: " + string(ex.Priority),
		DescriptionTamil:   tamil,
		DescriptionEnglish: english,
		Priority:           ex.Priority,
		Area:               ex.Area,
		Ward:               ex.Ward,
	}
}
