package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"thooimai-go/internal/errs"
	"thooimai-go/internal/metrics"
	"thooimai-go/internal/types"
)

type fakeRecognizer struct {
	text  string
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ []byte, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeTranslator struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranslator) Translate(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeExtractor struct {
	out   types.Extraction
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) types.Extraction {
	f.calls++
	return f.out
}

type fakeSynthesizer struct {
	out   []byte
	calls int
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ string) []byte {
	f.calls++
	return f.out
}

type upload struct {
	path        string
	contentType string
	size        int
}

type fakeObjects struct {
	mu      sync.Mutex
	uploads  []upload
	failOn   string
	emptyURL bool
}

func (f *fakeObjects) Upload(_ context.Context, path string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && strings.HasPrefix(path, f.failOn) {
		return "", &errs.StorageError{Path: path, Err: errors.New("HTTP 500")}
	}
	f.uploads = append(f.uploads, upload{path: path, contentType: contentType, size: len(data)})
	if f.emptyURL {
		return "", nil
	}
	return "https://objects.test/report-audio/" + path, nil
}

type fakeRecords struct {
	inserted []types.Report
	table    string
	err      error
}

func (f *fakeRecords) Insert(_ context.Context, table string, r types.Report) (types.Report, error) {
	if f.err != nil {
		return types.Report{}, &errs.PersistenceError{Table: table, Err: f.err}
	}
	f.table = table
	r.ID = primitive.NewObjectID()
	f.inserted = append(f.inserted, r)
	return r, nil
}

type fixture struct {
	rec     *fakeRecognizer
	tr      *fakeTranslator
	ex      *fakeExtractor
	tts     *fakeSynthesizer
	objects *fakeObjects
	records *fakeRecords
	metrics *metrics.Metrics
}

func newFixture() *fixture {
	return &fixture{
		rec: &fakeRecognizer{text: "அண்ணா நகர் வார்டு 12 இல் குப்பை"},
		tr:  &fakeTranslator{text: "There is a large garbage pile near Anna Nagar in ward 12"},
		ex: &fakeExtractor{out: types.Extraction{
			Priority: types.PriorityHigh, Area: "Anna Nagar", Ward: "Ward 12",
		}},
		tts:     &fakeSynthesizer{out: []byte("RIFF....WAVE")},
		objects: &fakeObjects{},
		records: &fakeRecords{},
		metrics: metrics.New(),
	}
}

func (f *fixture) assembler() *Assembler {
	a := New(Deps{
		Recognizer:  f.rec,
		Translator:  f.tr,
		Extractor:   f.ex,
		Synthesizer: f.tts,
		Objects:     f.objects,
		Records:     f.records,
		Metrics:     f.metrics,
	})
	a.newID = func() string { return "fixed-id" }
	return a
}

func submission() types.Submission {
	return types.Submission{
		Audio:       []byte("webm-bytes"),
		Filename:    "recording.webm",
		ContentType: "audio/webm",
		ImageURL:    "https://img.test/pile.jpg",
		UserID:      "u1",
		Latitude:    9.93,
		Longitude:   78.12,
	}
}

func TestAssembleHappyPath(t *testing.T) {
	f := newFixture()
	res, err := f.assembler().Assemble(context.Background(), submission())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.NotEmpty(t, res.ReportID)
	assert.Equal(t, types.PriorityHigh, res.Priority)
	assert.Equal(t, "Anna Nagar", res.Area)
	assert.Equal(t, "Ward 12", res.Ward)
	assert.Equal(t, 9.93, res.Latitude)
	assert.Equal(t, "https://objects.test/report-audio/u1/fixed-id.webm", res.AudioURL)
	assert.Equal(t, "https://objects.test/report-audio/tts/u1/fixed-id.wav", res.TTSURL)

	require.Len(t, f.objects.uploads, 2)
	assert.Equal(t, upload{path: "u1/fixed-id.webm", contentType: "audio/webm", size: 10}, f.objects.uploads[0])
	assert.Equal(t, "audio/wav", f.objects.uploads[1].contentType)

	require.Len(t, f.records.inserted, 1)
	rep := f.records.inserted[0]
	assert.Equal(t, "issue_reports", f.records.table)
	assert.Equal(t, "garbage", rep.Category)
	assert.Equal(t, "Pending", rep.Status)
	assert.Equal(t, "Priority: high", rep.Notes)
	assert.Equal(t, "Anna Nagar, Ward 12", rep.Location)
	assert.Equal(t, res.AudioURL, rep.AudioURL)
	assert.Equal(t, res.TamilText, rep.DescriptionTamil)
	assert.Equal(t, res.EnglishText, rep.DescriptionEnglish)
	assert.Equal(t, rep.ID.Hex(), res.ReportID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StageCounter("persisting", metrics.OutcomeOK)))
}

func TestRecognitionFailureStopsEverything(t *testing.T) {
	for name, rec := range map[string]*fakeRecognizer{
		"provider error":   {err: &errs.ProviderError{Provider: "sarvam-stt", StatusCode: 500}},
		"empty transcript": {text: ""},
		"blank transcript": {text: "   \n"},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			f.rec = rec
			_, err := f.assembler().Assemble(context.Background(), submission())
			require.Error(t, err)

			assert.True(t, errs.IsUnprocessable(err))
			assert.Equal(t, MsgTranscription, errs.UserMessage(err))
			var pe *errs.PipelineError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, string(StageTranscribing), pe.Stage)

			assert.Zero(t, f.tr.calls)
			assert.Zero(t, f.ex.calls)
			assert.Zero(t, f.tts.calls)
			assert.Empty(t, f.objects.uploads)
			assert.Empty(t, f.records.inserted)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StageCounter("transcribing", metrics.OutcomeFailed)))
		})
	}
}

func TestTranslationFailureIsUnprocessable(t *testing.T) {
	f := newFixture()
	f.tr.err = &errs.ProviderError{Provider: "sarvam-translate", StatusCode: 503}

	_, err := f.assembler().Assemble(context.Background(), submission())
	require.Error(t, err)
	assert.True(t, errs.IsUnprocessable(err))
	assert.Equal(t, MsgTranslation, errs.UserMessage(err))
	assert.Zero(t, f.ex.calls)
	assert.Empty(t, f.objects.uploads)
	assert.Empty(t, f.records.inserted)
}

func TestExtractionFallbackStillStores(t *testing.T) {
	f := newFixture()
	f.ex.out = types.DefaultExtraction()

	res, err := f.assembler().Assemble(context.Background(), submission())
	require.NoError(t, err)
	assert.Equal(t, types.PriorityMedium, res.Priority)
	assert.Equal(t, "unknown", res.Area)
	assert.Equal(t, "unknown", res.Ward)
	assert.Equal(t, "Madurai", f.records.inserted[0].Location)
	assert.Equal(t, "Priority: medium", f.records.inserted[0].Notes)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StageCounter("extracting", metrics.OutcomeDegraded)))
}

func TestSynthesisFailureLeavesTTSEmpty(t *testing.T) {
	f := newFixture()
	f.tts.out = nil

	res, err := f.assembler().Assemble(context.Background(), submission())
	require.NoError(t, err)
	assert.Equal(t, "", res.TTSURL)
	assert.Equal(t, "", f.records.inserted[0].TTSURL)
	require.Len(t, f.objects.uploads, 1)
	assert.Equal(t, "u1/fixed-id.webm", f.objects.uploads[0].path)
}

func TestUploadFailureIsInternal(t *testing.T) {
	f := newFixture()
	f.objects.failOn = "u1/"

	_, err := f.assembler().Assemble(context.Background(), submission())
	require.Error(t, err)
	assert.False(t, errs.IsUnprocessable(err))
	var se *errs.StorageError
	assert.True(t, errors.As(err, &se))
	assert.Empty(t, f.objects.uploads)
	assert.Empty(t, f.records.inserted)
}

func TestUploadWithoutURLIsInternal(t *testing.T) {
	f := newFixture()
	f.objects.emptyURL = true

	res, err := f.assembler().Assemble(context.Background(), submission())
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.False(t, errs.IsUnprocessable(err))
	var se *errs.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "u1/fixed-id.webm", se.Path)
	assert.Empty(t, f.records.inserted)
}

func TestSpeechUploadFailureIsInternal(t *testing.T) {
	f := newFixture()
	f.objects.failOn = "tts/"

	_, err := f.assembler().Assemble(context.Background(), submission())
	require.Error(t, err)
	var pe *errs.PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, errs.KindInternal, pe.Kind)
	assert.Empty(t, f.records.inserted)
}

func TestPersistenceFailureIsInternal(t *testing.T) {
	f := newFixture()
	f.records.err = errors.New("connection reset")

	_, err := f.assembler().Assemble(context.Background(), submission())
	require.Error(t, err)
	assert.False(t, errs.IsUnprocessable(err))
	assert.Equal(t, MsgPersist, errs.UserMessage(err))
	var pe *errs.PersistenceError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "issue_reports", pe.Table)
}

func TestContentTypeFallsBackToFilename(t *testing.T) {
	f := newFixture()
	sub := submission()
	sub.Filename = "voice.m4a"
	sub.ContentType = "application/octet-stream"

	_, err := f.assembler().Assemble(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "audio/mp4", f.objects.uploads[0].contentType)
	assert.True(t, strings.HasPrefix(f.objects.uploads[0].path, "u1/"))
}

func TestObjectPathsAreUnique(t *testing.T) {
	f := newFixture()
	a := New(Deps{
		Recognizer: f.rec, Translator: f.tr, Extractor: f.ex,
		Synthesizer: f.tts, Objects: f.objects, Records: f.records,
	})
	for i := 0; i < 3; i++ {
		_, err := a.Assemble(context.Background(), submission())
		require.NoError(t, err)
	}
	seen := map[string]bool{}
	for _, u := range f.objects.uploads {
		assert.False(t, seen[u.path], u.path)
		seen[u.path] = true
	}
	assert.Len(t, seen, 6)
}

func TestBuildReportLocation(t *testing.T) {
	sub := submission()
	cases := []struct {
		area, ward, want string
	}{
		{"Arapalayam", "Ward 12", "Arapalayam, Ward 12"},
		{"unknown", "Ward 5", "Madurai, Ward 5"},
		{"Simmakkal", "unknown", "Simmakkal"},
		{"unknown", "unknown", "Madurai"},
	}
	for _, c := range cases {
		ex := types.Extraction{Priority: types.PriorityLow, Area: c.area, Ward: c.ward}
		r := BuildReport(sub, "t", "e", ex, "a", "", "Madurai")
		assert.Equal(t, c.want, r.Location)
		assert.Equal(t, "Priority: low", r.Notes)
	}
}
