package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-sensory/internal/log"
	"github.com/teslashibe/go-sensory/pkg/analyzer"
	"github.com/teslashibe/go-sensory/pkg/crowd"
	"github.com/teslashibe/go-sensory/pkg/crowdmap"
	"github.com/teslashibe/go-sensory/pkg/overlay"
	"github.com/teslashibe/go-sensory/pkg/prefs"
	"github.com/teslashibe/go-sensory/pkg/tts"
	"github.com/teslashibe/go-sensory/pkg/vision"
)

type fixture struct {
	server   *Server
	vision   *vision.Mock
	speech   *tts.Mock
	analyzer *analyzer.Analyzer
	overlay  *overlay.Renderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := prefs.NewJSONStore(t.TempDir()+"/prefs.json", prefs.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	f := &fixture{
		vision:  vision.NewMock("2 people on the left"),
		speech:  tts.NewMock(),
		overlay: overlay.NewRenderer(320, 240),
	}
	f.analyzer = analyzer.New(nil, analyzer.WithSink(f.overlay), analyzer.WithLogger(log.Discard()))
	narrator := tts.NewNarrator(f.speech, tts.NewMemoryStore(8), tts.WithNarratorLogger(log.Discard()))

	f.server = NewServer("0", Deps{
		Vision:   f.vision,
		Analyzer: f.analyzer,
		Overlay:  f.overlay,
		Narrator: narrator,
		Prefs:    store,
	}, log.Discard())
	f.server.now = func() time.Time { return time.Date(2026, 3, 2, 12, 30, 0, 0, time.Local) }
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := f.server.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func jsonRequest(method, target string, v any) *http.Request {
	data, _ := json.Marshal(v)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// busyPNG is half black, half grey 190: twenty people, CAUTION.
func busyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			c := color.RGBA{A: 255}
			if x >= 16 {
				c = color.RGBA{190, 190, 190, 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Errorf("healthz = %d %s", resp.StatusCode, body)
	}
}

func TestAnalyzeCrowd(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		body   any
		status int
		check  func(t *testing.T, r AnalyzeCrowdResponse)
	}{
		{
			name:   "missing image",
			body:   map[string]string{},
			status: http.StatusBadRequest,
			check: func(t *testing.T, r AnalyzeCrowdResponse) {
				if r.Success || r.Error != "No image provided" {
					t.Errorf("response = %+v", r)
				}
			},
		},
		{
			name:   "malformed data url",
			body:   vision.AnalyzeRequest{Image: "data:image/jpeg,nope"},
			status: http.StatusBadRequest,
		},
		{
			name:   "ok",
			body:   vision.AnalyzeRequest{Image: vision.EncodeDataURL("image/jpeg", []byte{0xff, 0xd8})},
			status: http.StatusOK,
			check: func(t *testing.T, r AnalyzeCrowdResponse) {
				if !r.Success || r.Data == nil || r.Data.SpatialGuidance != "2 people on the left" {
					t.Errorf("response = %+v", r)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, jsonRequest(http.MethodPost, "/api/analyze-crowd", tt.body))
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			if tt.check != nil {
				var r AnalyzeCrowdResponse
				if err := json.Unmarshal(body, &r); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				tt.check(t, r)
			}
		})
	}
}

func TestAnalyzeCrowdProviderError(t *testing.T) {
	f := newFixture(t)
	f.vision.AnalyzeFunc = func(context.Context, []byte) (*vision.Report, error) {
		return nil, errors.New("model unavailable")
	}

	body := vision.AnalyzeRequest{Image: vision.EncodeDataURL("image/jpeg", []byte{1})}
	resp, data := f.do(t, jsonRequest(http.MethodPost, "/api/analyze-crowd", body))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(data), "model unavailable") {
		t.Errorf("body = %s", data)
	}
}

func TestFrameUpload(t *testing.T) {
	f := newFixture(t)

	var form bytes.Buffer
	w := multipart.NewWriter(&form)
	part, err := w.CreateFormFile("image", "frame.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(busyPNG(t))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/crowd/frame", &form)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, body := f.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d (%s)", resp.StatusCode, body)
	}

	var fr FrameResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !fr.Committed || fr.Analysis.PeopleCount != 20 || fr.Status != crowd.StatusCaution {
		t.Errorf("frame response = %+v", fr)
	}
	if fr.Variance != 9025 {
		t.Errorf("variance = %v, want 9025", fr.Variance)
	}

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/crowd/latest", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("latest status = %d", resp.StatusCode)
	}
	var latest FrameResponse
	json.Unmarshal(body, &latest)
	if latest.Seq != fr.Seq || latest.Analysis.PeopleCount != 20 {
		t.Errorf("latest = %+v", latest)
	}

	if f.overlay.Analysis() == nil {
		t.Error("overlay not updated")
	}
}

func TestFrameRawBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/crowd/frame", bytes.NewReader(busyPNG(t)))
	req.Header.Set("Content-Type", "image/png")
	resp, body := f.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d (%s)", resp.StatusCode, body)
	}
}

func TestFrameErrors(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/crowd/frame", nil)
	if resp, _ := f.do(t, req); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty body status = %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/crowd/frame", strings.NewReader("not an image"))
	if resp, _ := f.do(t, req); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("garbage body status = %d", resp.StatusCode)
	}
}

func TestLatestBeforeAnyFrame(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/api/crowd/latest", nil))
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
}

func TestOverlayPNG(t *testing.T) {
	f := newFixture(t)
	f.overlay.Publish(context.Background(), crowd.NewAnalysis(3))

	resp, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/crowd/overlay.png", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	img, err := png.Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("bounds = %v", b)
	}
}

func TestTextToSpeech(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, jsonRequest(http.MethodPost, "/api/text-to-speech", SpeechRequest{Text: "  "}))
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "No text provided") {
		t.Errorf("blank text = %d %s", resp.StatusCode, body)
	}

	resp, body = f.do(t, jsonRequest(http.MethodPost, "/api/text-to-speech", SpeechRequest{Text: "Area is comfortable"}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d (%s)", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.HasSuffix(body, []byte("Area is comfortable")) {
		t.Errorf("body = %q", body)
	}

	f.speech.SynthesizeFunc = func(context.Context, string) (*tts.Audio, error) {
		return nil, errors.New("quota exceeded")
	}
	resp, body = f.do(t, jsonRequest(http.MethodPost, "/api/text-to-speech", SpeechRequest{Text: "something new"}))
	if resp.StatusCode != http.StatusInternalServerError || !strings.Contains(string(body), "Failed to generate speech") {
		t.Errorf("provider failure = %d %s", resp.StatusCode, body)
	}
}

func TestPreferences(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/preferences?userId=u1", nil))
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "{}" {
		t.Errorf("unknown user = %d %s", resp.StatusCode, body)
	}

	resp, body = f.do(t, jsonRequest(http.MethodPost, "/api/preferences", map[string]any{"user_name": "x"}))
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "User ID required") {
		t.Errorf("missing id = %d %s", resp.StatusCode, body)
	}

	bad := httptest.NewRequest(http.MethodPost, "/api/preferences", strings.NewReader(`{"user_id": "u1",`))
	bad.Header.Set("Content-Type", "application/json")
	resp, body = f.do(t, bad)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "Invalid request body") {
		t.Errorf("malformed body = %d %s", resp.StatusCode, body)
	}

	resp, body = f.do(t, jsonRequest(http.MethodPost, "/api/preferences", map[string]any{
		"user_id":           "u1",
		"neurodivergencies": []string{"autism"},
		"sound_sensitivity": "high",
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save = %d %s", resp.StatusCode, body)
	}
	var saved struct {
		Success     bool              `json:"success"`
		Preferences prefs.Preferences `json:"preferences"`
	}
	if err := json.Unmarshal(body, &saved); err != nil {
		t.Fatal(err)
	}
	if !saved.Success || saved.Preferences.SoundSensitivity != prefs.High || saved.Preferences.CrowdSensitivity != prefs.Medium {
		t.Errorf("saved = %+v", saved)
	}

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/preferences?userId=u1", nil))
	var got prefs.Preferences
	json.Unmarshal(body, &got)
	if resp.StatusCode != http.StatusOK || got.UserID != "u1" || len(got.Neurodivergencies) != 1 {
		t.Errorf("get = %d %+v", resp.StatusCode, got)
	}
}

func TestCrowdMapRoutes(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/crowd-map/categories", nil))
	var cats []crowdmap.Category
	json.Unmarshal(body, &cats)
	if resp.StatusCode != http.StatusOK || len(cats) != len(crowdmap.Categories()) {
		t.Errorf("categories = %d %d", resp.StatusCode, len(cats))
	}

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/crowd-map/locations", nil))
	var all []LocationView
	json.Unmarshal(body, &all)
	if resp.StatusCode != http.StatusOK || len(all) != len(crowdmap.Locations()) {
		t.Fatalf("locations = %d %d", resp.StatusCode, len(all))
	}
	for _, l := range all {
		if l.Current == nil || l.Current.Hour != 12 {
			t.Errorf("%s current = %+v", l.ID, l.Current)
		}
	}

	first := crowdmap.Locations()[0]
	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/crowd-map/locations?category="+first.Category, nil))
	var filtered []LocationView
	json.Unmarshal(body, &filtered)
	want := crowdmap.Filter(crowdmap.Locations(), first.Category, "")
	if resp.StatusCode != http.StatusOK || len(filtered) != len(want) {
		t.Errorf("filtered = %d, want %d", len(filtered), len(want))
	}

	resp, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/crowd-map/board", nil))
	var snap crowdmap.Snapshot
	json.Unmarshal(body, &snap)
	if resp.StatusCode != http.StatusOK || snap.Hour != 12 || len(snap.Entries) != len(crowdmap.Locations()) {
		t.Errorf("board = %d %+v", resp.StatusCode, snap)
	}
}

func TestUnconfiguredRoutes(t *testing.T) {
	s := NewServer("0", Deps{}, log.Discard())

	for _, req := range []*http.Request{
		jsonRequest(http.MethodPost, "/api/analyze-crowd", vision.AnalyzeRequest{Image: "aGk="}),
		jsonRequest(http.MethodPost, "/api/text-to-speech", SpeechRequest{Text: "hi"}),
		jsonRequest(http.MethodPost, "/api/preferences", map[string]string{"user_id": "u"}),
		httptest.NewRequest(http.MethodGet, "/api/crowd/latest", nil),
		httptest.NewRequest(http.MethodGet, "/api/crowd/overlay.png", nil),
	} {
		resp, err := s.App().Test(req, -1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s %s = %d", req.Method, req.URL.Path, resp.StatusCode)
		}
	}
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/ws/crowd", nil))
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}
