package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/controller"
	"image-compressor-go/internal/statistics"
	"image-compressor-go/internal/worker"
)

type statusResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    controller.View `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T) (*Server, *statistics.Statistics) {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	stats := statistics.NewStatistics()

	w := worker.New(compressor.NewDefaultCompressor(), log, stats)
	w.Start()
	t.Cleanup(w.Close)

	ctrl := controller.New(w, log)
	return NewServer(ctrl, stats, log, 5*time.Millisecond), stats
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) (int, statusResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 6), G: uint8(y * 8), B: 90, A: 255})
		}
	}
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestStatus_LaunchState(t *testing.T) {
	s, _ := newTestServer(t)

	code, resp := do(t, s.Handler(), http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Ready", resp.Data.Status)
	assert.Equal(t, "neutral", resp.Data.StatusKind)
	assert.Equal(t, 80, resp.Data.Quality)
	assert.Equal(t, "No file selected", resp.Data.InputLabel)
	assert.Equal(t, "No file selected", resp.Data.OutputLabel)
	assert.False(t, resp.Data.CanCompress)
	assert.False(t, resp.Data.Busy)
}

func TestInput(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	code, resp := do(t, h, http.MethodPost, "/api/input", PathRequest{Path: "/pics/anim.gif"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)

	code, _ = do(t, h, http.MethodPost, "/api/input", PathRequest{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = do(t, h, http.MethodPost, "/api/input", PathRequest{Path: "/pics/photo.PNG"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Input file selected", resp.Data.Status)
	assert.Equal(t, "/pics/photo.PNG", resp.Data.InputLabel)
}

func TestInput_BadBody(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/input", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOutputAndQuality(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	// the save dialog takes any name; the extension is checked at compress time
	code, resp := do(t, h, http.MethodPost, "/api/output", PathRequest{Path: "/pics/out.gif"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Output file selected", resp.Data.Status)

	_, resp = do(t, h, http.MethodPost, "/api/quality", QualityRequest{Quality: 250})
	assert.Equal(t, 100, resp.Data.Quality)

	_, resp = do(t, h, http.MethodPost, "/api/quality", QualityRequest{Quality: -3})
	assert.Equal(t, 1, resp.Data.Quality)
}

func TestCompress_NotReady(t *testing.T) {
	s, _ := newTestServer(t)

	code, resp := do(t, s.Handler(), http.MethodPost, "/api/compress", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, resp.Success)

	_, resp = do(t, s.Handler(), http.MethodGet, "/api/status", nil)
	assert.Equal(t, "Ready", resp.Data.Status)
}

func TestCompress_EndToEnd(t *testing.T) {
	s, stats := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.RunFrameLoop(ctx)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	readStatus := func() controller.View {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg struct {
			Type string          `json:"type"`
			Data controller.View `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, "status", msg.Type)
		return msg.Data
	}

	assert.Equal(t, "Ready", readStatus().Status)

	dir := t.TempDir()
	in := writeFixture(t, dir)
	out := filepath.Join(dir, "photo.webp")

	h := s.Handler()
	do(t, h, http.MethodPost, "/api/input", PathRequest{Path: in})
	assert.Equal(t, "Input file selected", readStatus().Status)
	do(t, h, http.MethodPost, "/api/output", PathRequest{Path: out})
	assert.Equal(t, "Output file selected", readStatus().Status)

	code, resp := do(t, h, http.MethodPost, "/api/compress", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Data.Busy)
	assert.Equal(t, "Compressing...", readStatus().Status)

	final := readStatus()
	assert.Equal(t, "Success: saved to "+out, final.Status)
	assert.Equal(t, "success", final.StatusKind)
	assert.False(t, final.Busy)
	assert.True(t, final.CanCompress)
	assert.FileExists(t, out)

	snap := stats.Snapshot()
	assert.EqualValues(t, 1, snap.RequestsSubmitted)
	assert.EqualValues(t, 1, snap.Succeeded)

	res, err := http.Get(ts.URL + "/api/statistics")
	require.NoError(t, err)
	defer res.Body.Close()
	var body struct {
		Success bool                `json:"success"`
		Data    statistics.Snapshot `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.EqualValues(t, 1, body.Data.RequestsCompleted)
	assert.EqualValues(t, 1, body.Data.Formats["webp-lossless"])
}

func TestMetricsAndIndex(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	page, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Image Compressor")
	assert.Contains(t, string(page), "Compress image")
}

func TestBroadcast_DropsClientPastWriteDeadline(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// the first frame arrives once the client is registered
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)

	s.wsMutex.Lock()
	require.Len(t, s.wsClients, 1)
	s.wsWriteWait = -time.Second
	s.wsMutex.Unlock()

	code, resp := do(t, s.Handler(), http.MethodPost, "/api/quality", QualityRequest{Quality: 30})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 30, resp.Data.Quality)

	s.wsMutex.Lock()
	assert.Empty(t, s.wsClients, "a client whose push timed out must be dropped")
	s.wsMutex.Unlock()

	// the controller lock was released, so handlers keep answering
	code, resp = do(t, s.Handler(), http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 30, resp.Data.Quality)
}

func TestStatistics_ServesRecentErrors(t *testing.T) {
	s, stats := newTestServer(t)
	stats.RecordOutcome(compressor.Outcome{
		RequestID:  "r1",
		InputPath:  "/pics/missing.png",
		OutputPath: "/pics/out.jpg",
		Message:    "Error loading image: open /pics/missing.png: no such file or directory",
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/statistics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data statistics.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.RecentErrors, 1)
	assert.Equal(t, "/pics/missing.png", body.Data.RecentErrors[0].FilePath)
	assert.EqualValues(t, 1, body.Data.LoadErrors)
}
