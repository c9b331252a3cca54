package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/maxrbv/audio-stereo-split-service/pkg/database"
	"github.com/maxrbv/audio-stereo-split-service/pkg/ingest"
	"github.com/maxrbv/audio-stereo-split-service/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRepo struct {
	mu      sync.Mutex
	nextID  int64
	files   map[int64]*database.FileInfo
	history map[string]int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{files: make(map[int64]*database.FileInfo), history: make(map[string]int64)}
}

func (r *stubRepo) FindIDByHash(ctx context.Context, audioHash string) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.history[audioHash]
	return id, ok, nil
}

func (r *stubRepo) CreateEmptyFile(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.files[r.nextID] = &database.FileInfo{ID: r.nextID}
	return r.nextID, nil
}

func (r *stubRepo) GetFileURLs(ctx context.Context, id int64) (*database.FileInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.files[id]
	if !ok {
		return nil, fmt.Errorf("file %d: %w", id, sql.ErrNoRows)
	}
	copied := *info
	return &copied, nil
}

func (r *stubRepo) setComplete(id int64, url1, url2 string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[id] = &database.FileInfo{ID: id, S3URL1: &url1, S3URL2: &url2}
}

type stubPublisher struct {
	published []*types.SplitMessage
}

func (p *stubPublisher) PublishSplit(msg *types.SplitMessage) error {
	p.published = append(p.published, msg)
	return nil
}

func newTestRouter() (*gin.Engine, *stubRepo, *stubPublisher) {
	repo := newStubRepo()
	pub := &stubPublisher{}
	svc := ingest.NewService(repo, pub, nil)
	return NewRouter(NewHandlers(svc)), repo, pub
}

// uploadRequest builds a multipart upload with an explicit part content type.
func uploadRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("part write: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/split/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestSplitAudioAcceptsUpload(t *testing.T) {
	router, _, pub := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "sample.mp3", "audio/mpeg", []byte("stereo bytes")))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var resp ShowFileID
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.ID == 0 {
		t.Error("expected non-zero id")
	}
	if len(pub.published) != 1 {
		t.Errorf("got %d queued messages, want 1", len(pub.published))
	}
}

func TestSplitAudioRejectsNonAudio(t *testing.T) {
	router, repo, pub := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "report.pdf", "application/pdf", []byte("pdf bytes")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(repo.files) != 0 || len(pub.published) != 0 {
		t.Error("rejected upload must have no side effects")
	}
}

func TestSplitAudioRejectsMissingFile(t *testing.T) {
	router, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/split/", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=empty")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func showRequest(t *testing.T, id int64) *http.Request {
	t.Helper()
	body, err := json.Marshal(ShowFileID{ID: id})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/split/show", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestShowURLsUnknownID(t *testing.T) {
	router, _, _ := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, showRequest(t, 99999999))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestShowURLsPending(t *testing.T) {
	router, repo, _ := newTestRouter()
	id, _ := repo.CreateEmptyFile(context.Background())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, showRequest(t, id))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
}

func TestShowURLsComplete(t *testing.T) {
	router, repo, _ := newTestRouter()
	id, _ := repo.CreateEmptyFile(context.Background())
	repo.setComplete(id, "s3://bucket/h_0.mp3", "s3://bucket/h_1.mp3")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, showRequest(t, id))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var resp ShowSplitURL
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.S3URL1 != "s3://bucket/h_0.mp3" || resp.S3URL2 != "s3://bucket/h_1.mp3" {
		t.Errorf("unexpected urls: %+v", resp)
	}
}

func TestShowURLsBadBody(t *testing.T) {
	router, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/split/show", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
