package analysis

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"image-analyzer/internal/analyzer"
	"image-analyzer/internal/domain"
	repoimage "image-analyzer/internal/repository/image"

	"github.com/wb-go/wbf/zlog"
)

type fakeStore struct {
	rec        *domain.ImageRecord
	getErr     error
	markErr    error
	embeddings []domain.EmbeddingRef

	statusHistory []domain.Status
	committed     *domain.AnalysisResult
	failedMsg     string
}

func (s *fakeStore) GetByID(_ context.Context, _ string) (*domain.ImageRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.rec, nil
}

func (s *fakeStore) MarkProcessing(_ context.Context, _ string) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.statusHistory = append(s.statusHistory, domain.StatusProcessing)
	return nil
}

func (s *fakeStore) CompleteAnalysis(_ context.Context, _ string, res *domain.AnalysisResult) error {
	s.statusHistory = append(s.statusHistory, domain.StatusCompleted)
	s.committed = res
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, _ string, msg string) error {
	s.statusHistory = append(s.statusHistory, domain.StatusFailed)
	s.failedMsg = msg
	return nil
}

func (s *fakeStore) ListEmbeddings(_ context.Context, _ string, _ int) ([]domain.EmbeddingRef, error) {
	return s.embeddings, nil
}

type fakeFiles struct {
	data map[string][]byte
}

func (f *fakeFiles) Load(_ context.Context, path string) ([]byte, error) {
	data, ok := f.data[path]
	if !ok {
		return nil, repoimage.ErrFileNotFound
	}
	return data, nil
}

type panicQuality struct{}

func (panicQuality) Analyze(image.Image) (float64, []string, error) {
	panic("model exploded")
}

type fixedDuplicate struct {
	verdict *domain.DuplicateVerdict
	seen    []domain.EmbeddingRef
}

func (d *fixedDuplicate) Find(_ []float64, prior []domain.EmbeddingRef) (*domain.DuplicateVerdict, error) {
	d.seen = prior
	if d.verdict != nil {
		return d.verdict, nil
	}
	return &domain.DuplicateVerdict{ClusterID: "cluster_test0000"}, nil
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 150, G: 150, B: 150, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func pendingRecord(id, storagePath string) *domain.ImageRecord {
	return &domain.ImageRecord{
		ID:          id,
		Filename:    "cat.png",
		StoragePath: storagePath,
		Status:      domain.StatusPending,
		Width:       640,
		Height:      480,
		Format:      "png",
	}
}

func newTestPipeline(t *testing.T, store *fakeStore, files *fakeFiles, quality analyzer.Quality, duplicate analyzer.Duplicate) *Pipeline {
	t.Helper()
	zlog.Init()

	if quality == nil {
		quality = analyzer.NewResolutionQuality(500)
	}
	if duplicate == nil {
		duplicate = analyzer.NewCosineDuplicate(0.95)
	}

	return NewPipeline(
		store,
		files,
		quality,
		analyzer.NewEcommerceCompliance(),
		analyzer.NewGrayscaleEmbedding(),
		duplicate,
		100,
		&zlog.Logger,
	)
}

func TestRun_OK(t *testing.T) {
	store := &fakeStore{rec: pendingRecord("img-1", "img-1.png")}
	files := &fakeFiles{data: map[string][]byte{"img-1.png": encodePNG(t, 640, 480)}}
	p := newTestPipeline(t, store, files, nil, nil)

	outcome, err := p.Run(context.Background(), "img-1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if outcome.Status != domain.StatusCompleted {
		t.Errorf("outcome status = %q, want %q", outcome.Status, domain.StatusCompleted)
	}

	want := []domain.Status{domain.StatusProcessing, domain.StatusCompleted}
	if len(store.statusHistory) != len(want) {
		t.Fatalf("status history = %v, want %v", store.statusHistory, want)
	}
	for i := range want {
		if store.statusHistory[i] != want[i] {
			t.Fatalf("status history = %v, want %v", store.statusHistory, want)
		}
	}

	res := store.committed
	if res == nil {
		t.Fatal("no analysis result committed")
	}
	if res.QualityScore < 0 || res.QualityScore > 1 {
		t.Errorf("QualityScore = %v, want within [0,1]", res.QualityScore)
	}
	if len(res.QualityReasons) == 0 {
		t.Error("QualityReasons is empty")
	}
	if len(res.Embedding) != analyzer.EmbeddingDim {
		t.Errorf("len(Embedding) = %d, want %d", len(res.Embedding), analyzer.EmbeddingDim)
	}
	if res.ClusterID == "" {
		t.Error("ClusterID is empty")
	}
	if res.IsDuplicate {
		t.Error("IsDuplicate = true with no prior embeddings")
	}
}

func TestRun_RecordMissing(t *testing.T) {
	store := &fakeStore{getErr: repoimage.ErrImageNotFound}
	p := newTestPipeline(t, store, &fakeFiles{}, nil, nil)

	_, err := p.Run(context.Background(), "gone")
	if !errors.Is(err, repoimage.ErrImageNotFound) {
		t.Fatalf("Run() error = %v, want ErrImageNotFound", err)
	}
	if len(store.statusHistory) != 0 {
		t.Errorf("status history = %v, want no transitions", store.statusHistory)
	}
}

func TestRun_LeaseConflict(t *testing.T) {
	store := &fakeStore{
		rec:     pendingRecord("img-1", "img-1.png"),
		markErr: repoimage.ErrNotPending,
	}
	p := newTestPipeline(t, store, &fakeFiles{}, nil, nil)

	_, err := p.Run(context.Background(), "img-1")
	if !errors.Is(err, repoimage.ErrNotPending) {
		t.Fatalf("Run() error = %v, want ErrNotPending", err)
	}
	if store.committed != nil || store.failedMsg != "" {
		t.Error("pipeline ran stages despite lease conflict")
	}
}

func TestRun_MissingFile(t *testing.T) {
	store := &fakeStore{rec: pendingRecord("img-1", "img-1.png")}
	p := newTestPipeline(t, store, &fakeFiles{}, nil, nil)

	outcome, err := p.Run(context.Background(), "img-1")
	if err != nil {
		t.Fatalf("Run() error = %v, per-record failures must not be job errors", err)
	}
	if outcome.Status != domain.StatusFailed {
		t.Errorf("outcome status = %q, want %q", outcome.Status, domain.StatusFailed)
	}
	if store.failedMsg == "" {
		t.Error("record not marked failed")
	}
}

func TestRun_UndecodableFile(t *testing.T) {
	store := &fakeStore{rec: pendingRecord("img-1", "img-1.png")}
	files := &fakeFiles{data: map[string][]byte{"img-1.png": []byte("corrupted")}}
	p := newTestPipeline(t, store, files, nil, nil)

	outcome, err := p.Run(context.Background(), "img-1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.Status != domain.StatusFailed {
		t.Errorf("outcome status = %q, want %q", outcome.Status, domain.StatusFailed)
	}
}

func TestRun_AnalyzerPanicBecomesFailure(t *testing.T) {
	store := &fakeStore{rec: pendingRecord("img-1", "img-1.png")}
	files := &fakeFiles{data: map[string][]byte{"img-1.png": encodePNG(t, 640, 480)}}
	p := newTestPipeline(t, store, files, panicQuality{}, nil)

	outcome, err := p.Run(context.Background(), "img-1")
	if err != nil {
		t.Fatalf("Run() error = %v, panic must be converted to a failed outcome", err)
	}
	if outcome.Status != domain.StatusFailed {
		t.Errorf("outcome status = %q, want %q", outcome.Status, domain.StatusFailed)
	}
	if store.failedMsg == "" {
		t.Error("record not marked failed after panic")
	}
}

func TestRun_NeverDuplicateOfSelf(t *testing.T) {
	dup := &fixedDuplicate{}
	store := &fakeStore{
		rec: pendingRecord("img-1", "img-1.png"),
		embeddings: []domain.EmbeddingRef{
			{ID: "img-1", Embedding: []float64{0.5}},
			{ID: "img-2", Embedding: []float64{0.7}},
		},
	}
	files := &fakeFiles{data: map[string][]byte{"img-1.png": encodePNG(t, 640, 480)}}
	p := newTestPipeline(t, store, files, nil, dup)

	if _, err := p.Run(context.Background(), "img-1"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, ref := range dup.seen {
		if ref.ID == "img-1" {
			t.Fatal("duplicate detector received the record's own embedding")
		}
	}
	if len(dup.seen) != 1 {
		t.Errorf("detector saw %d prior embeddings, want 1", len(dup.seen))
	}
}

func TestRun_CommitsDuplicateVerdict(t *testing.T) {
	otherID := "img-2"
	sim := 0.99
	dup := &fixedDuplicate{verdict: &domain.DuplicateVerdict{
		IsDuplicate:   true,
		DuplicateOfID: &otherID,
		Similarity:    &sim,
		ClusterID:     "cluster_abcd1234",
	}}
	store := &fakeStore{rec: pendingRecord("img-1", "img-1.png")}
	files := &fakeFiles{data: map[string][]byte{"img-1.png": encodePNG(t, 640, 480)}}
	p := newTestPipeline(t, store, files, nil, dup)

	outcome, err := p.Run(context.Background(), "img-1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !outcome.IsDuplicate {
		t.Error("outcome.IsDuplicate = false, want true")
	}
	res := store.committed
	if res == nil {
		t.Fatal("no analysis result committed")
	}
	if res.DuplicateOfID == nil || *res.DuplicateOfID != otherID {
		t.Errorf("DuplicateOfID = %v, want %q", res.DuplicateOfID, otherID)
	}
	if res.ClusterID != "cluster_abcd1234" {
		t.Errorf("ClusterID = %q, want %q", res.ClusterID, "cluster_abcd1234")
	}
}
