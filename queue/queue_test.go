package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JustinPerea/youtube-to-notes-sub002/errors"
	"github.com/JustinPerea/youtube-to-notes-sub002/models"
	"github.com/rs/zerolog"
)

type fakeRepo struct {
	mu    sync.Mutex
	jobs  map[string]*models.Job
	saves []models.Status
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: make(map[string]*models.Job)}
}

func (r *fakeRepo) Save(ctx context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	r.saves = append(r.saves, job.Status)
	return nil
}

func (r *fakeRepo) Find(ctx context.Context, id string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		return job, nil
	}
	return nil, errors.NotFound("fakeRepo.Find", nil, "no such job")
}

func (r *fakeRepo) FindByFingerprint(ctx context.Context, fingerprint string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *models.Job
	for _, job := range r.jobs {
		if job.Fingerprint != fingerprint {
			continue
		}
		if newest == nil || job.CreatedAt.After(newest.CreatedAt) {
			newest = job
		}
	}
	if newest == nil {
		return nil, errors.NotFound("fakeRepo.FindByFingerprint", nil, "no such job")
	}
	return newest, nil
}

func (r *fakeRepo) status(id string) models.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		return job.Status
	}
	return ""
}

type fakeArchiver struct {
	calls int64
}

func (a *fakeArchiver) SaveNotes(ctx context.Context, jobID string, resp *models.ProcessingResponse) error {
	atomic.AddInt64(&a.calls, 1)
	return nil
}

func requestFor(videoID string) models.ProcessingRequest {
	return models.ProcessingRequest{
		VideoRef: models.VideoReference{
			URL:     "https://youtu.be/" + videoID,
			VideoID: videoID,
		},
		TemplateID: "basic-summary",
		Mode:       models.ModeAuto,
	}
}

func completedResponse() *models.ProcessingResponse {
	return &models.ProcessingResponse{Status: models.StatusCompleted, Text: "notes"}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPopOrdersByPriorityThenFIFO(t *testing.T) {
	q := New(nil, nil, nil, Config{MaxSize: 10}, zerolog.Nop())

	enqueued := []struct {
		videoID  string
		priority models.Priority
	}{
		{"video-low-1", models.PriorityLow},
		{"video-high-1", models.PriorityHigh},
		{"video-med-1", models.PriorityMedium},
		{"video-high-2", models.PriorityHigh},
	}
	for _, e := range enqueued {
		if _, err := q.Enqueue(context.Background(), requestFor(e.videoID), e.priority); err != nil {
			t.Fatalf("enqueue %s: %v", e.videoID, err)
		}
	}

	want := []string{"video-high-1", "video-high-2", "video-med-1", "video-low-1"}
	for i, wantID := range want {
		item := q.pop()
		if item == nil {
			t.Fatalf("pop %d returned nil", i)
		}
		if item.Request.VideoRef.VideoID != wantID {
			t.Errorf("pop %d = %s, want %s", i, item.Request.VideoRef.VideoID, wantID)
		}
	}
	if item := q.pop(); item != nil {
		t.Errorf("empty queue should pop nil, got %s", item.ID)
	}
}

func TestPopSkipsInflightFingerprints(t *testing.T) {
	q := New(nil, nil, nil, Config{MaxSize: 10}, zerolog.Nop())

	req := requestFor("same-video-1")
	if _, err := q.Enqueue(context.Background(), req, models.PriorityHigh); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(context.Background(), req, models.PriorityHigh); err != nil {
		t.Fatal(err)
	}

	first := q.pop()
	if first == nil {
		t.Fatal("first pop returned nil")
	}
	if second := q.pop(); second != nil {
		t.Errorf("duplicate fingerprint must wait for the first to finish, got %s", second.ID)
	}
}

func TestEnqueueRejectsWhenFull(t *testing.T) {
	q := New(nil, nil, nil, Config{MaxSize: 1}, zerolog.Nop())

	if _, err := q.Enqueue(context.Background(), requestFor("video-aaa-01"), models.PriorityLow); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if _, err := q.Enqueue(context.Background(), requestFor("video-bbb-02"), models.PriorityLow); err != ErrQueueFull {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestQueueProcessesAndArchives(t *testing.T) {
	repo := newFakeRepo()
	archiver := &fakeArchiver{}
	var calls int64
	process := func(ctx context.Context, req models.ProcessingRequest) (*models.ProcessingResponse, error) {
		atomic.AddInt64(&calls, 1)
		return completedResponse(), nil
	}

	q := New(process, repo, archiver, Config{
		Workers:        1,
		MaxSize:        10,
		MaxRetries:     3,
		ProcessTimeout: time.Minute,
	}, zerolog.Nop())
	q.Start()
	defer q.Close()

	id, err := q.Enqueue(context.Background(), requestFor("video-ok-001"), models.PriorityMedium)
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, "job completion", func() bool {
		return repo.status(id) == models.StatusCompleted
	})

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("expected 1 processing call, got %d", got)
	}
	if got := atomic.LoadInt64(&archiver.calls); got != 1 {
		t.Errorf("completed job should be archived once, got %d", got)
	}

	job, _ := repo.Find(context.Background(), id)
	if job.Notes != "notes" {
		t.Errorf("persisted job should carry the notes, got %q", job.Notes)
	}
}

func TestQueueRetriesExactlyMaxRetriesTimes(t *testing.T) {
	repo := newFakeRepo()
	var calls int64
	process := func(ctx context.Context, req models.ProcessingRequest) (*models.ProcessingResponse, error) {
		atomic.AddInt64(&calls, 1)
		return &models.ProcessingResponse{Status: models.StatusFailed, Error: "backend down"}, nil
	}

	const maxRetries = 2
	q := New(process, repo, nil, Config{
		Workers:        1,
		MaxSize:        10,
		MaxRetries:     maxRetries,
		ProcessTimeout: time.Minute,
	}, zerolog.Nop())
	q.Start()
	defer q.Close()

	id, err := q.Enqueue(context.Background(), requestFor("video-bad-001"), models.PriorityHigh)
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, "terminal failure", func() bool {
		return repo.status(id) == models.StatusFailed
	})

	// Initial attempt plus maxRetries re-runs.
	if got := atomic.LoadInt64(&calls); got != maxRetries+1 {
		t.Errorf("expected %d attempts, got %d", maxRetries+1, got)
	}

	job, _ := repo.Find(context.Background(), id)
	if job.Error != "backend down" {
		t.Errorf("terminal job should keep the failure message, got %q", job.Error)
	}
	if job.RetryCount != maxRetries {
		t.Errorf("retry count = %d, want %d", job.RetryCount, maxRetries)
	}
}

func TestEnqueueAttachesToExistingJob(t *testing.T) {
	repo := newFakeRepo()
	q := New(nil, repo, nil, Config{MaxSize: 10}, zerolog.Nop())

	req := requestFor("video-dup-001")
	first, err := q.Enqueue(context.Background(), req, models.PriorityMedium)
	if err != nil {
		t.Fatal(err)
	}
	second, err := q.Enqueue(context.Background(), req, models.PriorityMedium)
	if err != nil {
		t.Fatal(err)
	}

	if second != first {
		t.Errorf("duplicate request should attach to job %s, got %s", first, second)
	}
	if length, _ := q.Status(); length != 1 {
		t.Errorf("queue length = %d, want 1", length)
	}
}

func TestCloseReturnsWithPendingItems(t *testing.T) {
	repo := newFakeRepo()
	process := func(ctx context.Context, req models.ProcessingRequest) (*models.ProcessingResponse, error) {
		return completedResponse(), nil
	}

	// A long item delay keeps the worker parked in the limiter once the
	// first item has consumed the initial token.
	q := New(process, repo, nil, Config{
		Workers:        1,
		MaxSize:        10,
		MaxRetries:     1,
		ItemDelay:      time.Hour,
		ProcessTimeout: time.Minute,
	}, zerolog.Nop())
	q.Start()

	first, err := q.Enqueue(context.Background(), requestFor("video-fst-001"), models.PriorityHigh)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(context.Background(), requestFor("video-snd-002"), models.PriorityHigh); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "first job completion", func() bool {
		return repo.status(first) == models.StatusCompleted
	})

	closed := make(chan struct{})
	go func() {
		q.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return with a pending item in the queue")
	}

	if length, _ := q.Status(); length != 1 {
		t.Errorf("pending item should remain queued after Close, length = %d", length)
	}
}

func TestStatus(t *testing.T) {
	q := New(nil, nil, nil, Config{MaxSize: 10}, zerolog.Nop())

	length, processing := q.Status()
	if length != 0 || processing {
		t.Errorf("empty queue status = (%d, %v), want (0, false)", length, processing)
	}

	if _, err := q.Enqueue(context.Background(), requestFor("video-one-01"), models.PriorityLow); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(context.Background(), requestFor("video-two-02"), models.PriorityLow); err != nil {
		t.Fatal(err)
	}

	length, _ = q.Status()
	if length != 2 {
		t.Errorf("queue length = %d, want 2", length)
	}

	q.pop()
	length, processing = q.Status()
	if length != 1 || !processing {
		t.Errorf("after pop status = (%d, %v), want (1, true)", length, processing)
	}
}
