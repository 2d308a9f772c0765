package queue

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/JustinPerea/youtube-to-notes-sub002/models"
	"github.com/JustinPerea/youtube-to-notes-sub002/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Common errors
var (
	ErrQueueFull = stderrors.New("job queue is full")
)

// Processor runs one request to completion.
type Processor func(ctx context.Context, req models.ProcessingRequest) (*models.ProcessingResponse, error)

// Archiver persists completed notes to long-term storage.
type Archiver interface {
	SaveNotes(ctx context.Context, jobID string, resp *models.ProcessingResponse) error
}

type Config struct {
	Workers        int
	MaxSize        int
	MaxRetries     int
	ItemDelay      time.Duration
	ProcessTimeout time.Duration
}

// Queue is a priority FIFO for background processing jobs with bounded
// retries. Items are ordered by priority and, within a tier, by enqueue
// time. The same fingerprint is never processed by two workers at once.
type Queue struct {
	mu       sync.Mutex
	tiers    [3][]*models.QueueItem // indexed by models.Priority
	inflight map[string]struct{}    // fingerprints being processed
	length   int
	active   int

	process  Processor
	repo     repository.JobRepository
	archiver Archiver
	limiter  *rate.Limiter
	config   Config

	notify  chan struct{}
	quit    chan struct{}
	runCtx  context.Context
	runStop context.CancelFunc
	wg      sync.WaitGroup
	logger  zerolog.Logger
}

func New(
	process Processor,
	repo repository.JobRepository,
	archiver Archiver,
	cfg Config,
	logger zerolog.Logger,
) *Queue {
	limit := rate.Inf
	if cfg.ItemDelay > 0 {
		limit = rate.Every(cfg.ItemDelay)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	runCtx, runStop := context.WithCancel(context.Background())

	return &Queue{
		inflight: make(map[string]struct{}),
		process:  process,
		repo:     repo,
		archiver: archiver,
		limiter:  rate.NewLimiter(limit, 1),
		config:   cfg,
		notify:   make(chan struct{}, 1),
		quit:     make(chan struct{}),
		runCtx:   runCtx,
		runStop:  runStop,
		logger:   logger.With().Str("component", "queue").Logger(),
	}
}

// Start begins processing jobs.
func (q *Queue) Start() {
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Close shuts down the queue and waits for in-progress items.
func (q *Queue) Close() {
	q.runStop()
	close(q.quit)
	q.wg.Wait()
}

// Enqueue adds a request to the queue and returns the job ID. A request
// whose fingerprint already has a queued or processing job attaches to
// that job instead of creating a duplicate.
func (q *Queue) Enqueue(ctx context.Context, req models.ProcessingRequest, priority models.Priority) (string, error) {
	if q.repo != nil {
		existing, err := q.repo.FindByFingerprint(ctx, req.Fingerprint())
		if err == nil && (existing.Status == models.StatusQueued || existing.IsProcessing()) {
			q.logger.Info().
				Str("job_id", existing.ID).
				Str("fingerprint", req.Fingerprint()).
				Msg("Attached to existing job")
			return existing.ID, nil
		}
	}

	item := &models.QueueItem{
		ID:         uuid.New().String(),
		Request:    req,
		Priority:   priority,
		CreatedAt:  time.Now(),
		MaxRetries: q.config.MaxRetries,
	}

	q.mu.Lock()
	if q.length >= q.config.MaxSize {
		q.mu.Unlock()
		return "", ErrQueueFull
	}
	q.tiers[priority] = append(q.tiers[priority], item)
	q.length++
	q.mu.Unlock()

	if err := q.saveJob(ctx, item, models.StatusQueued, nil); err != nil {
		q.logger.Error().Err(err).Str("job_id", item.ID).Msg("Failed to persist queued job")
	}

	q.logger.Info().
		Str("job_id", item.ID).
		Str("priority", priority.String()).
		Str("video_id", req.VideoRef.VideoID).
		Msg("Job enqueued")

	q.signal()
	return item.ID, nil
}

// Status returns the queue length and whether any worker is processing.
func (q *Queue) Status() (length int, isProcessing bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length, q.active > 0
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	logger := q.logger.With().Int("worker_id", id).Logger()
	logger.Info().Msg("Starting worker")

	for {
		select {
		case <-q.quit:
			logger.Info().Msg("Worker shutting down")
			return
		default:
		}

		item := q.pop()
		if item == nil {
			select {
			case <-q.quit:
				logger.Info().Msg("Worker shutting down")
				return
			case <-q.notify:
				continue
			}
		}

		q.handle(logger, item)
	}
}

// pop removes the next eligible item: highest priority first, FIFO within
// a tier, skipping items whose fingerprint is already being processed.
func (q *Queue) pop() *models.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	for tier := int(models.PriorityHigh); tier >= int(models.PriorityLow); tier-- {
		for i, item := range q.tiers[tier] {
			fp := item.Request.Fingerprint()
			if _, busy := q.inflight[fp]; busy {
				continue
			}
			q.tiers[tier] = append(q.tiers[tier][:i], q.tiers[tier][i+1:]...)
			q.length--
			q.inflight[fp] = struct{}{}
			q.active++
			return item
		}
	}
	return nil
}

func (q *Queue) handle(logger zerolog.Logger, item *models.QueueItem) {
	fp := item.Request.Fingerprint()
	defer func() {
		q.mu.Lock()
		delete(q.inflight, fp)
		q.active--
		q.mu.Unlock()
		q.signal()
	}()

	// Pacing between successive dequeues protects the upstream rate limit.
	if err := q.limiter.Wait(q.runCtx); err != nil {
		q.requeueFront(item)
		return
	}

	logger.Info().
		Str("job_id", item.ID).
		Int("retry_count", item.RetryCount).
		Msg("Processing job")

	if err := q.saveJob(context.Background(), item, models.StatusProcessing, nil); err != nil {
		logger.Error().Err(err).Str("job_id", item.ID).Msg("Failed to persist job status")
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.config.ProcessTimeout)
	start := time.Now()
	resp, err := q.process(ctx, item.Request)
	cancel()
	duration := time.Since(start)

	if err == nil && resp != nil && resp.IsCompleted() {
		logger.Info().
			Str("job_id", item.ID).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("Job completed")
		if saveErr := q.saveJob(context.Background(), item, models.StatusCompleted, resp); saveErr != nil {
			logger.Error().Err(saveErr).Str("job_id", item.ID).Msg("Failed to persist job result")
		}
		q.archive(item.ID, resp)
		return
	}

	failure := "processing failed"
	if err != nil {
		failure = err.Error()
	} else if resp != nil {
		failure = resp.Error
	}

	if item.RetryCount < item.MaxRetries {
		item.RetryCount++
		logger.Warn().
			Str("job_id", item.ID).
			Str("error", failure).
			Int("retry_count", item.RetryCount).
			Msg("Job failed, re-enqueueing")

		q.mu.Lock()
		q.tiers[item.Priority] = append(q.tiers[item.Priority], item)
		q.length++
		q.mu.Unlock()

		if saveErr := q.saveJob(context.Background(), item, models.StatusQueued, nil); saveErr != nil {
			logger.Error().Err(saveErr).Str("job_id", item.ID).Msg("Failed to persist job status")
		}
		return
	}

	logger.Error().
		Str("job_id", item.ID).
		Str("error", failure).
		Int("retry_count", item.RetryCount).
		Msg("Job failed terminally, retries exhausted")

	terminal := &models.ProcessingResponse{Status: models.StatusFailed, Error: failure}
	if resp != nil && resp.IsFailed() {
		terminal = resp
	}
	if saveErr := q.saveJob(context.Background(), item, models.StatusFailed, terminal); saveErr != nil {
		logger.Error().Err(saveErr).Str("job_id", item.ID).Msg("Failed to persist terminal failure")
	}
}

// requeueFront puts an unprocessed item back at the head of its tier,
// used when shutdown interrupts pacing before any work happened.
func (q *Queue) requeueFront(item *models.QueueItem) {
	q.mu.Lock()
	q.tiers[item.Priority] = append([]*models.QueueItem{item}, q.tiers[item.Priority]...)
	q.length++
	q.mu.Unlock()
}

func (q *Queue) archive(jobID string, resp *models.ProcessingResponse) {
	if q.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := q.archiver.SaveNotes(ctx, jobID, resp); err != nil {
		q.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to archive notes")
	}
}

func (q *Queue) saveJob(ctx context.Context, item *models.QueueItem, status models.Status, resp *models.ProcessingResponse) error {
	if q.repo == nil {
		return nil
	}

	job := &models.Job{
		ID:          item.ID,
		VideoURL:    item.Request.VideoRef.URL,
		VideoID:     item.Request.VideoRef.VideoID,
		TemplateID:  item.Request.TemplateID,
		Mode:        item.Request.Mode,
		Fingerprint: item.Request.Fingerprint(),
		Priority:    item.Priority,
		Status:      status,
		RetryCount:  item.RetryCount,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   time.Now(),
	}
	if resp != nil {
		job.Notes = resp.Text
		job.Error = resp.Error
		job.Method = resp.Method
		job.TokenTotal = resp.TokenUsage.TotalTokens
		job.CostCents = resp.CostCents
		job.ProcessingTimeMs = resp.ProcessingTimeMs
	}

	return q.repo.Save(ctx, job)
}
