package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/app/requests"
	"github.com/address-matcher/app/responses"
	"github.com/address-matcher/helpers/utils"
	"github.com/address-matcher/internal/parser"
	"go.uber.org/zap"
)

var (
	ErrEmptyAddress = errors.New("address is empty")
	ErrJobNotFound  = errors.New("job not found")
)

// Job retention defaults
const (
	DefaultJobTTL  = time.Hour
	DefaultMaxJobs = 1000
)

// AddressService parses addresses with caching and runs batch jobs.
type AddressService struct {
	parser    *parser.AddressParser
	cache     ICacheService // nil disables caching
	workers   int
	logger    *zap.Logger
	startTime time.Time
	processed atomic.Int64

	mu         sync.RWMutex
	jobs       map[string]*JobStatus
	jobResults map[string][]*models.AddressResult
	jobTTL     time.Duration // finished jobs older than this are dropped
	maxJobs    int

	jobCtx     context.Context // cancelled by Shutdown
	cancelJobs context.CancelFunc
	jobWG      sync.WaitGroup
}

// JobStatus is the progress of one batch job.
type JobStatus struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Progress  float64   `json:"progress"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAddressService wires a parser and an optional cache. workers bounds
// the batch worker pool.
func NewAddressService(p *parser.AddressParser, cache ICacheService, workers int, logger *zap.Logger) *AddressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p == nil {
		p = parser.NewAddressParser(nil, nil, logger)
	}
	if workers <= 0 {
		workers = 1
	}
	jobCtx, cancel := context.WithCancel(context.Background())
	return &AddressService{
		parser:     p,
		cache:      cache,
		workers:    workers,
		logger:     logger,
		startTime:  time.Now(),
		jobs:       make(map[string]*JobStatus),
		jobResults: make(map[string][]*models.AddressResult),
		jobTTL:     DefaultJobTTL,
		maxJobs:    DefaultMaxJobs,
		jobCtx:     jobCtx,
		cancelJobs: cancel,
	}
}

// SetJobRetention bounds how long finished jobs are kept and how many jobs
// are held at once. Non-positive values keep the current setting.
func (as *AddressService) SetJobRetention(ttl time.Duration, maxJobs int) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if ttl > 0 {
		as.jobTTL = ttl
	}
	if maxJobs > 0 {
		as.maxJobs = maxJobs
	}
}

// VersionTag of the pipeline behind this service.
func (as *AddressService) VersionTag() string {
	return as.parser.VersionTag()
}

// Normalize returns the normalized texts in input order.
func (as *AddressService) Normalize(raws []string) []string {
	out := make([]string, len(raws))
	for i, r := range raws {
		out[i] = as.parser.Normalize(r)
	}
	return out
}

// ParseAddress parses one address, consulting the cache first. The second
// return reports a cache hit.
func (as *AddressService) ParseAddress(ctx context.Context, raw string, opts requests.ParseOptions) (*models.AddressResult, bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, false, ErrEmptyAddress
	}
	res, hit := as.parse(ctx, raw, opts.CacheEnabled())

	if opts.MinConfidence > 0 && res.Confidence < opts.MinConfidence && res.Status == models.StatusParsed {
		out := *res
		out.Status = models.StatusPartial
		res = &out
	}
	return res, hit, nil
}

func (as *AddressService) parse(ctx context.Context, raw string, useCache bool) (*models.AddressResult, bool) {
	key := models.NewCacheKey([]byte(raw), as.parser.VersionTag())
	useCache = useCache && as.cache != nil

	if useCache {
		cached, found, err := as.cache.Get(ctx, key)
		if err != nil {
			as.logger.Warn("Cache read failed", zap.Error(err))
		} else if found {
			return cached, true
		}
	}

	res := as.parser.Parse(ctx, raw)
	res.RawFingerprint = key.Fingerprint()
	as.processed.Add(1)

	if useCache {
		if err := as.cache.Set(ctx, key, res); err != nil {
			as.logger.Warn("Cache write failed", zap.Error(err))
		}
	}
	return res, false
}

// ParseBatch parses raws on a bounded worker pool. results[i] belongs to
// raws[i]. Cancelling ctx stops dispatch and returns ctx's error. progress,
// if set, is called after each record with the number done so far.
func (as *AddressService) ParseBatch(ctx context.Context, raws []string, useCache bool, progress func(done int)) ([]*models.AddressResult, error) {
	results := make([]*models.AddressResult, len(raws))
	idx := make(chan int)
	var wg sync.WaitGroup
	var done atomic.Int64

	for w := 0; w < min(as.workers, max(len(raws), 1)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				results[i], _ = as.parse(ctx, raws[i], useCache)
				n := done.Add(1)
				if progress != nil {
					progress(int(n))
				}
			}
		}()
	}

	var err error
dispatch:
	for i := range raws {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break dispatch
		case idx <- i:
		}
	}
	close(idx)
	wg.Wait()

	if err != nil {
		return nil, fmt.Errorf("batch stopped after %d of %d: %w", done.Load(), len(raws), err)
	}
	as.logger.Info("Batch parsed", zap.Int("total", len(raws)), zap.Int("workers", as.workers))
	return results, nil
}

// EstimateBatchProcessingTime is a rough estimate in seconds.
func (as *AddressService) EstimateBatchProcessingTime(n int) int {
	return n / (500 * as.workers)
}

// StartBatchJob registers a job and runs it in the background. Expired
// jobs are swept first; when the table is still full the oldest finished
// jobs make room. Running jobs are never evicted.
func (as *AddressService) StartBatchJob(raws []string, opts requests.ParseOptions) string {
	jobID := utils.GenerateUUID()
	now := time.Now()
	as.mu.Lock()
	if n := as.pruneJobsLocked(now, 1); n > 0 {
		as.logger.Debug("Pruned batch jobs", zap.Int("removed", n))
	}
	as.jobs[jobID] = &JobStatus{
		JobID:     jobID,
		Status:    responses.JobStatusPending,
		Total:     len(raws),
		Message:   "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
	as.mu.Unlock()

	as.jobWG.Add(1)
	go func() {
		defer as.jobWG.Done()
		as.ProcessBatchJob(as.jobCtx, jobID, raws, opts)
	}()
	return jobID
}

// PruneJobs drops expired finished jobs and returns how many went.
func (as *AddressService) PruneJobs() int {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.pruneJobsLocked(time.Now(), 0)
}

// pruneJobsLocked leaves room for reserve more jobs under the cap.
func (as *AddressService) pruneJobsLocked(now time.Time, reserve int) int {
	removed := 0
	var finished []*JobStatus
	for id, j := range as.jobs {
		if !isFinished(j) {
			continue
		}
		if now.Sub(j.UpdatedAt) > as.jobTTL {
			as.dropJobLocked(id)
			removed++
			continue
		}
		finished = append(finished, j)
	}

	if excess := len(as.jobs) + reserve - as.maxJobs; excess > 0 {
		sort.Slice(finished, func(a, b int) bool {
			return finished[a].CreatedAt.Before(finished[b].CreatedAt)
		})
		for _, j := range finished[:min(excess, len(finished))] {
			as.dropJobLocked(j.JobID)
			removed++
		}
	}
	return removed
}

func (as *AddressService) dropJobLocked(id string) {
	delete(as.jobs, id)
	delete(as.jobResults, id)
}

func isFinished(j *JobStatus) bool {
	return j.Status == responses.JobStatusDone || j.Status == responses.JobStatusFailed
}

// Shutdown cancels running jobs and waits for them until ctx ends.
func (as *AddressService) Shutdown(ctx context.Context) error {
	as.cancelJobs()
	done := make(chan struct{})
	go func() {
		as.jobWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for batch jobs: %w", ctx.Err())
	}
}

// ProcessBatchJob runs a registered job to completion.
func (as *AddressService) ProcessBatchJob(ctx context.Context, jobID string, raws []string, opts requests.ParseOptions) {
	as.updateJob(jobID, func(j *JobStatus) {
		j.Status = responses.JobStatusRunning
		j.Message = "processing"
	})

	total := len(raws)
	results, err := as.ParseBatch(ctx, raws, opts.CacheEnabled(), func(done int) {
		as.updateJob(jobID, func(j *JobStatus) {
			j.Processed = done
			j.Progress = float64(done) / float64(total)
		})
	})
	if err != nil {
		as.logger.Error("Batch job failed", zap.String("job_id", jobID), zap.Error(err))
		as.updateJob(jobID, func(j *JobStatus) {
			j.Status = responses.JobStatusFailed
			j.Message = err.Error()
		})
		return
	}

	as.mu.Lock()
	as.jobResults[jobID] = results
	as.mu.Unlock()
	as.updateJob(jobID, func(j *JobStatus) {
		j.Status = responses.JobStatusDone
		j.Progress = 1
		j.Processed = total
		j.Message = "completed"
	})
	as.logger.Info("Batch job completed", zap.String("job_id", jobID), zap.Int("total_addresses", total))
}

func (as *AddressService) updateJob(jobID string, f func(*JobStatus)) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if j, ok := as.jobs[jobID]; ok {
		f(j)
		j.UpdatedAt = time.Now()
	}
}

// GetJobStatus returns a snapshot of the job.
func (as *AddressService) GetJobStatus(jobID string) (*JobStatus, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	j, ok := as.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	snapshot := *j
	return &snapshot, nil
}

// GetJobResults returns the results of a finished job.
func (as *AddressService) GetJobResults(jobID string) ([]*models.AddressResult, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	results, ok := as.jobResults[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return results, nil
}

// ActiveJobs counts jobs not yet done or failed.
func (as *AddressService) ActiveJobs() int {
	as.mu.RLock()
	defer as.mu.RUnlock()
	n := 0
	for _, j := range as.jobs {
		if !isFinished(j) {
			n++
		}
	}
	return n
}

func (as *AddressService) GetStartTime() time.Time {
	return as.startTime
}

// TotalProcessed counts addresses parsed (cache hits excluded).
func (as *AddressService) TotalProcessed() int64 {
	return as.processed.Load()
}

// Cache returns the configured cache, possibly nil.
func (as *AddressService) Cache() ICacheService {
	return as.cache
}
