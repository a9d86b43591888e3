package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-backtester/internal/indicators"
	"github.com/ducminhle1904/signal-backtester/internal/strategy"
	"github.com/ducminhle1904/signal-backtester/pkg/types"
)

// SweepJob is one parameter combination of a sweep
type SweepJob struct {
	ID     string
	Index  int
	Label  string
	Config strategy.Config
}

// SweepResult is the outcome of a sweep job
type SweepResult struct {
	Job      SweepJob
	Result   *BacktestResult
	Duration time.Duration
	Error    error
}

// WorkerPool runs independent backtests in parallel over one read-only candle slice
type WorkerPool struct {
	workerCount int
	jobQueue    chan SweepJob
	resultQueue chan SweepResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	candles        []types.Candle
	initialBalance float64
	series         *seriesCache
	logger         *zap.Logger
	closeOnce      sync.Once
}

// NewWorkerPool creates a pool. Cancelling ctx stops workers from taking new
// jobs; a job already running finishes its run.
func NewWorkerPool(ctx context.Context, workerCount, jobBufferSize int, candles []types.Candle, initialBalance float64, logger *zap.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount:    workerCount,
		jobQueue:       make(chan SweepJob, jobBufferSize),
		resultQueue:    make(chan SweepResult, jobBufferSize),
		ctx:            ctx,
		cancel:         cancel,
		candles:        candles,
		initialBalance: initialBalance,
		series:         newSeriesCache(candles),
		logger:         logger,
	}
}

// Start starts the workers
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Close stops accepting jobs, waits for the workers and closes the result channel
func (wp *WorkerPool) Close() {
	wp.closeOnce.Do(func() {
		close(wp.jobQueue)
		wp.wg.Wait()
		close(wp.resultQueue)
		wp.cancel()
	})
}

// Cancel stops scheduling; queued jobs are dropped
func (wp *WorkerPool) Cancel() {
	wp.cancel()
}

// SubmitJob queues a job unless the pool is cancelled
func (wp *WorkerPool) SubmitJob(job SweepJob) error {
	select {
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	default:
	}

	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the channel of completed jobs
func (wp *WorkerPool) Results() <-chan SweepResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	for {
		// cancellation wins over a ready job
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.processJob(job)
			wp.logger.Debug("sweep job done",
				zap.Int("worker", workerID),
				zap.String("job", job.Label),
				zap.Duration("took", result.Duration),
				zap.Error(result.Error),
			)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob runs one backtest to completion
func (wp *WorkerPool) processJob(job SweepJob) SweepResult {
	startTime := time.Now()
	result := SweepResult{Job: job}

	policy, err := strategy.New(job.Config)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(startTime)
		return result
	}

	set, err := wp.series.set(policy.Requirements().Specs())
	if err != nil {
		result.Error = err
		result.Duration = time.Since(startTime)
		return result
	}

	engine := NewBacktestEngine(wp.initialBalance, policy)
	result.Result, result.Error = engine.Run(wp.candles, set)
	result.Duration = time.Since(startTime)
	return result
}

// seriesCache shares computed indicator series between jobs. Values are never
// written after they are stored.
type seriesCache struct {
	candles []types.Candle
	mu      sync.Mutex
	byKey   map[string]indicators.Series
}

func newSeriesCache(candles []types.Candle) *seriesCache {
	return &seriesCache{candles: candles, byKey: make(map[string]indicators.Series)}
}

func (c *seriesCache) set(specs []indicators.Spec) (indicators.Set, error) {
	out := make(indicators.Set, len(specs))
	for _, spec := range specs {
		key := fmt.Sprintf("%s/%d", spec.Kind, spec.Period)

		c.mu.Lock()
		s, ok := c.byKey[key]
		c.mu.Unlock()

		if !ok {
			computed, err := indicators.Compute(c.candles, []indicators.Spec{spec})
			if err != nil {
				return nil, err
			}
			s = computed[spec.Role]

			c.mu.Lock()
			c.byKey[key] = s
			c.mu.Unlock()
		}
		out[spec.Role] = s
	}
	return out, nil
}

// SweepOptions configures RunSweep
type SweepOptions struct {
	Workers        int
	InitialBalance float64
	Logger         *zap.Logger
	// OnResult is called from the collecting goroutine for every finished job
	OnResult func(SweepResult)
}

// RunSweep runs every job and returns the results in job order. When ctx is
// cancelled the jobs not yet started are skipped and ctx.Err() is returned
// with the results collected so far.
func RunSweep(ctx context.Context, candles []types.Candle, jobs []SweepJob, opts SweepOptions) ([]SweepResult, error) {
	pool := NewWorkerPool(ctx, opts.Workers, len(jobs), candles, opts.InitialBalance, opts.Logger)
	pool.Start()

	go func() {
		defer pool.Close()
		for i := range jobs {
			if err := pool.SubmitJob(jobs[i]); err != nil {
				return
			}
		}
	}()

	results := make([]SweepResult, 0, len(jobs))
	for r := range pool.Results() {
		if opts.OnResult != nil {
			opts.OnResult(r)
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Job.Index < results[j].Job.Index })

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// ProgressTracker tracks the progress of a sweep
type ProgressTracker struct {
	total     int
	completed int
	failed    int
	startTime time.Time
	mutex     sync.RWMutex
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
	}
}

// Record counts one finished job
func (pt *ProgressTracker) Record(r SweepResult) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()
	pt.completed++
	if r.Error != nil {
		pt.failed++
	}
}

// GetProgress returns completed, failed, total and percent done
func (pt *ProgressTracker) GetProgress() (int, int, int, float64) {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	if pt.total == 0 {
		return 0, 0, 0, 100
	}
	return pt.completed, pt.failed, pt.total, float64(pt.completed) / float64(pt.total) * 100
}

// EstimateTimeRemaining estimates the remaining time based on current progress
func (pt *ProgressTracker) EstimateTimeRemaining() time.Duration {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	if pt.completed == 0 {
		return 0
	}

	elapsed := time.Since(pt.startTime)
	avgTimePerItem := elapsed / time.Duration(pt.completed)
	remaining := pt.total - pt.completed

	return avgTimePerItem * time.Duration(remaining)
}
