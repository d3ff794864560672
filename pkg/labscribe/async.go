package labscribe

import "context"

// Future is the pending result of an asynchronous workflow.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func goFuture[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the workflow finishes.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// AsyncSession runs Session workflows without blocking the caller. Each
// workflow runs its requests in order on its own goroutine; separate calls are
// not ordered relative to each other unless the caller waits in between.
type AsyncSession struct {
	s *Session
}

// Async returns the non-blocking form of s.
func (s *Session) Async() *AsyncSession { return &AsyncSession{s: s} }

func (a *AsyncSession) InitMetrics(ctx context.Context, expName string, metricKeys, phases []string) *Future[Block] {
	return goFuture(func() (Block, error) {
		return a.s.InitMetrics(ctx, expName, metricKeys, phases)
	})
}

func (a *AsyncSession) UploadMetrics(ctx context.Context, metrics Record, iter interface{}, col int) *Future[int] {
	return goFuture(func() (int, error) {
		return a.s.UploadMetrics(ctx, metrics, iter, col)
	})
}

func (a *AsyncSession) UploadMetricsAt(ctx context.Context, metrics Record, iter interface{}, row, col int) *Future[struct{}] {
	return goFuture(func() (struct{}, error) {
		return struct{}{}, a.s.UploadMetricsAt(ctx, metrics, iter, row, col)
	})
}

func (a *AsyncSession) BeginExperiment(ctx context.Context, expName string, args Record) *Future[int] {
	return goFuture(func() (int, error) {
		return a.s.BeginExperiment(ctx, expName, args)
	})
}

func (a *AsyncSession) UploadResults(ctx context.Context, expName string, results Record, row, col int) *Future[struct{}] {
	return goFuture(func() (struct{}, error) {
		return struct{}{}, a.s.UploadResults(ctx, expName, results, row, col)
	})
}

func (a *AsyncSession) AddRow(ctx context.Context, values []interface{}) *Future[struct{}] {
	return goFuture(func() (struct{}, error) {
		return struct{}{}, a.s.AddRow(ctx, values)
	})
}

func (a *AsyncSession) ClearWorksheet(ctx context.Context) *Future[struct{}] {
	return goFuture(func() (struct{}, error) {
		return struct{}{}, a.s.ClearWorksheet(ctx)
	})
}
