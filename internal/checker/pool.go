package checker

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// fileThreshold is the working-set size below which a single
// subprocess suffices (spec §4.7).
const fileThreshold = 30

// maxPoolSize caps subprocess count regardless of available
// parallelism (spec §4.7).
const maxPoolSize = 4

// ComputePoolSize implements spec §4.7's sizing rule exactly: 1 below
// the threshold, otherwise min(available_parallelism, 4, files/10).
func ComputePoolSize(numFiles int) int {
	if numFiles < fileThreshold {
		return 1
	}
	n := runtime.GOMAXPROCS(0)
	if n > maxPoolSize {
		n = maxPoolSize
	}
	if byLoad := numFiles / 10; byLoad < n {
		n = byLoad
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Partition splits files by index into n chunks (spec §4.7: "Files
// are partitioned by index into N chunks"): file i goes to chunk
// i % n, so the chunks interleave rather than being contiguous ranges.
func Partition(files []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	chunks := make([][]string, n)
	for i, f := range files {
		idx := i % n
		chunks[idx] = append(chunks[idx], f)
	}
	return chunks
}

// Spawn starts one checker subprocess and returns its transport.
type Spawn func(ctx context.Context, chunk []string) (Transport, error)

// Pool owns N subprocess Clients, each serving its own file chunk, and
// a shared diagnostics cache merging push and pull results (spec
// §4.7, "Concurrency contract").
type Pool struct {
	RunID   string
	clients []*Client
	chunks  [][]string
	cache   *DiagnosticsCache
	logger  *zap.Logger
	sem     *semaphore.Weighted

	assignMu   sync.Mutex
	assignment map[string]int // uri -> worker index, from chunks at spawn time
}

// NewPool spawns ComputePoolSize(len(files)) subprocesses via spawn,
// each given its file chunk, using golang.org/x/sync/errgroup so the
// first SpawnFailed cancels the remaining spawns instead of leaking
// half-started processes.
func NewPool(ctx context.Context, files []string, spawn Spawn, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := ComputePoolSize(len(files))
	chunks := Partition(files, n)
	runID := uuid.NewString()

	clients := make([]*Client, n)
	cache := NewDiagnosticsCache()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			t, err := spawn(gctx, chunks[i])
			if err != nil {
				logger.Error("checker: spawn failed", zap.String("run", runID), zap.Int("worker", i), zap.Error(err))
				return &RPCError{Code: ErrSpawnFailed, Message: err.Error()}
			}
			c := NewClient(t, ClientOptions{
				Logger: logger.With(zap.Int("worker", i)),
				OnPublish: func(uri string, diags []Diagnostic) {
					cache.Set(uri, diags)
				},
			})
			if err := c.Initialize(gctx, 0, "", map[string]any{}, nil); err != nil {
				c.Close()
				logger.Error("checker: initialize failed", zap.String("run", runID), zap.Int("worker", i), zap.Error(err))
				return err
			}
			clients[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, c := range clients {
			if c != nil {
				c.Close()
			}
		}
		return nil, err
	}

	assignment := make(map[string]int, len(files))
	for i, chunk := range chunks {
		for _, f := range chunk {
			assignment[f] = i
		}
	}

	return &Pool{
		RunID:      runID,
		clients:    clients,
		chunks:     chunks,
		assignment: assignment,
		cache:      cache,
		logger:     logger,
		sem:        semaphore.NewWeighted(int64(n)),
	}, nil
}

// Cache exposes the pool's merged push/pull diagnostics cache.
func (p *Pool) Cache() *DiagnosticsCache { return p.cache }

// clientFor returns the subprocess that owns uri, per the Partition
// assignment recorded in NewPool (spec §4.7: "each subprocess receives
// only its chunk to open" — diagnostics for a URI must be asked of the
// worker that actually opened it, not an arbitrary one). A uri opened
// later via Open is assigned there and remembered here too.
func (p *Pool) clientFor(uri string) *Client {
	p.assignMu.Lock()
	idx, ok := p.assignment[uri]
	p.assignMu.Unlock()
	if !ok {
		idx = 0
	}
	return p.clients[idx]
}

// Open opens uri on the worker that owns it, registering the
// assignment if uri wasn't part of the pool's original Partition (e.g.
// a virtual module synthesized after the pool was spawned).
func (p *Pool) Open(uri, languageID, text string) error {
	p.assignMu.Lock()
	idx, ok := p.assignment[uri]
	if !ok {
		idx = 0
		p.assignment[uri] = idx
	}
	p.assignMu.Unlock()
	return p.clients[idx].DidOpen(uri, languageID, 1, text)
}

// Diagnostic pulls diagnostics for uri from the worker that should own
// it, bounded by the pool's concurrency semaphore.
func (p *Pool) Diagnostic(ctx context.Context, uri string) ([]Diagnostic, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)
	c := p.clientFor(uri)
	diags, err := c.Diagnostic(ctx, uri)
	if err != nil {
		return nil, err
	}
	p.cache.Set(uri, diags)
	return diags, nil
}

// Shutdown drains every subprocess's pending requests and tears it
// down (spec §4.7: "shutdown drains pending requests with
// ProcessTerminated").
func (p *Pool) Shutdown(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range p.clients {
		c := c
		g.Go(func() error {
			return c.Shutdown(gctx)
		})
	}
	_ = g.Wait()
}
