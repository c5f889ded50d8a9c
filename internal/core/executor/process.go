package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/logger"
	"picpic.bench/internal/core/queue"
)

const (
	WorkerSubcommand    = "worker"
	defaultStartTimeout = 30 * time.Second
	stopGrace           = 5 * time.Second
)

type ProcessConfig struct {
	// Command is the argv of one worker process. When empty the running
	// executable is re-invoked with the worker subcommand.
	Command []string
	// Env is appended to the parent's environment for every worker.
	Env []string
	// Transform is the registered transform name each worker builds.
	Transform string
	// ItemTimeout is the item bound the children enforce themselves. The parent waits
	// ItemTimeout+ReplyMargin for a reply before it kills and respawns the worker, so a
	// child reporting its own timeout is never mistaken for a hung one.
	ItemTimeout time.Duration
	// ReplyMargin defaults to the stop grace period.
	ReplyMargin  time.Duration
	StartTimeout time.Duration
	Stderr       io.Writer
}

// Process runs workers as separate OS processes, each with its own memory. The
// parent holds the task queue; each child only ever sees the item it was handed.
type Process struct {
	cfg ProcessConfig
}

func NewProcess(cfg ProcessConfig) *Process {
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = defaultStartTimeout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.ReplyMargin <= 0 {
		cfg.ReplyMargin = stopGrace
	}
	return &Process{cfg: cfg}
}

func (p *Process) Kind() domain.ExecutorKind { return domain.ExecutorProcess }

// Run starts a pool of workers, feeds them until the queue is exhausted and tears the
// pool down before returning. Start-up and teardown are part of the pass.
func (p *Process) Run(ctx context.Context, ds *domain.Dataset, workers int) (*domain.RunOutcome, error) {
	if err := domain.ValidateWorkerCount(workers); err != nil {
		return nil, err
	}

	pool, err := p.startPool(ctx, workers)
	if err != nil {
		return nil, err
	}
	defer pool.close()

	q := queue.New(ds)
	rec := newRecorder(domain.ExecutorProcess, ds.Len())

	g, gctx := errgroup.WithContext(ctx)
	for slot := range pool.procs {
		g.Go(func() error {
			return p.drive(gctx, pool, slot, q, rec)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rec.finish(), nil
}

// drive is the parent-side loop of one worker slot: pull, send, await, record.
func (p *Process) drive(ctx context.Context, pool *processPool, slot int, q *queue.TaskQueue, rec *recorder) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		task := q.Next()
		if task.Done {
			return nil
		}

		w := pool.procs[slot]
		resp, err := w.call(ctx, task, p.replyTimeout())
		if err == nil {
			if resp.Error != "" {
				rec.failure(task.Item.SourcePath, errors.New(resp.Error))
				continue
			}
			rec.success(domain.OutputRecord{
				SourcePath:      task.Item.SourcePath,
				DestinationPath: resp.Destination,
				Digest:          resp.Digest,
				Bytes:           resp.Bytes,
			})
			continue
		}

		// The worker crashed, hung or broke the protocol. The item is lost, the
		// worker is replaced and the slot keeps pulling.
		rec.failure(task.Item.SourcePath, fmt.Errorf("worker %d (pid %d) lost: %w", slot, w.pid, err))
		w.kill()
		pool.procs[slot] = nil
		if ctx.Err() != nil {
			return ctx.Err()
		}

		nw, err := p.startWorker(ctx, slot)
		if err != nil {
			return err
		}
		logger.Info("Worker respawned", "slot", slot, "pid", nw.pid)
		pool.procs[slot] = nw
	}
}

// replyTimeout is how long the parent waits for one reply; zero means no bound.
func (p *Process) replyTimeout() time.Duration {
	if p.cfg.ItemTimeout <= 0 {
		return 0
	}
	return p.cfg.ItemTimeout + p.cfg.ReplyMargin
}

func (p *Process) argv() ([]string, error) {
	if len(p.cfg.Command) > 0 {
		return p.cfg.Command, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return []string{exe, WorkerSubcommand}, nil
}

// processPool is owned by exactly one Run. Slot i is only touched by its own
// drive goroutine until close.
type processPool struct {
	procs []*workerProc
}

func (p *Process) startPool(ctx context.Context, workers int) (*processPool, error) {
	pool := &processPool{procs: make([]*workerProc, workers)}

	var g errgroup.Group
	for slot := 0; slot < workers; slot++ {
		g.Go(func() error {
			w, err := p.startWorker(ctx, slot)
			if err != nil {
				return err
			}
			pool.procs[slot] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		pool.close()
		return nil, err
	}
	logger.Debug("Worker pool started", "workers", workers)
	return pool, nil
}

func (pool *processPool) close() {
	var wg sync.WaitGroup
	for _, w := range pool.procs {
		if w == nil {
			continue
		}
		wg.Add(1)
		go func(w *workerProc) {
			defer wg.Done()
			w.stop(stopGrace)
		}(w)
	}
	wg.Wait()
}

type workerProc struct {
	slot     int
	pid      int
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	enc      *json.Encoder
	replies  chan response
	readDone chan struct{}
	readErr  error
}

func startupFailure(slot int, msg string, err error) error {
	return domain.Wrap(domain.KindWorkerStartupFailure, "start_worker", fmt.Sprintf("worker %d: %s", slot, msg), err)
}

func (p *Process) startWorker(ctx context.Context, slot int) (*workerProc, error) {
	argv, err := p.argv()
	if err != nil {
		return nil, startupFailure(slot, "resolve executable", err)
	}

	// Not CommandContext: the pool owns the process lifetime and stops it explicitly.
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), p.cfg.Env...)
	cmd.Stderr = p.cfg.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, startupFailure(slot, "stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, startupFailure(slot, "stdout pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, startupFailure(slot, "exec", err)
	}

	w := &workerProc{
		slot:     slot,
		pid:      cmd.Process.Pid,
		cmd:      cmd,
		stdin:    stdin,
		enc:      json.NewEncoder(stdin),
		replies:  make(chan response, 1),
		readDone: make(chan struct{}),
	}
	dec := json.NewDecoder(stdout)

	abort := func(msg string, cause error) error {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return startupFailure(slot, msg, cause)
	}

	if err := w.enc.Encode(hello{Transform: p.cfg.Transform}); err != nil {
		return nil, abort("send hello", err)
	}

	var r ready
	handshake := make(chan error, 1)
	go func() { handshake <- dec.Decode(&r) }()

	timer := time.NewTimer(p.cfg.StartTimeout)
	defer timer.Stop()
	select {
	case err := <-handshake:
		if err != nil {
			return nil, abort("read ready", err)
		}
	case <-timer.C:
		return nil, abort("handshake", fmt.Errorf("no ready signal within %s", p.cfg.StartTimeout))
	case <-ctx.Done():
		return nil, abort("handshake", ctx.Err())
	}
	if !r.OK {
		return nil, abort("worker refused", errors.New(r.Error))
	}

	go w.readLoop(dec)
	return w, nil
}

func (w *workerProc) readLoop(dec *json.Decoder) {
	defer close(w.readDone)
	defer close(w.replies)
	for {
		var resp response
		if err := dec.Decode(&resp); err != nil {
			if !errors.Is(err, io.EOF) {
				w.readErr = err
			}
			return
		}
		w.replies <- resp
	}
}

func (w *workerProc) call(ctx context.Context, task queue.Task, timeout time.Duration) (response, error) {
	req := request{
		Seq:         task.Seq,
		Source:      task.Item.SourcePath,
		Destination: task.Item.DestinationPath,
		Persist:     task.Item.PersistOutput,
	}
	if err := w.enc.Encode(req); err != nil {
		return response{}, fmt.Errorf("send request: %w", err)
	}

	var timeoutC <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timeoutC = t.C
	}

	select {
	case resp, ok := <-w.replies:
		if !ok {
			<-w.readDone
			if w.readErr != nil {
				return response{}, fmt.Errorf("read response: %w", w.readErr)
			}
			return response{}, errors.New("worker process exited")
		}
		if resp.Seq != task.Seq {
			return response{}, fmt.Errorf("protocol: response seq %d, want %d", resp.Seq, task.Seq)
		}
		return resp, nil
	case <-timeoutC:
		return response{}, fmt.Errorf("no reply within %s", timeout)
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

// stop closes stdin so the worker exits on EOF, killing it after grace.
func (w *workerProc) stop(grace time.Duration) {
	_ = w.stdin.Close()
	select {
	case <-w.readDone:
	case <-time.After(grace):
		logger.Warn("Worker did not exit, killing", "slot", w.slot, "pid", w.pid)
		_ = w.cmd.Process.Kill()
		<-w.readDone
	}
	if err := w.cmd.Wait(); err != nil {
		logger.Debug("Worker exited", "slot", w.slot, "pid", w.pid, "error", err)
	}
}

func (w *workerProc) kill() {
	_ = w.stdin.Close()
	_ = w.cmd.Process.Kill()
	<-w.readDone
	_ = w.cmd.Wait()
}
