// Package dispatch funnels commands from every origin (hotkeys, tray menu,
// control API) into one queue drained by a single goroutine, so session
// operations never overlap.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clipmarker/clipmarker-agent/internal/backend"
	"github.com/clipmarker/clipmarker-agent/internal/logging"
)

// DefaultQueueSize is the queue capacity when none is configured.
const DefaultQueueSize = 64

// Controller is the session surface commands are routed to.
type Controller interface {
	NewSession(ctx context.Context) (string, error)
	CaptureStart(ctx context.Context) (string, error)
	CaptureEnd(ctx context.Context) (string, error)
	CanCommit() bool
	CommitDraft(ctx context.Context, customName string) (string, error)
	ExportSession(ctx context.Context, outputFolder string) (*backend.Artifact, error)
	StartClipping(ctx context.Context, outputFolder string) error
	ExportEDL(outputFolder string) (string, error)
}

// Folders supplies the configured output folder at dispatch time.
type Folders interface {
	OutputFolder() string
}

// Prompter asks the user for a clip name. An empty answer means no custom
// name.
type Prompter interface {
	PromptName(ctx context.Context) (string, error)
}

// Foregrounder brings the host window to the front.
type Foregrounder interface {
	Foreground() error
}

// Journal persists command state transitions.
type Journal interface {
	RecordCommand(ctx context.Context, cmd *Command) error
	UpdateCommandState(ctx context.Context, seq int64, state State, errMsg string) error
}

// Options configures a Dispatcher. Zero values are valid.
type Options struct {
	QueueSize    int
	LastSeq      int64
	Prompter     Prompter
	Foregrounder Foregrounder
	Journal      Journal
	Logger       *slog.Logger
}

type job struct {
	cmd  Command
	fn   func(ctx context.Context) error
	done chan Result
}

// Dispatcher serializes commands onto one consumer goroutine.
type Dispatcher struct {
	ctrl     Controller
	folders  Folders
	prompter Prompter
	fg       Foregrounder
	journal  Journal
	logger   *slog.Logger

	handlers map[Tag]func(ctx context.Context) error

	// mu orders sequence numbers with queue pushes and with the stop.
	mu      sync.Mutex
	queue   chan *job
	seq     atomic.Int64
	stopped bool
	running atomic.Bool
}

func New(ctrl Controller, folders Folders, opts Options) *Dispatcher {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	d := &Dispatcher{
		ctrl:     ctrl,
		folders:  folders,
		prompter: opts.Prompter,
		fg:       opts.Foregrounder,
		journal:  opts.Journal,
		logger:   logging.WithComponent(logger, "dispatch"),
		queue:    make(chan *job, size),
	}
	d.seq.Store(opts.LastSeq)

	d.handlers = map[Tag]func(ctx context.Context) error{
		TagNewSession: func(ctx context.Context) error {
			_, err := ctrl.NewSession(ctx)
			return err
		},
		TagStartTime: func(ctx context.Context) error {
			_, err := ctrl.CaptureStart(ctx)
			return err
		},
		TagEndTime: func(ctx context.Context) error {
			_, err := ctrl.CaptureEnd(ctx)
			return err
		},
		TagQuickAdd: func(ctx context.Context) error {
			_, err := ctrl.CommitDraft(ctx, "")
			return err
		},
		TagNameClip:    d.nameClip,
		TagExportClips: d.exportSession,
		TagSaveProject: d.exportSession,
		TagClipVideos: func(ctx context.Context) error {
			return ctrl.StartClipping(ctx, d.outputFolder())
		},
		TagExportEDL: func(ctx context.Context) error {
			_, err := ctrl.ExportEDL(d.outputFolder())
			return err
		},
	}
	return d
}

// Start drains the queue until ctx is done. Commands still queued at that
// point, and any submitted afterwards, are rejected with ErrStopped. A
// stopped dispatcher does not restart.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.running.Swap(true) {
		return
	}
	defer d.running.Store(false)

	d.logger.Info("dispatcher started", "queue_size", cap(d.queue))

	for {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			d.stopped = true
			d.mu.Unlock()
			d.drain()
			d.logger.Info("dispatcher stopped")
			return
		case j := <-d.queue:
			d.run(ctx, j)
		}
	}
}

// Submit queues the command for tag and returns its sequence number and a
// channel that receives the result. It never blocks.
func (d *Dispatcher) Submit(tag Tag, origin Origin) (int64, <-chan Result, error) {
	fn, ok := d.handlers[tag]
	if !ok {
		return 0, nil, &UnknownCommandError{Name: string(tag)}
	}
	return d.enqueue(string(tag), origin, fn)
}

// Do runs fn on the dispatch goroutine and waits for it. Cancelling ctx
// stops the wait, not fn.
func (d *Dispatcher) Do(ctx context.Context, name string, origin Origin, fn func(ctx context.Context) error) error {
	_, done, err := d.enqueue(name, origin, fn)
	if err != nil {
		return err
	}
	select {
	case r := <-done:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Depth returns the number of queued commands.
func (d *Dispatcher) Depth() int {
	return len(d.queue)
}

// IsRunning reports whether Start is draining the queue.
func (d *Dispatcher) IsRunning() bool {
	return d.running.Load()
}

func (d *Dispatcher) enqueue(name string, origin Origin, fn func(ctx context.Context) error) (int64, <-chan Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		d.logger.Warn("command dropped", "command", name, "origin", origin, "error", ErrStopped)
		return 0, nil, ErrStopped
	}
	if len(d.queue) == cap(d.queue) {
		d.logger.Warn("command dropped", "command", name, "origin", origin, "error", ErrQueueFull)
		return 0, nil, ErrQueueFull
	}

	now := time.Now()
	j := &job{
		cmd: Command{
			Seq:        d.seq.Add(1),
			Tag:        name,
			Origin:     origin,
			State:      StateReceived,
			ReceivedAt: now,
			UpdatedAt:  now,
		},
		fn:   fn,
		done: make(chan Result, 1),
	}
	// Only enqueue pushes, under mu, so the length check above holds.
	d.queue <- j
	d.logger.Debug("command received", "seq", j.cmd.Seq, "command", name, "origin", origin)
	return j.cmd.Seq, j.done, nil
}

func (d *Dispatcher) run(ctx context.Context, j *job) {
	log := logging.WithCommand(d.logger, j.cmd.Seq, j.cmd.Tag)

	if d.journal != nil {
		if err := d.journal.RecordCommand(ctx, &j.cmd); err != nil {
			log.Warn("failed to journal command", "error", err)
		}
	}
	d.transition(ctx, log, &j.cmd, StateDispatching, nil)

	err := call(ctx, j.fn)

	if err != nil {
		d.transition(ctx, log, &j.cmd, StateRejected, err)
	} else {
		d.transition(ctx, log, &j.cmd, StateApplied, nil)
	}
	j.done <- Result{Seq: j.cmd.Seq, Tag: j.cmd.Tag, State: j.cmd.State, Err: err}
}

func (d *Dispatcher) transition(ctx context.Context, log *slog.Logger, cmd *Command, state State, cause error) {
	cmd.State = state
	cmd.UpdatedAt = time.Now()
	msg := ""
	if cause != nil {
		msg = cause.Error()
		cmd.Error = msg
		log.Warn("command rejected", "origin", cmd.Origin, "error", cause)
	} else {
		log.Info("command "+string(state), "origin", cmd.Origin)
	}

	if d.journal != nil {
		if err := d.journal.UpdateCommandState(ctx, cmd.Seq, state, msg); err != nil {
			log.Warn("failed to journal command state", "state", state, "error", err)
		}
	}
}

// drain rejects everything still queued.
func (d *Dispatcher) drain() {
	for {
		select {
		case j := <-d.queue:
			j.cmd.State = StateRejected
			j.done <- Result{Seq: j.cmd.Seq, Tag: j.cmd.Tag, State: StateRejected, Err: ErrStopped}
		default:
			return
		}
	}
}

func call(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func (d *Dispatcher) outputFolder() string {
	if d.folders == nil {
		return ""
	}
	return d.folders.OutputFolder()
}

func (d *Dispatcher) exportSession(ctx context.Context) error {
	_, err := d.ctrl.ExportSession(ctx, d.outputFolder())
	return err
}

// nameClip prompts for a custom name and commits the draft. An incomplete
// draft is rejected before the window is raised.
func (d *Dispatcher) nameClip(ctx context.Context) error {
	if !d.ctrl.CanCommit() {
		// CommitDraft reports the incomplete draft to the user.
		_, err := d.ctrl.CommitDraft(ctx, "")
		return err
	}

	if d.fg != nil {
		if err := d.fg.Foreground(); err != nil {
			d.logger.Warn("failed to foreground window", "error", err)
		}
	}

	name := ""
	if d.prompter != nil {
		answer, err := d.prompter.PromptName(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return err
		case err != nil:
			d.logger.Warn("name prompt failed, using generated name", "error", err)
		default:
			name = answer
		}
	}

	_, err := d.ctrl.CommitDraft(ctx, name)
	return err
}
