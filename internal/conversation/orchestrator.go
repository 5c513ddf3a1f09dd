package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aquashine/carwash-ai-platform/pkg/logging"
)

// Dispatcher exposes the queue-backed entrypoints used by HTTP handlers.
type Dispatcher interface {
	ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error)
	Completeness(ctx context.Context, conversationID string) (float64, error)
	Shutdown(ctx context.Context) error
}

// ErrOrchestratorClosed indicates the dispatcher is no longer accepting work.
var ErrOrchestratorClosed = errors.New("conversation: orchestrator closed")

// jobQueue is the transport between the HTTP side and the turn workers.
// MemoryQueue and SQSQueue both satisfy it.
type jobQueue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]jobMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type jobMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// turnEnvelope is the wire form of one queued turn.
type turnEnvelope struct {
	ID   string      `json:"id"`
	Turn TurnRequest `json:"turn"`
}

type turnResult struct {
	response *TurnResponse
	err      error
}

const (
	defaultWorkers     = 2
	defaultReceiveWait = 2 // seconds
	defaultReceiveMax  = 5 // messages
	sqsMaxWaitSeconds  = 20
	sqsMaxBatchSize    = 10
	deleteTimeout      = 5 * time.Second
)

type orchestratorConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// OrchestratorOption configures the dispatcher.
type OrchestratorOption func(*orchestratorConfig)

// WithWorkerCount overrides the number of queue polling goroutines.
func WithWorkerCount(workers int) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if workers > 0 {
			cfg.workers = workers
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait for each Receive call,
// capped at the SQS maximum.
func WithReceiveWaitSeconds(seconds int) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		switch {
		case seconds < 0:
		case seconds > sqsMaxWaitSeconds:
			cfg.receiveWaitSecs = sqsMaxWaitSeconds
		default:
			cfg.receiveWaitSecs = seconds
		}
	}
}

// WithReceiveBatchSize overrides how many messages each poll may return,
// capped at the SQS maximum.
func WithReceiveBatchSize(size int) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		switch {
		case size <= 0:
		case size > sqsMaxBatchSize:
			cfg.receiveBatchSize = sqsMaxBatchSize
		default:
			cfg.receiveBatchSize = size
		}
	}
}

// Orchestrator pushes every turn through a queue before the engine sees it,
// so the same binary can run against LocalStack SQS in development and AWS
// SQS in production. Completeness is a read of session state and skips the
// queue entirely.
type Orchestrator struct {
	engine Service
	queue  jobQueue
	logger *logging.Logger
	cfg    orchestratorConfig

	waiters sync.Map // envelope ID -> chan turnResult

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Service = (*Orchestrator)(nil)
var _ Dispatcher = (*Orchestrator)(nil)

// NewOrchestrator wires a queue-backed dispatcher around the supplied service
// and starts its workers.
func NewOrchestrator(engine Service, queue jobQueue, logger *logging.Logger, opts ...OrchestratorOption) *Orchestrator {
	if engine == nil {
		panic("conversation: engine cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := orchestratorConfig{
		workers:          defaultWorkers,
		receiveWaitSecs:  defaultReceiveWait,
		receiveBatchSize: defaultReceiveMax,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		engine: engine,
		queue:  queue,
		logger: logger,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
	o.wg.Add(cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		go o.poll(i + 1)
	}
	return o
}

// ProcessTurn enqueues one turn and blocks until a worker has run it through
// the engine or ctx expires.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	env := turnEnvelope{ID: uuid.NewString(), Turn: req}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to encode turn job: %w", err)
	}

	results := make(chan turnResult, 1)
	o.waiters.Store(env.ID, results)
	defer o.waiters.Delete(env.ID)

	if err := o.queue.Send(ctx, string(body)); err != nil {
		return nil, fmt.Errorf("conversation: failed to enqueue turn: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		return res.response, res.err
	}
}

// Completeness goes straight to the engine.
func (o *Orchestrator) Completeness(ctx context.Context, conversationID string) (float64, error) {
	return o.engine.Completeness(ctx, conversationID)
}

// Shutdown stops the workers and fails any callers still waiting on a result.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancel()

	stopped := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(stopped)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stopped:
	}

	o.waiters.Range(func(key, value any) bool {
		if ch, ok := value.(chan turnResult); ok {
			select {
			case ch <- turnResult{err: ErrOrchestratorClosed}:
			default:
			}
		}
		o.waiters.Delete(key)
		return true
	})
	return nil
}

func (o *Orchestrator) poll(workerID int) {
	defer o.wg.Done()
	o.logger.Debug("turn worker started", "worker_id", workerID)

	wait := time.Second
	for o.ctx.Err() == nil {
		messages, err := o.queue.Receive(o.ctx, o.cfg.receiveBatchSize, o.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			o.logger.Error("failed to receive turn jobs", "error", err, "worker_id", workerID)
			time.Sleep(wait)
			if wait < 5*time.Second {
				wait *= 2
			}
			continue
		}
		wait = time.Second

		for _, msg := range messages {
			o.runTurn(msg)
		}
	}
	o.logger.Debug("turn worker stopping", "worker_id", workerID)
}

func (o *Orchestrator) runTurn(msg jobMessage) {
	defer o.ack(msg.ReceiptHandle)

	var env turnEnvelope
	if err := json.Unmarshal([]byte(msg.Body), &env); err != nil {
		o.logger.Error("failed to decode turn job, dropping", "error", err)
		return
	}

	resp, err := o.engine.ProcessTurn(o.ctx, env.Turn)

	value, ok := o.waiters.Load(env.ID)
	if !ok {
		// Caller gave up (timeout or shutdown); the turn itself still ran
		// and its session state is saved.
		o.logger.Debug("no waiting caller for turn", "job_id", env.ID)
		return
	}
	ch, ok := value.(chan turnResult)
	if !ok {
		o.logger.Error("waiter map holds unexpected type", "job_id", env.ID)
		o.waiters.Delete(env.ID)
		return
	}
	select {
	case ch <- turnResult{response: resp, err: err}:
	default:
	}
}

func (o *Orchestrator) ack(receiptHandle string) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()
	if err := o.queue.Delete(ctx, receiptHandle); err != nil {
		o.logger.Error("failed to delete turn job", "error", err)
	}
}
