package conversation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubService struct {
	turns        atomic.Int64
	completeness float64
	err          error
}

func (s *stubService) ProcessTurn(_ context.Context, req TurnRequest) (*TurnResponse, error) {
	s.turns.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &TurnResponse{ConversationID: req.ConversationID, Message: "ack"}, nil
}

func (s *stubService) Completeness(_ context.Context, _ string) (float64, error) {
	return s.completeness, s.err
}

func TestOrchestratorProcessTurn(t *testing.T) {
	stub := &stubService{}
	o := NewOrchestrator(stub, NewMemoryQueue(8), nil, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = o.Shutdown(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := o.ProcessTurn(ctx, TurnRequest{ConversationID: "conv-q", Message: "hi"})
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if resp.ConversationID != "conv-q" || resp.Message != "ack" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if got := stub.turns.Load(); got != 1 {
		t.Errorf("processor invoked %d times, want 1", got)
	}
}

func TestOrchestratorPropagatesProcessorError(t *testing.T) {
	boom := errors.New("engine down")
	o := NewOrchestrator(&stubService{err: boom}, NewMemoryQueue(8), nil, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = o.Shutdown(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := o.ProcessTurn(ctx, TurnRequest{ConversationID: "conv-err", Message: "hi"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestOrchestratorCompletenessBypassesQueue(t *testing.T) {
	stub := &stubService{completeness: 0.75}
	o := NewOrchestrator(stub, NewMemoryQueue(8), nil, WithWorkerCount(1), WithReceiveWaitSeconds(1))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = o.Shutdown(ctx)
	}()

	got, err := o.Completeness(context.Background(), "conv-q")
	if err != nil {
		t.Fatalf("Completeness: %v", err)
	}
	if got != 0.75 {
		t.Errorf("completeness = %v, want 0.75", got)
	}
	if stub.turns.Load() != 0 {
		t.Error("completeness read should not enqueue a turn")
	}
}

func TestOrchestratorShutdownStopsWorkers(t *testing.T) {
	o := NewOrchestrator(&stubService{}, NewMemoryQueue(8), nil, WithWorkerCount(2), WithReceiveWaitSeconds(1))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
