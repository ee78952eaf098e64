package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"labanalyzer/pkg/contracts/domain"
	"labanalyzer/pkg/contracts/events"
)

// MockExperimentStore is a mock for the ExperimentStore interface
type MockExperimentStore struct {
	mock.Mock
}

func (m *MockExperimentStore) ListExperiments(ctx context.Context) ([]domain.Experiment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Experiment), args.Error(1)
}

func (m *MockExperimentStore) GetExperimentInfo(ctx context.Context, id int64) (*domain.ExperimentInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExperimentInfo), args.Error(1)
}

func (m *MockExperimentStore) LoadMeasurements(ctx context.Context, id int64) ([]domain.Measurement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Measurement), args.Error(1)
}

func (m *MockExperimentStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []events.MessageType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.MessageType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type fixedCounter int

func (c fixedCounter) ClientCount() int  { return int(c) }
func (c fixedCounter) SessionCount() int { return int(c) }
