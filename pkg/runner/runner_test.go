package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	name     string
	startErr error
	stopErr  error

	started bool
	stopped bool
	log     *[]string
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(context.Context) error {
	s.started = true
	if s.log != nil {
		*s.log = append(*s.log, "start:"+s.name)
	}
	return s.startErr
}

func (s *fakeService) Stop(context.Context) error {
	s.stopped = true
	if s.log != nil {
		*s.log = append(*s.log, "stop:"+s.name)
	}
	return s.stopErr
}

func TestRunStartsInOrderAndStopsOnCancel(t *testing.T) {
	var log []string
	a := &fakeService{name: "a", log: &log}
	b := &fakeService{name: "b", log: &log}

	ctx, cancel := context.WithCancel(context.Background())
	r := New([]Service{a, b}, WithShutdownTimeout(time.Second))

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !(a.started && b.started) {
		if time.Now().After(deadline) {
			t.Fatal("services did not start in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	require.NoError(t, <-done)

	assert.True(t, a.stopped)
	assert.True(t, b.stopped)
	assert.Equal(t, []string{"start:a", "start:b"}, log[:2])
}

func TestRunRollsBackStartedServicesOnStartFailure(t *testing.T) {
	a := &fakeService{name: "a"}
	b := &fakeService{name: "b", startErr: errors.New("port in use")}
	c := &fakeService{name: "c"}

	r := New([]Service{a, b, c}, WithShutdownTimeout(time.Second))
	err := r.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "start service b")
	assert.True(t, a.stopped)
	assert.False(t, c.started)
}

type healthyService struct {
	fakeService
	healthErr error
}

func (s *healthyService) HealthCheck(context.Context) error { return s.healthErr }

func TestHealthCheckAggregates(t *testing.T) {
	ok := &healthyService{fakeService: fakeService{name: "ok"}}
	bad := &healthyService{
		fakeService: fakeService{name: "bad"},
		healthErr:   errors.New("connection lost"),
	}
	plain := &fakeService{name: "plain"}

	r := New([]Service{ok, plain})
	assert.NoError(t, r.HealthCheck(context.Background()))

	r = New([]Service{ok, bad})
	err := r.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}
