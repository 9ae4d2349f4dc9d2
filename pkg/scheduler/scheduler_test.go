package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func TestSchedulerRunsOnInterval(t *testing.T) {
	var runs atomic.Int32
	s := New(func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, 20*time.Millisecond, getTestLogger())

	s.Start(context.Background())
	time.Sleep(110 * time.Millisecond)
	s.Stop()

	count := runs.Load()
	assert.GreaterOrEqual(t, count, int32(3))

	// No further runs after Stop
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, runs.Load())
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s := New(func(ctx context.Context) error { return nil }, time.Second, getTestLogger())
	s.Stop()
}
