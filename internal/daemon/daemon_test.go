package daemon_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/freekieb7/calendar/internal/daemon"
	"github.com/freekieb7/calendar/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaemonManager_RestartsCrashedDaemon(t *testing.T) {
	manager := daemon.NewDaemonManager(logger.Discard(), time.Millisecond)

	var runs atomic.Int32
	manager.Add("flaky", func(ctx context.Context, name string) error {
		if runs.Add(1) < 3 {
			return errors.New("boom")
		}
		return nil
	})

	manager.Start(context.Background())
	manager.Wait()

	assert.Equal(t, int32(3), runs.Load())
}

func TestDaemonManager_StopsOnCancel(t *testing.T) {
	manager := daemon.NewDaemonManager(logger.Discard(), time.Hour)

	started := make(chan struct{})
	manager.Add("crashing", func(ctx context.Context, name string) error {
		close(started)
		return errors.New("boom")
	})

	ctx, cancel := context.WithCancel(context.Background())
	manager.Start(ctx)
	<-started
	cancel()

	done := make(chan struct{})
	go func() {
		manager.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("daemon did not stop while waiting to restart")
	}
}

func TestHealthTask(t *testing.T) {
	var healthy, failing atomic.Int32
	checks := map[string]func(ctx context.Context) error{
		"database": func(context.Context) error {
			healthy.Add(1)
			return nil
		},
		"redis": func(context.Context) error {
			failing.Add(1)
			return errors.New("connection refused")
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := daemon.HealthTask(checks, 5*time.Millisecond, logger.Discard())

	errCh := make(chan error, 1)
	go func() { errCh <- task(ctx, "health") }()

	require.Eventually(t, func() bool {
		return healthy.Load() >= 2 && failing.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-errCh)
}

func TestServerTask_ShutsDownOnCancel(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	ctx, cancel := context.WithCancel(context.Background())
	task := daemon.ServerTask(app, "127.0.0.1:0", time.Second, logger.Discard())

	errCh := make(chan error, 1)
	go func() { errCh <- task(ctx, "http") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server task did not return after cancel")
	}
}
