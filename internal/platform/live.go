package platform

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"supplyq/internal/stats"
)

type liveTask struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// StartLive begins ticking the real network at speed steps per second. A zero
// speed keeps the current setting. It returns the live session id.
func (c *Controller) StartLive(speed float64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if speed == 0 {
		speed = c.speed
	}
	if err := validateSpeed(speed); err != nil {
		return "", err
	}
	if c.mode != ModeIdle {
		return "", ErrModeBusy
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &liveTask{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.mode = ModeLive
	c.speed = speed
	c.live = task
	c.trace = stats.NewEpisodeTrace(0)
	c.metrics.Live(true)
	c.logger.Info("live loop started", "session", task.id, "speed", speed)

	go c.runLive(ctx, task, tickInterval(speed))
	return task.id, nil
}

// StopLive halts the live loop and waits for it to exit. A tick that already
// holds the lock finishes its step; no step starts afterwards.
func (c *Controller) StopLive() error {
	c.mu.Lock()
	if c.mode != ModeLive || c.live == nil {
		c.mu.Unlock()
		return ErrNotRunning
	}
	task := c.live
	c.mode = ModeIdle
	c.live = nil
	task.cancel()
	c.metrics.Live(false)
	steps := c.steps
	c.mu.Unlock()

	<-task.done
	c.logger.Info("live loop stopped", "session", task.id, "step", steps)
	return nil
}

// SetSpeed changes the tick rate from the next tick on.
func (c *Controller) SetSpeed(speed float64) error {
	if err := validateSpeed(speed); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = speed
	return nil
}

func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode == ModeLive
}

// Close stops the live loop if one is running.
func (c *Controller) Close() error {
	if err := c.StopLive(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return nil
}

func (c *Controller) runLive(ctx context.Context, task *liveTask, interval time.Duration) {
	defer close(task.done)

	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		c.mu.Lock()
		if c.mode != ModeLive || c.live != task {
			c.mu.Unlock()
			return
		}
		if _, err := c.liveStepLocked(ctx); err != nil {
			c.logger.Error("live step failed", "session", task.id, "error", err)
		}
		interval = tickInterval(c.speed)
		c.mu.Unlock()

		timer.Reset(interval)
	}
}

func tickInterval(speed float64) time.Duration {
	return time.Duration(float64(time.Second) / speed)
}

func validateSpeed(speed float64) error {
	if !(speed > 0 && speed <= MaxSpeed) {
		return ErrInvalidSpeed
	}
	return nil
}
