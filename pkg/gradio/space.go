package gradio

import (
	"context"
	"time"

	"gradio/pkg/types"
)

// wakeUp polls the registry until spaceID reports a running stage. It makes at
// most WakeMaxAttempts polls and sleeps WakeInterval between them.
func (c *Client) wakeUp(ctx context.Context, spaceID string) error {
	for attempt := 1; ; attempt++ {
		st, err := c.hub.Status(ctx, spaceID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return newError(KindSpaceUnavailable, "registry/status", "could not get space status", err)
		}
		stage := st.Runtime.Stage
		wakeupPollsTotal.WithLabelValues(string(stage)).Inc()
		c.events.Publish(Event{Name: EventWakeupPoll, Fields: map[string]any{"space": spaceID, "stage": string(stage), "attempt": attempt}})
		c.log.Debug().Str("space", spaceID).Str("stage", string(stage)).Int("attempt", attempt).Msg("space status")

		switch stage {
		case types.StageRunning, types.StageRunningBuilding:
			return nil
		case types.StagePaused:
			return newError(KindSpaceUnavailable, "wakeup", spaceID, ErrSpacePaused)
		case types.StageSleeping, types.StageStopped, types.StageBuilding, types.StageStarting:
			c.log.Info().Str("space", spaceID).Str("stage", string(stage)).Msg("waiting for space to start")
		default:
			return newError(KindSpaceUnavailable, "wakeup", spaceID+": "+string(stage), ErrUnknownStage)
		}
		if attempt >= c.opts.WakeMaxAttempts {
			return newError(KindSpaceUnavailable, "wakeup", spaceID, ErrWakeTimeout)
		}
		t := time.NewTimer(c.opts.WakeInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
