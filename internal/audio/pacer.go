package audio

import (
	"context"
	"errors"
	"time"
)

// Pace calls render once per block of blockFrames at the rate a sound card
// would consume them, until ctx is done. It is the block clock when no
// audio output is open.
func Pace(ctx context.Context, sampleRate, blockFrames int, render func()) error {
	if sampleRate <= 0 || blockFrames <= 0 {
		return errors.New("sampleRate and blockFrames must be positive")
	}
	period := time.Duration(float64(time.Second) * float64(blockFrames) / float64(sampleRate))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	start := time.Now()
	var rendered time.Duration
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			// Catch up after scheduler stalls so the block count tracks
			// wall time.
			for rendered <= now.Sub(start) {
				render()
				rendered += period
			}
		}
	}
}
