package ttble

import (
	"context"
	"time"
)

// maxCommandAttempts is the retry budget of send_command (§4.4).
const maxCommandAttempts = 10

// sendCommand issues cmd on the command handle, retrying up to
// maxCommandAttempts times until the device acks with integer==1. It
// returns the 0-based attempt index on success.
func sendCommand(ctx context.Context, transport Transport, dx *demux, sleep func(context.Context, time.Duration), cmd [4]byte) (int, error) {
	for attempt := 0; attempt < maxCommandAttempts; attempt++ {
		if err := transport.Write(ctx, HandleCommand, cmd[:], true); err != nil {
			return 0, &TransportError{Op: "send_command write", Err: err}
		}

		n, err := dx.awaitExpected(ctx, expectHandle(HandleCommand), CommandAckTimeout)
		if err == nil {
			if got, ok := n.Integer(); ok && got == 1 {
				return attempt, nil
			}
		}
		// mismatch or timeout: sleep and retry, unless this was the last attempt
		if attempt == maxCommandAttempts-1 {
			break
		}
		sleep(ctx, 1*time.Second)
	}
	return 0, &CommandRejected{Attempts: maxCommandAttempts}
}
