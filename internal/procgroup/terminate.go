// SPDX-License-Identifier: MIT

// Package procgroup spawns and signals worker processes as process groups,
// so that a relay worker and any children it forks are reaped together.
package procgroup

import (
	"context"
	"os/exec"
	"strings"
	"syscall"

	"github.com/streamfork/relayd/internal/metrics"
)

// Terminate requests a graceful stop of a process group.
// It sends SIGTERM and waits for done, which the caller closes once the
// process has been reaped; there is no SIGKILL escalation, a stuck worker
// keeps running until the context expires. Safe to call on nil commands.
func Terminate(ctx context.Context, cmd *exec.Cmd, done <-chan struct{}) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	// If the process already finished normally, Kill is a no-op or a
	// harmless ESRCH.
	if err := Kill(cmd, syscall.SIGTERM); err == nil {
		metrics.IncProcSignal("SIGTERM", "sent")
	} else if strings.Contains(err.Error(), "process already finished") || strings.Contains(err.Error(), "no such process") {
		metrics.IncProcSignal("SIGTERM", "esrch")
	} else {
		metrics.IncProcSignal("SIGTERM", "error")
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
