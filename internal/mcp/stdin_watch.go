package mcp

import (
	"context"
	"os"
	"time"

	"grantreview/internal/logging"
)

// parentPollInterval is how often WatchParent checks the parent pid.
var parentPollInterval = 2 * time.Second

// WatchParent cancels the serve context when the parent process exits, so a
// stdio server does not outlive the client that spawned it.
//
// It never reads stdin: the SDK's StdioTransport owns it exclusively and any
// stray read would corrupt the JSON-RPC stream.
//
// The goroutine exits when ctx is canceled or parent death is detected.
func WatchParent(ctx context.Context, cancelFn context.CancelFunc) {
	ppid := os.Getppid()
	log := logging.New("mcp")
	go func() {
		ticker := time.NewTicker(parentPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if os.Getppid() != ppid {
					log.Warnw("parent process exited, shutting down", "parent_pid", ppid)
					cancelFn()
					return
				}
			}
		}
	}()
}
