// grantreview reviews grant proposals against executive orders: it
// summarizes each document, checks compliance, scores risk and escalates
// high-risk proposals for legal review.
//
// Usage:
//
//	grantreview analyze proposal.txt [more.md ...] [--send-email]
//	grantreview analyze --dir inbox/ | --manifest batch.yaml
//	grantreview status [run-id]
//	grantreview report <run-id> --format md|html|pdf -o out.pdf
//	grantreview kb index|list|show|search
//	grantreview watch <dir>
//	grantreview serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"grantreview/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
