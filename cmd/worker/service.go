package main

import (
	"context"

	"github.com/wb-go/wbf/retry"
)

// NoopPublisher - the worker never publishes to the queue, the shared
// service just needs something satisfying the contract
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, k []byte, v []byte) error {
	return nil
}
