// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package typeahead

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Replay feeds each line of r to a new subscription on p as one raw query
// event, waiting interval between lines, and writes every emitted state to
// w as a JSON line. It returns once r is exhausted and the final lookup has
// been written, or when ctx is cancelled.
func Replay[E any](ctx context.Context, p *Pipeline[E], r io.Reader, w io.Writer, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queries := make(chan string)
	sub := p.Subscribe(ctx, queries)
	defer sub.Close()

	readErr := make(chan error, 1)
	go func() {
		defer close(queries)
		readErr <- feed(ctx, r, queries, interval)
	}()

	enc := json.NewEncoder(w)
	for s := range sub.States() {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("writing state: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return <-readErr
}

func feed(ctx context.Context, r io.Reader, queries chan<- string, interval time.Duration) error {
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		if !first && interval > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		first = false

		select {
		case queries <- scanner.Text():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading queries: %w", err)
	}
	return nil
}
