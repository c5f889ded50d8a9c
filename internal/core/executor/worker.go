package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/logger"
	"picpic.bench/internal/core/ports"
)

// Resolver builds a transform from its registered name.
type Resolver func(name string) (ports.Transformer, error)

// ServeWorker is the child side of the process executor. It performs the handshake,
// then answers one response per request until in is closed.
func ServeWorker(ctx context.Context, in io.Reader, out io.Writer, resolve Resolver, itemTimeout time.Duration) error {
	dec := json.NewDecoder(in)
	enc := json.NewEncoder(out)

	var h hello
	if err := dec.Decode(&h); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}

	tr, err := resolve(h.Transform)
	if err != nil {
		_ = enc.Encode(ready{OK: false, PID: os.Getpid(), Error: err.Error()})
		return err
	}
	if err := enc.Encode(ready{OK: true, PID: os.Getpid()}); err != nil {
		return fmt.Errorf("write ready: %w", err)
	}
	logger.Debug("Worker ready", "pid", os.Getpid(), "transform", h.Transform)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		item := domain.WorkItem{
			SourcePath:      req.Source,
			DestinationPath: req.Destination,
			PersistOutput:   req.Persist,
		}
		resp := response{Seq: req.Seq, Source: req.Source}
		rec, err := applyItem(ctx, tr, item, itemTimeout)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Destination = rec.DestinationPath
			resp.Digest = rec.Digest
			resp.Bytes = rec.Bytes
		}

		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}
