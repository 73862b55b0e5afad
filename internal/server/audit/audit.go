// Package audit records administrative actions. Records are appended after
// the change they describe has been committed.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Record is a single audit entry.
type Record struct {
	Action string    `json:"action"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
}

// Line renders r as "[<RFC3339 UTC>] <actor>: <action>".
func (r Record) Line() string {
	return fmt.Sprintf("[%s] %s: %s", r.At.UTC().Format(time.RFC3339), r.Actor, r.Action)
}

// Sink stores audit records.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec Record) error

func (f SinkFunc) Append(ctx context.Context, rec Record) error { return f(ctx, rec) }

// Multi fans a record out to every sink. All sinks are attempted; their
// errors are joined.
type Multi []Sink

func (m Multi) Append(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every record.
var Discard Sink = SinkFunc(func(context.Context, Record) error { return nil })
