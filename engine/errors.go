package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors of the copy engine. Classification and expansion errors are
// surfaced immediately; execution errors are collected per pair and reported
// together as a *PartialFailureError once the batch completes.
var (
	// ErrInvalidEndpoint marks a malformed URL or path, rejected before any I/O.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrNoMatch marks a request that resolved to zero transfers, or a
	// container copy attempted without recursion.
	ErrNoMatch = errors.New("no URLs matched")

	// ErrNotFound marks a missing single object or file.
	ErrNotFound = errors.New("not found")
)

// TransferError is the failure of one copy pair. It carries the original
// endpoints so a caller can retry just the failures.
type TransferError struct {
	Src string
	Dst string
	Err error
}

func (e *TransferError) Error() string {
	if e.Dst == "" {
		return fmt.Sprintf("transfer %s failed: %s", e.Src, e.Err)
	}
	return fmt.Sprintf("transfer %s -> %s failed: %s", e.Src, e.Dst, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// PartialFailureError aggregates the failed pairs of a batch. Successful
// pairs are not rolled back.
type PartialFailureError struct {
	Total  int
	Failed []*TransferError
}

func (e *PartialFailureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d transfers failed:", len(e.Failed), e.Total)
	for _, f := range e.Failed {
		b.WriteString("\n\t")
		b.WriteString(f.Error())
	}
	return b.String()
}

// Unwrap exposes the individual transfer errors to errors.Is and errors.As.
func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f
	}
	return errs
}
