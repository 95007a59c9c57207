// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package filecache

import "context"

// ClientID identifies the caller attempting an operation on a Segment. An
// empty ClientID means "no client" and is always a precondition violation
// when passed to an operation that requires one (spec.md §7).
type ClientID string

// IDSource resolves the calling client's identity from a context.Context.
// It is an injected dependency (spec.md §9 "Global caller-id source":
// "Treat as an injected dependency ... Do not embed thread-local state in
// the segment") rather than ambient/thread-local state.
type IDSource interface {
	CurrentID(ctx context.Context) (ClientID, bool)
}
