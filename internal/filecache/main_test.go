package filecache

import "context"

// staticID is a fixed-identity IDSource for tests, mirroring the teacher's
// pattern of a trivial in-package test double rather than a mocking
// framework (internal/files/store/mockstore.go). An id stashed in ctx by
// withClient takes precedence over the fixed identity, so several clients
// can drive one Segment that was built with a single IDSource.
type staticID ClientID

type clientCtxKey struct{}

func (s staticID) CurrentID(ctx context.Context) (ClientID, bool) {
	if id, ok := ctx.Value(clientCtxKey{}).(ClientID); ok && id != "" {
		return id, true
	}
	if s == "" {
		return "", false
	}
	return ClientID(s), true
}

func withClient(ctx context.Context, id ClientID) (context.Context, IDSource) {
	return context.WithValue(ctx, clientCtxKey{}, id), staticID(id)
}
