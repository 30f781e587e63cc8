package syncengine

import "context"

// KeywordEngine is the out-of-scope keyword-parsing collaborator
// KEYWORD_UPDATE and KEYWORD_RESET records delegate to. Only its
// interface is specified; a Context with a nil KeywordEngine treats
// both record types as no-ops, which is sufficient for every other
// invariant this package verifies.
type KeywordEngine interface {
	Update(ctx context.Context, payload []byte) error
	Reset(ctx context.Context, payload []byte) error
}
