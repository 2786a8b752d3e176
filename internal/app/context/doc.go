// Package context provides request-scoped memoization for read paths.
//
// A listing or detail view resolves the same author many times (question
// author, answer authors, comment authors). The RequestContext caches each
// lookup for the lifetime of one request:
//
//	rc := context.FromContext(ctx)
//	user, err := context.Fetch(rc, "user:"+id, func(ctx context.Context) (*domain.User, error) {
//	    return users.GetUser(ctx, id)
//	})
//
// Batch loaders can seed the cache with Prime so later single lookups hit it.
package context
