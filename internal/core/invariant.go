package core

import "fmt"

// invariant aborts with a diagnostic naming the violated invariant when
// cond is false. Per spec §7, a contract violation — corrupted internal
// bookkeeping, not a rejectable caller input like a duplicate order id or a
// zero size, which return ordinary errors instead — must abort loudly
// rather than let the book silently continue in a corrupted state.
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("core: invariant violated: "+format, args...))
	}
}
