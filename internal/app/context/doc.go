// Package context holds the typed accessors for state bound to one unit of
// work: the caller's ExecutionContext, the per-unit order counter and a
// per-unit memo for values that are expensive to build.
//
// Every accessor reads through the scope carried by ctx, so values bound while
// handling one request are invisible to any other request, including later
// requests served by the same goroutine:
//
//	err := scope.Run(ctx, func(ctx context.Context) error {
//	    if err := appctx.Bind(ctx, domain.NewExecutionContext("alice", "s1")); err != nil {
//	        return err
//	    }
//	    ec, ok := appctx.Current(ctx) // alice, true
//	    ...
//	})
//
// # Worker Mirror
//
// BindWorker, CurrentOnWorker and ReleaseWorker keep a copy of the
// ExecutionContext keyed by goroutine for call sites that cannot take a
// context. ReleaseWorker must be registered as a boundary release hook.
package context
