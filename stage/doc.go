// Package stage defines the composable building block of a pipeline.
//
// A Stage has two operations: Ready, a non-blocking capacity check, and Call,
// which processes one request. Layers wrap one inner stage and present another
// stage, possibly of different types; Middleware is the type-preserving case.
//
// # Composition
//
// Stack middleware with Chain or the fluent Builder:
//
//	s := stage.Use(
//	    middleware.Recover[string, string](),
//	    middleware.Logging[string, string](logger, "echo"),
//	).ThenFunc(func(ctx context.Context, in string) (string, error) {
//	    return in, nil
//	})
//
// The first middleware becomes the outermost stage. Layers that change types
// are joined with Compose, Around and Within; mismatched types fail to compile.
//
// # Errors
//
// Layers report failures as *LayerError. A KindMediation error is raised by the
// layer itself; a KindWrapped error carries the inner stage's error unchanged,
// so errors.Is and errors.As reach the root cause through any number of layers:
//
//	var notFound *NotFoundError
//	if errors.As(err, &notFound) {
//	    // raised by the terminal stage, several layers down
//	}
package stage
