package stage

import "context"

// Layer wraps an inner stage of type Stage[NI, NO] and presents a stage of
// type Stage[I, O]. Every adapter is constructed through a Layer.
type Layer[I, O, NI, NO any] func(inner Stage[NI, NO]) Stage[I, O]

// Middleware wraps a stage with additional behavior without changing its
// request or response types.
type Middleware[I, O any] func(next Stage[I, O]) Stage[I, O]

// Chain composes multiple middleware into a single middleware.
// Middleware are applied in order, so Chain(m1, m2, m3) results in
// m1 wrapping m2 wrapping m3 wrapping the final stage.
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	mws := append([]Middleware[I, O](nil), middlewares...)
	return func(final Stage[I, O]) Stage[I, O] {
		// Apply middleware in reverse order so they execute in order
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}

// Builder provides a fluent API for building a stack of middleware.
type Builder[I, O any] struct {
	middlewares []Middleware[I, O]
}

// Use creates a new builder starting with the given middleware.
func Use[I, O any](middlewares ...Middleware[I, O]) *Builder[I, O] {
	return &Builder[I, O]{
		middlewares: middlewares,
	}
}

// Append adds middleware to the stack and returns the updated builder.
func (b *Builder[I, O]) Append(middlewares ...Middleware[I, O]) *Builder[I, O] {
	b.middlewares = append(b.middlewares, middlewares...)
	return b
}

// Then applies the stack to a terminal stage and returns the outermost stage.
// Later calls to Append do not affect stages already built.
func (b *Builder[I, O]) Then(terminal Stage[I, O]) Stage[I, O] {
	return Chain(b.middlewares...)(terminal)
}

// ThenFunc applies the stack to a function and returns the outermost stage.
func (b *Builder[I, O]) ThenFunc(fn func(ctx context.Context, in I) (O, error)) Stage[I, O] {
	return b.Then(Func[I, O](fn))
}

// Compose joins two layers so that outer wraps inner. The intermediate types
// must agree, which the compiler checks.
func Compose[A, B, C, D, E, F any](outer Layer[A, B, C, D], inner Layer[C, D, E, F]) Layer[A, B, E, F] {
	return func(s Stage[E, F]) Stage[A, B] {
		return outer(inner(s))
	}
}

// Around places middleware outside a layer: the result is mw(l(inner)).
func Around[I, O, NI, NO any](mw Middleware[I, O], l Layer[I, O, NI, NO]) Layer[I, O, NI, NO] {
	return func(inner Stage[NI, NO]) Stage[I, O] {
		return mw(l(inner))
	}
}

// Within places middleware inside a layer, between it and the inner stage:
// the result is l(mw(inner)).
func Within[I, O, NI, NO any](l Layer[I, O, NI, NO], mw Middleware[NI, NO]) Layer[I, O, NI, NO] {
	return func(inner Stage[NI, NO]) Stage[I, O] {
		return l(mw(inner))
	}
}
