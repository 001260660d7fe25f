package middleware

import "context"

// metadataKey is the context key for call metadata.
type metadataKey struct{}

// Metadata holds transport-level values associated with a call, such as
// HTTP headers captured by the WebSocket transport.
type Metadata map[string]string

// ContextWithMetadata returns a new context with the metadata attached.
func ContextWithMetadata(ctx context.Context, meta Metadata) context.Context {
	return context.WithValue(ctx, metadataKey{}, meta)
}

// MetadataFromContext returns the metadata from the context.
// Returns nil if no metadata is present.
func MetadataFromContext(ctx context.Context) Metadata {
	if meta, ok := ctx.Value(metadataKey{}).(Metadata); ok {
		return meta
	}
	return nil
}

// MetadataValue returns a specific metadata value from the context.
// Returns empty string if the key is not found or no metadata is present.
func MetadataValue(ctx context.Context, key string) string {
	return MetadataFromContext(ctx)[key]
}

// WithMetadataValue sets a metadata value in the context.
// The existing metadata is copied, never mutated.
func WithMetadataValue(ctx context.Context, key, value string) context.Context {
	meta := MetadataFromContext(ctx)
	next := make(Metadata, len(meta)+1)
	for k, v := range meta {
		next[k] = v
	}
	next[key] = value
	return ContextWithMetadata(ctx, next)
}
