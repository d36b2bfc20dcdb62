package ingest

import "context"

// Ingestion sources, used as the metrics "source" label.
const (
	SourceAPI      = "api"
	SourceHTTP     = "http"
	SourceKafka    = "kafka"
	SourceSnapshot = "snapshot"
	SourceSDK      = "sdk"
)

type sourceKey struct{}

// WithSource tags ctx with the ingestion source.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return SourceAPI
}
