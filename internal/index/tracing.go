// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("partlib.index")

// startRescanSpan creates a span for a library rescan.
func startRescanSpan(ctx context.Context, root string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Index.Rescan",
		trace.WithAttributes(
			attribute.String("library.root", root),
		),
	)
}

// endSpan records the rescan result and ends the span.
func endSpan(span trace.Span, count int, err error) {
	span.SetAttributes(
		attribute.Int("library.elements", count),
		attribute.Bool("library.success", err == nil),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
