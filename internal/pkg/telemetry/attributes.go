package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys shared across packages.
const (
	AttrPinID    = attribute.Key("pinmap.pin_id")
	AttrViewerID = attribute.Key("pinmap.viewer_id")
	AttrLiked    = attribute.Key("pinmap.liked")
	AttrEvent    = attribute.Key("pinmap.event")
)
