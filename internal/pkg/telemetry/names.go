package telemetry

// Span names used for instrumentation.
const (
	SpanLocate          = "routing.locate"
	SpanSubmitRequest   = "requests.submit"
	SpanRerouteBatch    = "requests.reroute_batch"
	SpanReplaceBoundary = "boundaries.replace"
	SpanCreateProject   = "projects.create"
)

// Span attribute keys.
const (
	AttrJurisdictionID = "civic311.jurisdiction_id"
	AttrCandidates     = "civic311.candidates"
	AttrFound          = "civic311.found"
	AttrRequestStatus  = "civic311.request_status"
	AttrBatchSize      = "civic311.batch_size"
)
