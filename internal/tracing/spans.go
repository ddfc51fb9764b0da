package tracing

// Span attribute keys.
const (
	AttrResidentID  = "resident.id"
	AttrOfficialID  = "official.id"
	AttrSearchQuery = "search.query"
	AttrResultCount = "result.count"
	AttrHTTPMethod  = "http.method"
	AttrHTTPPath    = "http.path"
	AttrHTTPStatus  = "http.status_code"
	AttrCacheHit    = "cache.hit"
	AttrFormMode    = "form.mode"
)

// SpanPrefixAPI prefixes every REST client span, e.g. "api.SearchResidents".
const SpanPrefixAPI = "api."

// Event names.
const (
	EventRetry      = "http.retry"
	EventSubmission = "form.submitted"
)
