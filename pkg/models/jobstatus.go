package models

// JobStatus is the canonical state of a per-platform analysis job.
// Stable values; these exact strings are stored in the database and carried
// on progress events.
type JobStatus string

const (
	StatusInitial        JobStatus = "initial"
	StatusProfileFound   JobStatus = "profile_found"
	StatusContentFetched JobStatus = "content_fetched"
	StatusSegmenting     JobStatus = "segmenting"

	// Success terminals.
	StatusFinished         JobStatus = "finished"
	StatusWrappedCompleted JobStatus = "wrapped_completed" // combined multi-platform run

	// Error terminals.
	StatusError             JobStatus = "error"
	StatusUnknownProfile    JobStatus = "unknown_profile"
	StatusRateLimitExceeded JobStatus = "rate_limit_exceeded"
	StatusMissingPosts      JobStatus = "missing_posts"
)

// IsTerminal reports whether no further transition is accepted for a job in
// this status. Terminality is a function of status alone; both the active-job
// query and aggregation triggering depend on it.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusWrappedCompleted,
		StatusError, StatusUnknownProfile, StatusRateLimitExceeded, StatusMissingPosts:
		return true
	case StatusInitial, StatusProfileFound, StatusContentFetched, StatusSegmenting:
		return false
	}
	return false
}

// IsSuccess reports whether this status is a successful terminal.
func (s JobStatus) IsSuccess() bool {
	return s == StatusFinished || s == StatusWrappedCompleted
}

// Valid reports whether s is one of the known status values.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusInitial, StatusProfileFound, StatusContentFetched, StatusSegmenting,
		StatusFinished, StatusWrappedCompleted,
		StatusError, StatusUnknownProfile, StatusRateLimitExceeded, StatusMissingPosts:
		return true
	}
	return false
}

// TerminalStatuses returns every terminal status value, for use in
// NOT IN (...) query filters.
func TerminalStatuses() []JobStatus {
	return []JobStatus{
		StatusFinished,
		StatusWrappedCompleted,
		StatusError,
		StatusUnknownProfile,
		StatusRateLimitExceeded,
		StatusMissingPosts,
	}
}
