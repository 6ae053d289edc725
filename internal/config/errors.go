package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while still getting a readable message.
var (
	// ErrNoLanes is returned when no lane is selected for the run.
	// This happens when --kind filters out every configured lane.
	ErrNoLanes = errors.New("no lanes to run: check the lanes in the config file and --kind")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidProxyAddress is returned when the proxy is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrInvalidLaneKind is returned for a lane or --kind value that is not
	// text, csv, excel or json.
	ErrInvalidLaneKind = errors.New("invalid lane kind")

	// ErrDuplicateLane is returned when two lanes share a content kind.
	ErrDuplicateLane = errors.New("duplicate lane for content kind")

	// ErrInvalidSourceURL is returned when a lane's source is not an
	// absolute http or https URL.
	ErrInvalidSourceURL = errors.New("invalid source URL: must be an absolute http or https URL")

	// ErrEmptyLanePath is returned when a lane is missing its destination
	// folder, destination filename, or report output path.
	ErrEmptyLanePath = errors.New("lane destination folder, filename and report path must be set")

	// ErrLanePathCollision is returned when two files of a run would share a path.
	ErrLanePathCollision = errors.New("lane file path collides")
)
