package model

import "time"

// UrlStatus values are written to the status store as-is.
type UrlStatus string

const (
	StatusDisallowedByRobotsTxt   UrlStatus = "disallowed-by-robots-txt"
	StatusDisallowedMimeType      UrlStatus = "disallowed-mime-type"
	StatusDisallowedContentLength UrlStatus = "disallowed-content-length"
)

type PermissionVerdict int

const (
	Allowed PermissionVerdict = iota
	DisallowedByRobots
)

type ContentVerdict int

const (
	Admissible ContentVerdict = iota
	RejectedMimeType
	RejectedContentLength
	Unknown // probe failed, treated as Admissible
)

func (v ContentVerdict) String() string {
	switch v {
	case Admissible:
		return "admissible"
	case RejectedMimeType:
		return "rejected-mime-type"
	case RejectedContentLength:
		return "rejected-content-length"
	default:
		return "unknown"
	}
}

// State of a work item inside the gate.
type State string

const (
	StateReceived       State = "received"
	StateRobotsChecked  State = "robots-checked"
	StateContentChecked State = "content-checked"
	StateForwarded      State = "forwarded"
	StateRejected       State = "rejected"
	StateDropped        State = "dropped" // malformed message, sent to DLQ
)

type Outcome struct {
	URL        string
	State      State
	Status     UrlStatus // set only when State is StateRejected
	RoutingKey string    // set only when State is StateForwarded
}

// RobotsEntry is a cached robots.txt body for one origin.
type RobotsEntry struct {
	Origin    string    `json:"origin"`
	Body      string    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ProbeResult holds the metadata returned by a HEAD request to the target URL.
type ProbeResult struct {
	StatusCode    int
	ContentType   string
	ContentLength string // raw header value, empty when absent
}
