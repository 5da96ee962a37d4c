package submission

// Status classifies a submission result.
type Status int

const (
	StatusSuccess Status = iota
	StatusBadRequest
	StatusForbidden
	StatusInternalError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusBadRequest:
		return "bad request"
	case StatusForbidden:
		return "forbidden"
	default:
		return "internal server error"
	}
}

// Response is the outcome of Submit.
type Response struct {
	Status Status
	// URL is the eventual download location on success.
	URL string
	// Reason explains a bad request.
	Reason string
	// Seq is the queued job's sequence number on success.
	Seq int64
}

// String renders the response in the wire form returned to clients.
func (r Response) String() string {
	switch r.Status {
	case StatusSuccess:
		return "success: " + r.URL
	case StatusBadRequest:
		return "error: bad request - " + r.Reason
	case StatusForbidden:
		return "error: forbidden"
	default:
		return "error: internal server error"
	}
}

func badRequest(reason string) Response {
	return Response{Status: StatusBadRequest, Reason: reason}
}

var (
	forbidden     = Response{Status: StatusForbidden}
	internalError = Response{Status: StatusInternalError}
)
