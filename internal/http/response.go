package http

type Status string

const (
	// StatusOK is used for health-check responses.
	StatusOK Status = "OK"

	// StatusError indicates a request failed.
	StatusError Status = "error"
)

// Response represents the standard API response format.
type Response struct {
	Status            Status `json:"status,omitempty"`
	Error             string `json:"error,omitempty"`
	OutstandingLeases *int   `json:"outstanding_leases,omitempty"`
}

func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

func NewPoolResponse(outstanding int) Response {
	return Response{Status: StatusOK, OutstandingLeases: &outstanding}
}

func NewErrorResponse(err string) Response {
	return Response{Status: StatusError, Error: err}
}
