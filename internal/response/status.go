package response

// StatusCode represents HTTP status codes
type StatusCode int

const (
	StatusOK                    StatusCode = 200
	StatusBadRequest            StatusCode = 400
	StatusForbidden             StatusCode = 403
	StatusNotFound              StatusCode = 404
	StatusRequestTimeout        StatusCode = 408
	StatusRequestEntityTooLarge StatusCode = 413
	StatusInternalServerError   StatusCode = 500
	StatusNotImplemented        StatusCode = 501
)

// statusText maps status codes to reason phrases
var statusText = map[StatusCode]string{
	StatusOK:                    "OK",
	StatusBadRequest:            "Bad Request",
	StatusForbidden:             "Forbidden",
	StatusNotFound:              "Not Found",
	StatusRequestTimeout:        "Request Timeout",
	StatusRequestEntityTooLarge: "Request Entity Too Large",
	StatusInternalServerError:   "Internal Server Error",
	StatusNotImplemented:        "Not Implemented",
}

// StatusText returns the text description for a status code
func StatusText(code StatusCode) string {
	if text, ok := statusText[code]; ok {
		return text
	}
	return "Unknown Status"
}

// IsSuccess returns true for 2xx status codes
func (code StatusCode) IsSuccess() bool {
	return code >= 200 && code < 300
}

// IsClientError returns true for 4xx status codes
func (code StatusCode) IsClientError() bool {
	return code >= 400 && code < 500
}

// IsServerError returns true for 5xx status codes
func (code StatusCode) IsServerError() bool {
	return code >= 500 && code < 600
}
