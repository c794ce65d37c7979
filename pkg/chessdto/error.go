package chessdto

// ErrorPayload is sent to the acting connection only.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ErrorPayload) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess server error"
}
