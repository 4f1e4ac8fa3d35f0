package llm

import "fmt"

// ServiceError reports a failed call to the AI service: a non-2xx status,
// a transport failure, or an empty reply.
type ServiceError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("AI service error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("AI service error: %s", e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ResponseFormatError reports a reply that is neither bare JSON nor a fenced JSON block,
// or whose JSON does not have the expected shape.
type ResponseFormatError struct {
	Raw string
	Err error
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("AI response has an unexpected format: %v", e.Err)
}

func (e *ResponseFormatError) Unwrap() error { return e.Err }
