package contracts

import (
	"codelens/internal/core/errors"
	"encoding/json"
	stderrors "errors"
)

const (
	ToolNameCodelens = "codelens"
	ContractVersion  = "v1"
	// ReadyMessage is the stderr log message the engine emits once it serves
	// requests.
	ReadyMessage = "codelens engine ready"
)

// ToolArgs selects an operation and carries its raw params.
type ToolArgs struct {
	Operation string          `json:"operation"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Request is one inbound protocol line.
type Request struct {
	ID   uint64   `json:"id"`
	Tool string   `json:"tool"`
	Args ToolArgs `json:"args"`
}

// Envelope wraps a successful operation result.
type Envelope struct {
	Version   string          `json:"version"`
	Operation string          `json:"operation"`
	Result    json.RawMessage `json:"result"`
}

// Response is one outbound protocol line. Exactly one of Result and Error is
// set.
type Response struct {
	ID     uint64     `json:"id"`
	OK     bool       `json:"ok"`
	Result *Envelope  `json:"result,omitempty"`
	Error  *ToolError `json:"error,omitempty"`
}

// ToolError is the error shape on the wire. Kind is an error code such as
// CLASS_NOT_FOUND; Context carries the request params and diagnostics.
type ToolError struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

func (e ToolError) Error() string {
	return e.Kind + ": " + e.Message
}

// FromError maps any error to a ToolError, keeping the code and context of a
// DomainError.
func FromError(err error) ToolError {
	var toolErr ToolError
	if stderrors.As(err, &toolErr) {
		return toolErr
	}
	var de *errors.DomainError
	if stderrors.As(err, &de) {
		out := ToolError{Kind: string(de.Code), Message: de.Message}
		if de.Err != nil {
			out.Message += ": " + de.Err.Error()
		}
		if len(de.Context) > 0 {
			out.Context = make(map[string]any, len(de.Context))
			for k, v := range de.Context {
				out.Context[k] = v
			}
		}
		return out
	}
	return ToolError{Kind: string(errors.CodeInternal), Message: err.Error()}
}

// DomainError turns a received ToolError back into a DomainError so callers
// can match it with errors.IsCode.
func (e ToolError) DomainError() error {
	de := &errors.DomainError{Code: errors.ErrorCode(e.Kind), Message: e.Message}
	for k, v := range e.Context {
		de.WithContext(k, v)
	}
	return de
}

func InvalidArgument(message string, context map[string]any) ToolError {
	return ToolError{Kind: string(errors.CodeValidationError), Message: message, Context: context}
}
