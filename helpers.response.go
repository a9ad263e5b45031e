package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// StatusClientClosedRequest is the Nginx non standard status code used
// to record requests cancelled by the client.
const StatusClientClosedRequest = 499

// AbortedHeader is set once the response was already sent by a middleware
// so that the final handler does not write anything else.
const AbortedHeader = "X-BCAT-ABORTED"

// CustomResponseWriter is a wrapper for http.ResponseWriter. It is
// used to record response details like status code and body size.
// The underlying network connection is tracked for dynamic read/write
// deadline setup.
type CustomResponseWriter struct {
	http.ResponseWriter
	conn  net.Conn
	code  int
	bytes int
	wrote bool
}

// NewCustomResponseWriter provides CustomResponseWriter with 200 as status code.
func NewCustomResponseWriter(rw http.ResponseWriter, c net.Conn) *CustomResponseWriter {
	return &CustomResponseWriter{
		ResponseWriter: rw,
		conn:           c,
		code:           http.StatusOK,
	}
}

// WriteHeader records the first status code and forwards it unless
// the request was already aborted.
func (cw *CustomResponseWriter) WriteHeader(code int) {
	if cw.wrote {
		return
	}
	cw.code = code
	cw.wrote = true
	if cw.Header().Get(AbortedHeader) == "" {
		cw.ResponseWriter.WriteHeader(code)
	}
}

// Write implements http.ResponseWriter.
func (cw *CustomResponseWriter) Write(b []byte) (int, error) {
	if cw.Header().Get(AbortedHeader) != "" {
		return 0, errors.New("handler: request timed out or cancelled")
	}
	if !cw.wrote {
		cw.WriteHeader(cw.code)
	}
	n, err := cw.ResponseWriter.Write(b)
	cw.bytes += n
	return n, err
}

// Status returns the written status code.
func (cw *CustomResponseWriter) Status() int {
	return cw.code
}

// Bytes returns bytes written as response body.
func (cw *CustomResponseWriter) Bytes() int {
	return cw.bytes
}

// Unwrap returns native response writer and used by
// the http.ResponseController during its operation.
func (cw *CustomResponseWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

// SetWriteDeadline rewrites the underlying connection write deadline.
func (cw *CustomResponseWriter) SetWriteDeadline(t time.Time) error {
	if cw.conn == nil {
		return http.ErrNotSupported
	}
	return cw.conn.SetWriteDeadline(t)
}

// SetReadDeadline rewrites the underlying connection read deadline.
func (cw *CustomResponseWriter) SetReadDeadline(t time.Time) error {
	if cw.conn == nil {
		return http.ErrNotSupported
	}
	return cw.conn.SetReadDeadline(t)
}

// APIError is the data model sent when an error occurred during request processing.
type APIError struct {
	RequestID string      `json:"requestid"`
	Status    int         `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
}

// APIResponse is the envelope sent on a request success
// when the response is not the resource itself.
type APIResponse struct {
	RequestID string      `json:"requestid"`
	Status    int         `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
}

func NewAPIError(requestid string, status int, message string, data interface{}) *APIError {
	return &APIError{
		RequestID: requestid,
		Status:    status,
		Message:   message,
		Data:      data,
	}
}

func GenericResponse(requestid string, status int, message string, data interface{}) *APIResponse {
	return &APIResponse{
		RequestID: requestid,
		Status:    status,
		Message:   message,
		Data:      data,
	}
}

// checkContext records 499 when the client went away and 504 when the
// processing timed out. In both cases nothing should be written anymore.
func checkContext(ctx context.Context, w http.ResponseWriter) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		w.WriteHeader(http.StatusGatewayTimeout)
	} else {
		w.WriteHeader(StatusClientClosedRequest)
	}
	w.Header().Set(AbortedHeader, "1")
	return err
}

// WriteErrorResponse is used to send error response to client.
func WriteErrorResponse(ctx context.Context, w http.ResponseWriter, errResp *APIError) error {
	return WriteJSON(ctx, w, errResp.Status, errResp)
}

// WriteResponse is used to send success envelope response to client.
func WriteResponse(ctx context.Context, w http.ResponseWriter, resp *APIResponse) error {
	return WriteJSON(ctx, w, resp.Status, resp)
}

// WriteJSON sends v as json body with the given status code.
func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) error {
	if err := checkContext(ctx, w); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}

// StatusResponse is the data model sent when status endpoint is called.
type StatusResponse struct {
	RequestID string `json:"requestid"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}
