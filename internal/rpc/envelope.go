// Package rpc defines the JSON-RPC 2.0 envelope spoken by the signup check
// endpoints and a client for it.
//
// Requests look like
//
//	{"jsonrpc":"2.0","method":"call","params":{"port":"8082"},"id":7}
//
// and replies carry either a result or an error object:
//
//	{"jsonrpc":"2.0","id":7,"result":{"available":true,"message":"Port 8082 is available!"}}
//	{"jsonrpc":"2.0","id":7,"error":{"code":-32602,"message":"Invalid params"}}
package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Version is the only accepted value of the "jsonrpc" member.
const Version = "2.0"

// MethodCall is the method name used by every endpoint. Routing happens on
// the URL path, not the method.
const MethodCall = "call"

// Endpoint paths.
const (
	PathCheckPort      = "/saas/check-port"
	PathCheckSubdomain = "/saas/check-subdomain"
	PathAllocatePort   = "/saas/allocate-port"
	PathPlans          = "/saas/plans"
)

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a JSON-RPC request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc" validate:"eq=2.0"`
	Method  string          `json:"method,omitempty" validate:"omitempty,eq=call"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Response is a JSON-RPC response envelope. Exactly one of Result and Error
// is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object. It satisfies the error interface so
// clients can return it directly.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewError creates an Error with the standard message for code.
func NewError(code int, data string) *Error {
	return &Error{Code: code, Message: codeMessage(code), Data: data}
}

func codeMessage(code int) string {
	switch code {
	case CodeParseError:
		return "Parse error"
	case CodeInvalidRequest:
		return "Invalid Request"
	case CodeMethodNotFound:
		return "Method not found"
	case CodeInvalidParams:
		return "Invalid params"
	default:
		return "Internal error"
	}
}

// PortParams are the params of PathCheckPort.
type PortParams struct {
	Port FlexString `json:"port"`
}

// SubdomainParams are the params of PathCheckSubdomain.
type SubdomainParams struct {
	Subdomain string `json:"subdomain"`
}

// AllocateResult is the result of PathAllocatePort.
type AllocateResult struct {
	Port int `json:"port"`
}

// FlexString accepts a JSON string, number or null. Browsers post the port
// as typed text while scripts tend to send a number; both mean the same.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("port must be a string or a number: %w", err)
		}
		// Integral floats such as 8082.0 are written without the fraction.
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			*f = FlexString(strconv.FormatInt(i, 10))
			return nil
		}
		if fl, err := n.Float64(); err == nil && fl == float64(int64(fl)) {
			*f = FlexString(strconv.FormatInt(int64(fl), 10))
			return nil
		}
		*f = FlexString(n.String())
		return nil
	}
}

// String returns the value as text.
func (f FlexString) String() string {
	return string(f)
}
