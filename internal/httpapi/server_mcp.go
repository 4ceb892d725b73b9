package httpapi

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// JSON-RPC 2.0 error codes used by the tool dispatcher.
const (
	rpcCodeInvalidRequest = -32600
	rpcCodeMethodNotFound = -32601
	rpcCodeInvalidParams  = -32602
	rpcCodeInternalError  = -32603
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func rpcResult(id json.RawMessage, result any) rpcResponse {
	return rpcResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func rpcFail(id json.RawMessage, code int, msg string) rpcResponse {
	return rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}}
}

// handleMCPStream opens the streaming session: it registers a session bound
// to the caller's identity, announces the message endpoint, then keeps the
// connection alive with heartbeats until the session expires, is revoked,
// or the client disconnects.
func (s server) handleMCPStream(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w, r, "missing bearer credential")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternal(w, r, "streaming unsupported", errors.New("response writer is not a flusher"))
		return
	}

	sess := s.sessions.create(ident)
	defer s.sessions.remove(sess.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	bw := bufio.NewWriter(w)
	endpoint := strings.TrimRight(s.publicBaseURL, "/") +
		"/v1/mcp/message?session_id=" + url.QueryEscape(sess.id)
	if err := writeSSE(bw, flusher, "endpoint", endpoint); err != nil {
		return
	}

	ticker := time.NewTicker(s.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			switch s.sessions.heartbeat(r.Context(), sess.id) {
			case heartbeatOK:
				if err := writeSSEComment(bw, flusher, "heartbeat"); err != nil {
					return
				}
			case heartbeatExpired:
				_ = writeSSE(bw, flusher, "session_expired", sess.id)
				return
			case heartbeatRevoked:
				_ = writeSSE(bw, flusher, "session_revoked", sess.id)
				return
			}
		}
	}
}

func writeSSE(bw *bufio.Writer, flusher http.Flusher, event, data string) error {
	if _, err := fmt.Fprintf(bw, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func writeSSEComment(bw *bufio.Writer, flusher http.Flusher, comment string) error {
	if _, err := fmt.Fprintf(bw, ": %s\n\n", comment); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// handleMCPMessage dispatches one JSON-RPC request against an open session.
// Protocol failures are reported as JSON-RPC errors with HTTP 200; only a
// missing or dead session is an HTTP-level failure.
func (s server) handleMCPMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeBadRequest(w, r, "session_id is required")
		return
	}
	sess, ok := s.sessions.get(sessionID)
	if !ok {
		writeUnauthorized(w, r, "unknown or expired session")
		return
	}

	var req rpcRequest
	if !readJSONLimited(w, r, &req, 1<<20) {
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeJSON(w, http.StatusOK, rpcFail(req.ID, rpcCodeInvalidRequest, "invalid JSON-RPC request"))
		return
	}

	writeJSON(w, http.StatusOK, s.dispatchRPC(r, sess, req))
}

func (s server) dispatchRPC(r *http.Request, sess *mcpSession, req rpcRequest) rpcResponse {
	switch req.Method {
	case "initialize":
		return rpcResult(req.ID, map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo":      map[string]any{"name": "journalgate", "version": "1.0.0"},
			"capabilities":    map[string]any{"tools": map[string]any{}},
		})
	case "tools/list":
		return rpcResult(req.ID, map[string]any{"tools": s.visibleTools(sess)})
	case "tools/call":
		return s.dispatchToolCall(r, sess, req)
	default:
		return rpcFail(req.ID, rpcCodeMethodNotFound, "method not found: "+req.Method)
	}
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s server) dispatchToolCall(r *http.Request, sess *mcpSession, req rpcRequest) rpcResponse {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return rpcFail(req.ID, rpcCodeInvalidParams, "invalid tool call params")
	}

	tool, ok := s.toolByName(params.Name)
	if !ok {
		return rpcFail(req.ID, rpcCodeMethodNotFound, "unknown tool: "+params.Name)
	}
	if !sess.hasScope(tool.RequiredScope) {
		return rpcFail(req.ID, rpcCodeInvalidRequest, "session lacks scope "+tool.RequiredScope)
	}

	// Budget is charged before execution: failed calls count too.
	if err := s.sessions.consumeCall(sess.id); err != nil {
		if errors.Is(err, errSessionNotFound) {
			return rpcFail(req.ID, rpcCodeInvalidRequest, "unknown or expired session")
		}
		return rpcFail(req.ID, rpcCodeInvalidRequest, err.Error())
	}

	result, err := s.runTool(r, sess, tool, params.Arguments)
	if err != nil {
		var inputErr *toolInputError
		if errors.As(err, &inputErr) {
			return rpcFail(req.ID, rpcCodeInvalidParams, inputErr.Error())
		}
		logError(r.Context(), "tool "+tool.Name+" failed", err)
		return rpcFail(req.ID, rpcCodeInternalError, "tool execution failed")
	}
	return rpcResult(req.ID, result)
}

// runTool guards the executor with a recover so a panicking tool surfaces
// as a protocol error rather than tearing down the connection.
func (s server) runTool(r *http.Request, sess *mcpSession, tool toolDefinition, args json.RawMessage) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tool panic: %v", p)
		}
	}()
	return tool.run(r.Context(), s, sess, args)
}
