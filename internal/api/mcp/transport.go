// Package mcp exposes the knowledge-graph manager as an MCP server speaking
// line-delimited JSON-RPC 2.0 over stdin/stdout.
//
// Framing rules: one request per newline-terminated line in, one response per
// newline-terminated line out. Diagnostics go to stderr only; a single stray
// byte on stdout corrupts the protocol stream.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
)

// maxFrameSize bounds a single request or response line. It matches the
// store codec's line limit so any loadable snapshot also fits on the wire.
const maxFrameSize = 4 * 1024 * 1024

// StdioTransport pumps line-delimited JSON-RPC 2.0 between a reader/writer
// pair and a Server. Its logger is pinned to stderr so stdout stays clean
// for framing.
type StdioTransport struct {
	server *Server
	in     io.Reader
	out    io.Writer
	logger *log.Logger
}

// NewStdioTransport wraps srv with a transport reading from in and writing
// to out. In production both are the process's real stdio:
//
//	t := mcp.NewStdioTransport(srv, os.Stdin, os.Stdout)
//	t.Serve(ctx)
func NewStdioTransport(srv *Server, in io.Reader, out io.Writer) *StdioTransport {
	return &StdioTransport{
		server: srv,
		in:     in,
		out:    out,
		logger: log.New(os.Stderr, "iq-mcp: ", log.LstdFlags),
	}
}

// Serve handles requests one at a time, in arrival order, until the input
// stream ends or ctx is cancelled. Clean EOF returns nil; cancellation
// returns the context's error.
func (t *StdioTransport) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, maxFrameSize), maxFrameSize)

	for {
		// Cancellation wins over pending input, and is also how a slow
		// handler's cancellation surfaces between lines.
		if err := ctx.Err(); err != nil {
			t.logger.Println("context cancelled, shutting down")
			return err
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				t.logger.Printf("stdin scanner error: %v", err)
				return fmt.Errorf("stdin scanner: %w", err)
			}
			t.logger.Println("stdin closed, shutting down")
			return nil
		}

		if line := scanner.Bytes(); len(line) > 0 {
			if err := t.dispatch(ctx, line); err != nil {
				return err
			}
		}
	}
}

// dispatch runs one raw request through the server and frames the result.
// Notifications yield no frame at all.
func (t *StdioTransport) dispatch(ctx context.Context, line []byte) error {
	resp, err := t.server.HandleRequest(ctx, line)
	if err != nil {
		// Every request with an ID must still get a response frame
		t.logger.Printf("handler error: %v", err)
		resp = t.internalErrorResponse(line, err)
	}
	if resp == nil {
		return nil
	}

	if _, err := fmt.Fprintf(t.out, "%s\n", resp); err != nil {
		t.logger.Printf("write error: %v", err)
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// internalErrorResponse builds a JSON-RPC error frame for errors the server
// did not map to a response itself, recovering the request ID from the raw
// bytes when it can.
func (t *StdioTransport) internalErrorResponse(rawRequest []byte, handlerErr error) []byte {
	var probe struct {
		ID interface{} `json:"id"`
	}
	_ = json.Unmarshal(rawRequest, &probe)

	data, err := json.Marshal(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      probe.ID,
		Error: &JSONRPCError{
			Code:    ErrCodeInternalError,
			Message: handlerErr.Error(),
		},
	})
	if err != nil {
		// Keep the framing alive even when marshalling fails
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
	}
	return data
}
