package mcp_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/study-flamingo/iq-mcp-sub000/internal/api/mcp"
)

func TestStdioTransportProcessesUntilEOF(t *testing.T) {
	srv := newTestServer(t)

	in := strings.NewReader(
		`{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2024-11-05"},"id":1}` + "\n" +
			`{"jsonrpc":"2.0","method":"tools/list","id":2}` + "\n")
	var out bytes.Buffer

	transport := mcp.NewStdioTransport(srv, in, &out)
	require.NoError(t, transport.Serve(context.Background()))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"protocolVersion"`)
	assert.Contains(t, lines[1], `"create_entities"`)
}

func TestStdioTransportSkipsNotificationsAndBlankLines(t *testing.T) {
	srv := newTestServer(t)

	in := strings.NewReader(
		"\n" +
			`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
			`{"jsonrpc":"2.0","method":"ping","id":1}` + "\n")
	var out bytes.Buffer

	transport := mcp.NewStdioTransport(srv, in, &out)
	require.NoError(t, transport.Serve(context.Background()))

	// Only the ping produces a response frame.
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"id":1`)
}

func TestStdioTransportStopsOnContextCancel(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transport := mcp.NewStdioTransport(srv, strings.NewReader(""), &bytes.Buffer{})
	err := transport.Serve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
