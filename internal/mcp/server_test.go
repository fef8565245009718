package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/xiy/toolbelt-mcp/internal/store"
	"github.com/xiy/toolbelt-mcp/internal/weather"
)

type captureSink struct {
	rows []store.Invocation
}

func (c *captureSink) Insert(_ context.Context, rec store.Invocation) error {
	c.rows = append(c.rows, rec)
	return nil
}

func newTestMCPServer(sink AuditSink) *Server {
	logger := log.NewWithOptions(io.Discard, log.Options{})
	return NewServer(weather.NewNWSClient(), logger, sink)
}

func TestHandle_ToolsList(t *testing.T) {
	t.Parallel()
	srv := newTestMCPServer(nil)

	id := json.RawMessage(`1`)
	resp, ok := srv.handle(context.Background(), request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "tools/list",
	})
	if !ok {
		t.Fatal("expected response")
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error response: %+v", resp.Error)
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	defs, ok := result["tools"].([]ToolDefinition)
	if !ok || len(defs) != 5 {
		t.Fatalf("expected 5 tool definitions, got %v", result["tools"])
	}
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	want := "get_alerts get_forecast calculate get_current_time get_current_utc_time"
	if got := strings.Join(names, " "); got != want {
		t.Fatalf("tool names = %q, want %q", got, want)
	}
}

func TestHandle_Calculate(t *testing.T) {
	t.Parallel()
	srv := newTestMCPServer(nil)

	params, _ := json.Marshal(map[string]any{
		"name":      "calculate",
		"arguments": map[string]any{"expression": "2 ^ 10"},
	})
	resp, ok := srv.handle(context.Background(), request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "tools/call",
		Params:  params,
	})
	if !ok {
		t.Fatal("expected response")
	}
	result := resp.Result.(map[string]any)
	if isErr, _ := result["isError"].(bool); isErr {
		t.Fatalf("unexpected tool error: %v", result)
	}
	content := result["content"].([]map[string]any)
	if text, _ := content[0]["text"].(string); text != "Result: 1024" {
		t.Fatalf("calculate text = %q", text)
	}
}

func TestHandle_CalculateFailureIsErrorContent(t *testing.T) {
	t.Parallel()
	srv := newTestMCPServer(nil)

	params, _ := json.Marshal(map[string]any{
		"name":      "calculate",
		"arguments": map[string]any{"expression": "open('/etc/passwd')"},
	})
	resp, ok := srv.handle(context.Background(), request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  "tools/call",
		Params:  params,
	})
	if !ok {
		t.Fatal("expected response")
	}
	if resp.Error != nil {
		t.Fatalf("tool failure must be isError content, not an RPC error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]any)
	if isErr, _ := result["isError"].(bool); !isErr {
		t.Fatalf("expected isError result, got %v", result)
	}
}

func TestHandle_CurrentTimeTools(t *testing.T) {
	t.Parallel()
	srv := newTestMCPServer(nil)

	for name, prefix := range map[string]string{
		"get_current_time":     "Current date and time: ",
		"get_current_utc_time": "Current UTC date and time: ",
	} {
		params, _ := json.Marshal(map[string]any{"name": name, "arguments": map[string]any{}})
		resp, _ := srv.handle(context.Background(), request{
			JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "tools/call", Params: params,
		})
		result := resp.Result.(map[string]any)
		content := result["content"].([]map[string]any)
		text, _ := content[0]["text"].(string)
		if !strings.HasPrefix(text, prefix) {
			t.Fatalf("%s text = %q", name, text)
		}
	}
}

func TestReadWriteFramedMessage(t *testing.T) {
	t.Parallel()
	resp := response{JSONRPC: "2.0", ID: 1, Result: map[string]any{"ok": true}}
	var payloadBuf bytes.Buffer
	bw := bufio.NewWriter(&payloadBuf)
	if err := writeFramedMessage(bw, resp); err != nil {
		t.Fatalf("writeFramedMessage() error = %v", err)
	}
	br := bufio.NewReader(bytes.NewReader(payloadBuf.Bytes()))
	payload, err := readFramedMessage(br)
	if err != nil {
		t.Fatalf("readFramedMessage() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got["jsonrpc"] != "2.0" {
		t.Fatalf("expected jsonrpc 2.0, got %v", got["jsonrpc"])
	}
}

func TestReadMessage_JSONLine(t *testing.T) {
	t.Parallel()
	raw := []byte("{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"ping\"}\n")
	br := bufio.NewReader(bytes.NewReader(raw))

	payload, mode, err := readMessage(br)
	if err != nil {
		t.Fatalf("readMessage() error = %v", err)
	}
	if mode != wireModeJSONLine {
		t.Fatalf("expected JSON-line mode, got %v", mode)
	}

	var req request
	if err := json.Unmarshal(payload, &req); err != nil {
		t.Fatalf("json.Unmarshal(payload) error = %v", err)
	}
	if req.Method != "ping" {
		t.Fatalf("expected method ping, got %q", req.Method)
	}
}

func TestServe_JSONLineInitialize(t *testing.T) {
	t.Parallel()
	srv := newTestMCPServer(nil)

	in := bytes.NewBufferString("{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"initialize\",\"params\":{\"protocolVersion\":\"2024-11-05\"}}\n")
	var out bytes.Buffer
	if err := srv.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	line := bytes.TrimSpace(out.Bytes())
	if len(line) == 0 {
		t.Fatal("expected JSON-line response, got empty output")
	}
	if bytes.Contains(line, []byte("Content-Length:")) {
		t.Fatalf("expected JSON-line response, got framed output: %q", string(line))
	}

	var resp map[string]any
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("json.Unmarshal(response) error = %v", err)
	}
	if resp["jsonrpc"] != "2.0" {
		t.Fatalf("expected jsonrpc 2.0, got %v", resp["jsonrpc"])
	}
}

func TestServe_RecordsToolCalls(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	srv := newTestMCPServer(sink)

	in := bytes.NewBufferString("{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"tools/call\",\"params\":{\"name\":\"calculate\",\"arguments\":{\"expression\":\"nope(\"}}}\n")
	var out bytes.Buffer
	if err := srv.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	if len(sink.rows) != 1 {
		t.Fatalf("expected 1 invocation row, got %d", len(sink.rows))
	}
	got := sink.rows[0]
	if got.Surface != "stdio" {
		t.Fatalf("expected surface stdio, got %q", got.Surface)
	}
	if got.ToolName != "calculate" {
		t.Fatalf("expected tool calculate, got %q", got.ToolName)
	}
	if got.Success {
		t.Fatal("expected failed invocation for malformed expression")
	}
	if got.ErrorText == "" {
		t.Fatal("expected non-empty error text")
	}
}
