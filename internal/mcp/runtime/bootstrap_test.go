package runtime

import (
	"bufio"
	"bytes"
	"codelens/internal/core/config"
	"codelens/internal/core/ports"
	"codelens/internal/engine/index/indextest"
	"codelens/internal/mcp/contracts"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestBuild_ServesLineProtocol(t *testing.T) {
	root := indextest.WriteProject(t, map[string]string{
		"src/com/acme/Order.java": `package com.acme;

public class Order {
    private Customer customer;
}
`,
		"src/com/acme/Customer.java": `package com.acme;

public class Customer {
    private String name;
}
`,
	})

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	logs := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))

	server, err := Build(config.DefaultConfig(), root, inR, outW, logger)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- server.Start(context.Background()) }()

	lines := bufio.NewScanner(outR)
	roundTrip := func(req string) contracts.Response {
		_, err := io.WriteString(inW, req+"\n")
		require.NoError(t, err)
		require.True(t, lines.Scan(), "expected a response line")
		var resp contracts.Response
		require.NoError(t, json.Unmarshal(lines.Bytes(), &resp))
		return resp
	}

	resp := roundTrip(`{"id":1,"tool":"codelens","args":{"operation":"get_type_structure","params":{"className":"Order","maxDepth":3}}}`)
	require.True(t, resp.OK, "%+v", resp.Error)
	assert.Equal(t, ports.OpTypeStructure, resp.Result.Operation)
	assert.Contains(t, string(resp.Result.Result), "com.acme.Customer")
	assert.Contains(t, logs.String(), ReadyMessage)

	resp = roundTrip(`{"id":2,"tool":"codelens","args":{"operation":"get_type_structure","params":{"className":"Invoice"}}}`)
	require.False(t, resp.OK)
	assert.Equal(t, uint64(2), resp.ID)
	assert.Equal(t, "CLASS_NOT_FOUND", resp.Error.Kind)
	assert.Equal(t, map[string]any{"className": "Invoice"}, resp.Error.Context["params"])

	require.NoError(t, inW.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not exit after stdin closed")
	}
	require.NoError(t, server.Close(context.Background()))
	_ = outW.Close()
}

func TestBuild_RejectsUnknownAllowlistEntry(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Engine.Operations = []string{"scan_once"}
	_, err := Build(cfg, t.TempDir(), bytes.NewReader(nil), io.Discard, nil)
	require.Error(t, err)
}
