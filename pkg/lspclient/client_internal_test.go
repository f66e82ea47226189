// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package lspclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer drives the other end of a transport's pipes the way a real
// language server would, letting the state-machine helpers in client.go be
// exercised without spawning a subprocess.
type fakeServer struct {
	r *bufio.Reader
	w io.Writer
}

func (f *fakeServer) readMsg(t *testing.T) response {
	t.Helper()
	msg, err := readMessage(f.r)
	require.NoError(t, err)
	return msg
}

func (f *fakeServer) writeFrame(t *testing.T, v interface{}) {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	_, err = fmt.Fprintf(f.w, "Content-Length: %d\r\n\r\n", len(body))
	require.NoError(t, err)
	_, err = f.w.Write(body)
	require.NoError(t, err)
}

func newPipedTransport() (*transport, *fakeServer) {
	toServerR, toServerW := io.Pipe()
	fromServerR, fromServerW := io.Pipe()

	tr := &transport{
		stdin:          toServerW,
		stdout:         bufio.NewReader(fromServerR),
		pending:        map[int64]chan response{},
		notifications:  make(chan response, 64),
		serverRequests: make(chan response, 16),
		done:           make(chan struct{}),
	}
	go tr.readLoop()

	return tr, &fakeServer{r: bufio.NewReader(toServerR), w: fromServerW}
}

func TestHandshakeReturnsServerVersion(t *testing.T) {
	tr, fs := newPipedTransport()
	cfg := Config{WorkspaceRoot: "/proj"}

	done := make(chan struct{})
	var version string
	var herr error
	go func() {
		version, herr = handshake(context.Background(), tr, cfg)
		close(done)
	}()

	req := fs.readMsg(t)
	assert.Equal(t, "initialize", req.Method)
	fs.writeFrame(t, struct {
		JSONRPC string `json:"jsonrpc"`
		ID      int64  `json:"id"`
		Result  interface{} `json:"result"`
	}{"2.0", *req.ID, initializeResult{ServerInfo: &serverInfo{Version: "test-1"}}})

	initialized := fs.readMsg(t)
	assert.Equal(t, "initialized", initialized.Method)

	<-done
	require.NoError(t, herr)
	assert.Equal(t, "test-1", version)
}

func TestAwaitIndexingReturnsAfterBeginEndAndCooldown(t *testing.T) {
	tr, _ := newPipedTransport()

	send := func(kind, title string) {
		p := progressParams{Value: progressValue{Kind: kind, Title: title}}
		body, _ := json.Marshal(p)
		tr.notifications <- response{Method: "$/progress", Params: body}
	}
	send("begin", "Indexing")
	send("end", "Indexing")

	err := awaitIndexing(context.Background(), tr, 10*time.Millisecond)
	assert.NoError(t, err)
}

func TestAwaitIndexingPropagatesContextCancellation(t *testing.T) {
	tr, _ := newPipedTransport()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := awaitIndexing(ctx, tr, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueryOneReturnsResolvedURL(t *testing.T) {
	tr, fs := newPipedTransport()

	done := make(chan struct{})
	var result QueryResult
	var qerr error
	go func() {
		result, qerr = queryOne(context.Background(), tr, "file:///proj/src/lib.rs", "fn main() {}", 3)
		close(done)
	}()

	req := fs.readMsg(t)
	assert.Equal(t, "experimental/externalDocs", req.Method)
	fs.writeFrame(t, struct {
		JSONRPC string      `json:"jsonrpc"`
		ID      int64       `json:"id"`
		Result  interface{} `json:"result"`
	}{"2.0", *req.ID, "https://docs.rs/foo/1.0/foo/fn.main.html"})

	<-done
	require.NoError(t, qerr)
	assert.True(t, result.Resolved)
	assert.Equal(t, "https://docs.rs/foo/1.0/foo/fn.main.html", result.URL)
}

func TestQueryOneReturnsUnresolvedOnNullResult(t *testing.T) {
	tr, fs := newPipedTransport()

	done := make(chan struct{})
	var result QueryResult
	go func() {
		result, _ = queryOne(context.Background(), tr, "file:///proj/src/lib.rs", "fn main() {}", 3)
		close(done)
	}()

	req := fs.readMsg(t)
	fs.writeFrame(t, struct {
		JSONRPC string      `json:"jsonrpc"`
		ID      int64       `json:"id"`
		Result  interface{} `json:"result"`
	}{"2.0", *req.ID, nil})

	<-done
	assert.False(t, result.Resolved)
}

func TestLineAndChar(t *testing.T) {
	doc := "fn a() {}\nfn b() {}\n"
	line, char := lineAndChar(doc, 0)
	assert.Equal(t, 0, line)
	assert.Equal(t, 0, char)

	line, char = lineAndChar(doc, len("fn a() {}\n")+3)
	assert.Equal(t, 1, line)
	assert.Equal(t, 3, char)
}

func TestTimeoutOrFallsBackWhenUnconfigured(t *testing.T) {
	assert.Equal(t, 5*time.Second, timeoutOr(0, 5*time.Second))
	assert.Equal(t, 2*time.Second, timeoutOr(2*time.Second, 5*time.Second))
}

func TestStateStringNamesEveryState(t *testing.T) {
	assert.Equal(t, "Spawn", StateSpawn.String())
	assert.Equal(t, "Done", StateDone.String())
}
