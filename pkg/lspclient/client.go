// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package lspclient drives a documentation-language server over stdio,
// walking it through an explicit Spawn -> Initialize -> Ready-for-sync ->
// Indexing -> Query -> Shutdown state machine, grounded on the worker-pool
// and error-aggregation style of docforge's pkg/workers/taskqueue and
// pkg/workers/githubinfo.
package lspclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// State names the client's position in the state machine.
type State int

const (
	StateSpawn State = iota
	StateInitialize
	StateReadyForSync
	StateIndexing
	StateQuery
	StateShutdown
	StateDone
)

func (s State) String() string {
	return [...]string{"Spawn", "Initialize", "Ready-for-sync", "Indexing", "Query", "Shutdown", "Done"}[s]
}

// Config configures one invocation of the client.
type Config struct {
	Command string
	Args []string
	Env []string

	WorkspaceRoot string
	EntryURI string
	// Document is the project's real entry source with the Probe body
	// appended.
	Document string

	HandshakeTimeout time.Duration
	IndexingTimeout time.Duration
	RequestTimeout time.Duration
	Cooldown time.Duration
	Concurrency int
}

// QueryResult is the outcome of one "open external docs" request.
type QueryResult struct {
	URL string
	Resolved bool
}

// Outcome is what a completed (or failed) run produced.
type Outcome struct {
	// Results is keyed by the same key used in the positions map passed
	// to Run.
	Results map[string]QueryResult
	// ServerVersion is the string the server reported at initialize
	// time, used in top-level timeout warnings.
	ServerVersion string
}

// Run spawns the server, drives it through the full state machine and
// returns results for every key in positions (the byte offset, within
// cfg.Document, of each item's probe position). Every key present in
// positions is guaranteed a QueryResult; the error return is non-nil only
// for fatal environment failures such as failing to spawn the server —
// handshake and indexing timeouts are reported as warnings instead, and in
// that case the returned Outcome marks every item unresolved.
func Run(ctx context.Context, cfg Config, positions map[string]int) (Outcome, error) {
	out := Outcome{Results: make(map[string]QueryResult, len(positions))}
	unresolveAll := func() {
		for k := range positions {
			out.Results[k] = QueryResult{Resolved: false}
		}
	}

	state := StateSpawn
	klog.V(2).Infof("lspclient: state=%s", state)

	t, err := spawn(ctx, cfg.Command, cfg.Args, cfg.Env)
	if err != nil {
		unresolveAll()
		return out, fmt.Errorf("lspclient: environment error spawning server: %w", err)
	}
	defer func() {
		state = StateShutdown
		klog.V(2).Infof("lspclient: state=%s", state)
		shutdown(t)
	}()
	go drainServerRequests(ctx, t)

	state = StateInitialize
	klog.V(2).Infof("lspclient: state=%s", state)

	initCtx, cancel := context.WithTimeout(ctx, timeoutOr(cfg.HandshakeTimeout, 30*time.Second))
	defer cancel()
	version, err := handshake(initCtx, t, cfg)
	if err != nil {
		unresolveAll()
		klog.Warningf("lspclient: handshake failed: %v", err)
		return out, nil
	}
	out.ServerVersion = version

	state = StateReadyForSync
	klog.V(2).Infof("lspclient: state=%s", state)
	if err := t.notify("textDocument/didOpen", didOpenParams{
		TextDocument: textDocumentItem{URI: cfg.EntryURI, LanguageID: "rust", Version: 1, Text: cfg.Document},
	}); err != nil {
		unresolveAll()
		return out, fmt.Errorf("lspclient: environment error opening document: %w", err)
	}

	state = StateIndexing
	klog.V(2).Infof("lspclient: state=%s", state)
	idxCtx, idxCancel := context.WithTimeout(ctx, timeoutOr(cfg.IndexingTimeout, 2*time.Minute))
	defer idxCancel()
	if err := awaitIndexing(idxCtx, t, timeoutOr(cfg.Cooldown, 300*time.Millisecond)); err != nil {
		unresolveAll()
		klog.Warningf("lspclient: indexing wait failed (server %s): %v", version, err)
		return out, nil
	}

	state = StateQuery
	klog.V(2).Infof("lspclient: state=%s", state)
	if err := query(ctx, t, cfg, positions, out.Results); err != nil {
		klog.Warningf("lspclient: query phase encountered errors: %v", err)
	}

	return out, nil
}

func timeoutOr(configured, fallback time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}
	return fallback
}

func handshake(ctx context.Context, t *transport, cfg Config) (string, error) {
	ch, err := t.call("initialize", initializeParams{
		RootURI: "file://" + cfg.WorkspaceRoot,
		RootPath: cfg.WorkspaceRoot,
		Capabilities: clientCapabilities{
			Window: windowCapabilities{WorkDoneProgress: true},
		},
	})
	if err != nil {
		return "", err
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case msg := <-ch:
		if msg.Error != nil {
			return "", msg.Error
		}
		var res initializeResult
		if err := json.Unmarshal(msg.Result, &res); err != nil {
			return "", fmt.Errorf("decoding initialize result: %w", err)
		}
		if err := t.notify("initialized", struct{}{}); err != nil {
			return "", err
		}
		if res.ServerInfo != nil {
			return res.ServerInfo.Version, nil
		}
		return "", nil
	}
}

// drainServerRequests answers server-initiated requests (workDoneProgress
// create, capability registration) with a null result so the server never
// blocks waiting on them.
func drainServerRequests(ctx context.Context, t *transport) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-t.serverRequests:
			if !ok {
				return
			}
			if msg.ID != nil {
				_ = t.respondNull(*msg.ID)
			}
		}
	}
}

const indexingTitleMarker = "index"

// awaitIndexing watches $/progress notifications for a begin/end pair
// whose title matches the indexing category, then waits out cooldown
// before returning, absorbing any follow-up reindex storms. It is
// robust to redundant begin/end pairs and to no indexing notification ever
// arriving (some servers index synchronously before responding to
// initialize) by also returning once cooldown elapses with no activity.
func awaitIndexing(ctx context.Context, t *transport, cooldown time.Duration) error {
	indexing := 0
	timer := time.NewTimer(cooldown)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-t.notifications:
			if !ok {
				return fmt.Errorf("server closed connection during indexing")
			}
			if msg.Method != "$/progress" {
				continue
			}
			var p progressParams
			if err := json.Unmarshal(msg.Params, &p); err != nil {
				continue
			}
			if !strings.Contains(strings.ToLower(p.Value.Title), indexingTitleMarker) {
				continue
			}
			switch p.Value.Kind {
			case "begin":
				indexing++
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			case "end":
				if indexing > 0 {
					indexing--
				}
				if indexing == 0 {
					timer.Reset(cooldown)
				}
			}
		case <-timer.C:
			if indexing == 0 {
				return nil
			}
			timer.Reset(cooldown)
		}
	}
}

// query dispatches one "external documentation" request per item at the
// recorded probe position, bounded to cfg.Concurrency in flight at once —
// the only knob affecting the server's load.
func query(ctx context.Context, t *transport, cfg Config, positions map[string]int, results map[string]QueryResult) error {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var merr *multierror.Error
	var mu sync.Mutex
	for key, offset := range positions {
		key, offset := key, offset
		g.Go(func() error {
			reqCtx, cancel := context.WithTimeout(gctx, timeoutOr(cfg.RequestTimeout, 10*time.Second))
			defer cancel()
			res, err := queryOne(reqCtx, t, cfg.EntryURI, cfg.Document, offset)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[key] = QueryResult{Resolved: false}
				merr = multierror.Append(merr, fmt.Errorf("item at offset %d: %w", offset, err))
				return nil
			}
			results[key] = res
			return nil
		})
	}
	_ = g.Wait()
	return merr.ErrorOrNil()
}

func queryOne(ctx context.Context, t *transport, uri, document string, offset int) (QueryResult, error) {
	line, char := lineAndChar(document, offset)
	ch, err := t.call("experimental/externalDocs", textDocumentPositionParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Position: position{Line: line, Character: char},
	})
	if err != nil {
		return QueryResult{}, err
	}
	select {
	case <-ctx.Done():
		return QueryResult{}, ctx.Err()
	case msg := <-ch:
		if msg.Error != nil {
			return QueryResult{}, msg.Error
		}
		var url string
		if len(msg.Result) > 0 && string(msg.Result) != "null" {
			if err := json.Unmarshal(msg.Result, &url); err != nil {
				return QueryResult{}, err
			}
		}
		if url == "" {
			return QueryResult{Resolved: false}, nil
		}
		return QueryResult{URL: url, Resolved: true}, nil
	}
}

func lineAndChar(document string, offset int) (line, char int) {
	if offset > len(document) {
		offset = len(document)
	}
	for i := 0; i < offset; i++ {
		if document[i] == '\n' {
			line++
			char = 0
		} else {
			char++
		}
	}
	return line, char
}

func shutdown(t *transport) {
	ch, err := t.call("shutdown", nil)
	if err == nil {
		select {
		case <-ch:
		case <-time.After(3 * time.Second):
		}
	}
	_ = t.notify("exit", nil)
	t.close()

	done := make(chan struct{})
	go func() {
		_ = t.wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.kill()
	}
}
