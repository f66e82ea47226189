// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package lspclient

import "encoding/json"

// request is a JSON-RPC 2.0 request object.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID int64 `json:"id,omitempty"`
	Method string `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// response is a JSON-RPC 2.0 response or notification as received from the
// server; Method is set only for notifications (no ID).
type response struct {
	JSONRPC string `json:"jsonrpc"`
	ID *int64 `json:"id,omitempty"`
	Method string `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code int `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return e.Message }

type initializeParams struct {
	ProcessID int `json:"processId"`
	RootURI string `json:"rootUri"`
	RootPath string `json:"rootPath"`
	Capabilities clientCapabilities `json:"capabilities"`
}

type clientCapabilities struct {
	Window windowCapabilities `json:"window"`
}

type windowCapabilities struct {
	WorkDoneProgress bool `json:"workDoneProgress"`
}

type initializeResult struct {
	ServerInfo *serverInfo `json:"serverInfo"`
}

type serverInfo struct {
	Name string `json:"name"`
	Version string `json:"version"`
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

type textDocumentItem struct {
	URI string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version int `json:"version"`
	Text string `json:"text"`
}

type progressParams struct {
	Token json.RawMessage `json:"token"`
	Value progressValue `json:"value"`
}

type progressValue struct {
	Kind string `json:"kind"`
	Title string `json:"title"`
}

type workDoneProgressCreateParams struct {
	Token json.RawMessage `json:"token"`
}

type textDocumentPositionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position position `json:"position"`
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type position struct {
	Line int `json:"line"`
	Character int `json:"character"`
}
