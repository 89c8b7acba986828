// Package a2aclient delivers a task to a remote agent card over the
// tasks/send JSON-RPC method, generalized from the teacher's
// internal/a2a/client package's A2AClient.SendTask into the
// wrapper.RemoteDelivery capability interface.
package a2aclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/seiggy/lucia/internal/wrapper"
)

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      int             `json:"id"`
	Params  json.RawMessage `json:"params"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonrpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *jsonrpcError   `json:"error,omitempty"`
}

type sendTaskParams struct {
	ContextID string `json:"contextId"`
	TaskID    string `json:"taskId,omitempty"`
	Message   struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"message"`
}

type sendTaskResult struct {
	Task *wireTask `json:"task,omitempty"`
	Text *string   `json:"text,omitempty"`
}

type wireTask struct {
	Status struct {
		State   string `json:"state"`
		Message *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"message,omitempty"`
	} `json:"status"`
}

// Client delivers tasks/send requests to a single remote agent card.
type Client struct {
	http *http.Client
}

// New builds a Client using httpClient for outbound calls; pass an
// otelhttp-instrumented client so remote hops join the caller's trace.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient}
}

// Deliver implements wrapper.RemoteDelivery.
func (c *Client) Deliver(ctx context.Context, payload wrapper.RemoteTaskPayload) (*wrapper.RemoteTaskResult, error) {
	var params sendTaskParams
	params.ContextID = payload.ContextID
	params.TaskID = payload.TaskID
	params.Message.Role = payload.Message.Role
	params.Message.Parts = append(params.Message.Parts, struct {
		Text string `json:"text"`
	}{Text: payload.Message.Text})

	paramBytes, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	body, err := json.Marshal(jsonrpcRequest{JSONRPC: "2.0", Method: "tasks/send", ID: 1, Params: paramBytes})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, payload.AgentExtension, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("remote agent http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var rpcResp jsonrpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("remote agent rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	var result sendTaskResult
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}

	if result.Task != nil {
		lastMessage := ""
		if result.Task.Status.Message != nil && len(result.Task.Status.Message.Parts) > 0 {
			lastMessage = result.Task.Status.Message.Parts[0].Text
		}
		return &wrapper.RemoteTaskResult{
			FullTask: &wrapper.RemoteFullTask{
				Status:      wrapper.RemoteTaskStatus(result.Task.Status.State),
				LastMessage: lastMessage,
			},
		}, nil
	}
	if result.Text != nil {
		return &wrapper.RemoteTaskResult{BareMessage: result.Text}, nil
	}
	return &wrapper.RemoteTaskResult{}, nil
}

var _ wrapper.RemoteDelivery = (*Client)(nil)
