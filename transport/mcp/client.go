package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/sockgate/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"sockgate",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`sockgate - MCP Interface

Inspect and administer the websocket connection registry.

Every websocket client is identified by a ticket (a UUID carried in a cookie).
A ticket is registered on first upgrade and authorizes messages afterwards.

AVAILABLE TOOLS:
- list_connections: List registered tickets
- get_connection: Details of one ticket
- authorize_ticket: Check whether a ticket would be authorized
- notify_ticket: Push a text message to the ticket's open sockets
- evict_connection: Remove a ticket; its sockets stop authorizing
- stats: Registry and socket totals`),
	)

	c.registerTools()
}

func ticketSchema(extra map[string]interface{}) mcp.ToolInputSchema {
	props := map[string]interface{}{
		"ticket": map[string]interface{}{
			"type":        "string",
			"description": "Ticket UUID",
		},
	}
	required := []string{"ticket"}
	for name, prop := range extra {
		props[name] = prop
		required = append(required, name)
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_connections",
		Description: "List every registered ticket",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConnections)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_connection",
		Description: "Get the registry entry for a ticket",
		InputSchema: ticketSchema(nil),
	}, c.handleGetConnection)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "authorize_ticket",
		Description: "Check whether messages carrying this ticket would be authorized",
		InputSchema: ticketSchema(nil),
	}, c.handleAuthorize)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "notify_ticket",
		Description: "Push a text message to every open socket admitted under a ticket",
		InputSchema: ticketSchema(map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Text frame to send",
			},
		}),
	}, c.handleNotify)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "evict_connection",
		Description: "Remove a ticket from the registry",
		InputSchema: ticketSchema(nil),
	}, c.handleEvict)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stats",
		Description: "Registry size and live socket count",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleStats)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeHTTP handles a single JSON-RPC message posted to the /mcp endpoint
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	response := c.mcpServer.HandleMessage(r.Context(), body)

	w.Header().Set("Content-Type", "application/json")
	if response == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	json.NewEncoder(w).Encode(response)
}

// ServeStdio serves the tools over stdin/stdout until the input closes
func (c *Client) ServeStdio() error {
	return server.ServeStdio(c.mcpServer)
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func stringArg(request mcp.CallToolRequest, name string) string {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return ""
	}
	v, _ := args[name].(string)
	return v
}

func (c *Client) handleListConnections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count       int                       `json:"count"`
		Connections []*service.ConnectionInfo `json:"connections"`
	}
	if err := c.apiCall(ctx, "GET", "/api/connections", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Connections) == 0 {
		return mcp.NewToolResultText("No registered tickets"), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Registered tickets (%d):\n", resp.Count)
	for _, info := range resp.Connections {
		sb.WriteString("- ")
		sb.WriteString(formatConnectionLine(info))
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleGetConnection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticket := stringArg(request, "ticket")
	if ticket == "" {
		return mcp.NewToolResultError("ticket is required"), nil
	}

	var info service.ConnectionInfo
	if err := c.apiCall(ctx, "GET", "/api/connections/"+ticket, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatConnectionInfo(&info)), nil
}

func (c *Client) handleAuthorize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticket := stringArg(request, "ticket")
	if ticket == "" {
		return mcp.NewToolResultError("ticket is required"), nil
	}

	var result service.AuthorizeResult
	body := map[string]string{"ticket": ticket}
	if err := c.apiCall(ctx, "POST", "/api/authorize", body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if result.Authorized {
		return mcp.NewToolResultText(fmt.Sprintf("✓ Ticket %s is authorized", result.Ticket)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("✗ Ticket %s is not authorized: %s", result.Ticket, result.Reason)), nil
}

func (c *Client) handleNotify(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticket := stringArg(request, "ticket")
	text := stringArg(request, "text")
	if ticket == "" || text == "" {
		return mcp.NewToolResultError("ticket and text are required"), nil
	}

	var result service.NotifyResult
	body := map[string]string{"text": text}
	if err := c.apiCall(ctx, "POST", "/api/connections/"+ticket+"/notify", body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Delivered to %d socket(s) of %s", result.Delivered, result.Ticket)), nil
}

func (c *Client) handleEvict(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticket := stringArg(request, "ticket")
	if ticket == "" {
		return mcp.NewToolResultError("ticket is required"), nil
	}

	var resp map[string]string
	if err := c.apiCall(ctx, "DELETE", "/api/connections/"+ticket, nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(resp["message"]), nil
}

func (c *Client) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats service.Stats
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Registered tickets: %d\nLive sockets: %d", stats.Connections, stats.LiveSockets)), nil
}

func formatConnectionLine(info *service.ConnectionInfo) string {
	return fmt.Sprintf("%s player=%s sockets=%d admitted=%s",
		info.Ticket, info.Player.Name, info.LiveSockets, info.AdmittedAt.Format(time.RFC3339))
}

func formatConnectionInfo(info *service.ConnectionInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ticket: %s\n", info.Ticket)
	fmt.Fprintf(&sb, "Player: %s", info.Player.Name)
	if info.Player.Anonymous {
		sb.WriteString(" (anonymous)")
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Items: %d\n", len(info.Player.Items))
	fmt.Fprintf(&sb, "Admitted: %s\n", info.AdmittedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Live sockets: %d", info.LiveSockets)
	return sb.String()
}
