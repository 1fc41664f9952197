// Package mcp connects to Model Context Protocol servers and registers
// their tools into the tally registry at process start. Discovered tools
// carry their server-provided JSON Schema as-is; the executor's timeout
// and truncation discipline still applies, while argument validation is
// delegated to the remote server.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tally-ai/tally/pkg/tools"
)

// ServerConfig describes a single MCP server connection.
type ServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "sse" or "streamable-http"
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
}

// Client wraps an MCP SDK client and session for one server connection.
type Client struct {
	cfg     ServerConfig
	client  *mcp.Client
	session *mcp.ClientSession
}

// NewClient creates a Client for the given server configuration. Call
// Connect to establish the connection.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the MCP connection, performing the protocol
// handshake. A nil transport is created from the server configuration;
// tests may inject their own.
func (c *Client) Connect(ctx context.Context, transport mcp.Transport) error {
	c.client = mcp.NewClient(
		&mcp.Implementation{
			Name:    "tally",
			Version: "1.0.0",
		},
		&mcp.ClientOptions{
			Capabilities: &mcp.ClientCapabilities{},
		},
	)

	if transport == nil {
		t, err := c.createTransport()
		if err != nil {
			return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
		}
		transport = t
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}
	c.session = session
	return nil
}

// createTransport creates an MCP transport from the server configuration.
func (c *Client) createTransport() (mcp.Transport, error) {
	httpClient := c.buildHTTPClient()

	switch c.cfg.Transport {
	case "sse":
		transport := &mcp.SSEClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	case "streamable-http", "":
		transport := &mcp.StreamableClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

// buildHTTPClient returns an HTTP client adding the configured static
// headers, or nil when none are configured.
func (c *Client) buildHTTPClient() *http.Client {
	if len(c.cfg.Headers) == 0 {
		return nil
	}
	return &http.Client{
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			headers: c.cfg.Headers,
		},
	}
}

// headerTransport is an http.RoundTripper that adds custom headers to
// every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// RegisterTools discovers the server's tools and registers each into the
// registry with a handler that proxies the call. Must run during process
// start, before the registry is handed to the engine.
func (c *Client) RegisterTools(ctx context.Context, reg *tools.Registry) error {
	if c.session == nil {
		return fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		def, convErr := c.convertTool(tool)
		if convErr != nil {
			return fmt.Errorf("converting tool %q from %q: %w", tool.Name, c.cfg.Name, convErr)
		}
		if err := reg.Register(def); err != nil {
			return fmt.Errorf("registering tool %q from %q: %w", tool.Name, c.cfg.Name, err)
		}
	}
	return nil
}

// convertTool converts an MCP Tool to a registry definition whose handler
// proxies the call to the server.
func (c *Client) convertTool(t *mcp.Tool) (tools.Definition, error) {
	var schema json.RawMessage
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return tools.Definition{}, fmt.Errorf("marshaling input schema: %w", err)
		}
		schema = data
	}

	name := t.Name
	return tools.Definition{
		Name:        name,
		Description: t.Description,
		Category:    "mcp:" + c.cfg.Name,
		RawSchema:   schema,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return c.call(ctx, name, args)
		},
	}, nil
}

// call executes a tool on the MCP server and flattens the text content.
func (c *Client) call(ctx context.Context, name string, args map[string]any) (any, error) {
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("MCP tool call: %w", err)
	}

	var output string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			if output != "" {
				output += "\n"
			}
			output += tc.Text
		}
	}
	if result.IsError {
		return nil, fmt.Errorf("%s", output)
	}
	return output, nil
}

// Close closes the MCP session.
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}
