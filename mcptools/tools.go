// Package mcptools exposes Micropub publishing operations as MCP tools over
// the streamable HTTP transport. Every handler resolves its credentials from
// the request-scoped auth context injected by the server's bearer middleware;
// there is no ambient session state.
package mcptools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/indiemcp/micropub-bridge/auth"
	"github.com/indiemcp/micropub-bridge/micropub"
)

const serverVersion = "1.0.0"

// Toolset holds the shared dependencies of the tool handlers. The HTTP
// client bounds every Micropub call; a stalled user site must not hang an
// MCP request.
type Toolset struct {
	httpClient *http.Client
}

// NewToolset builds the tool handlers around the given HTTP client. A nil
// client falls back to http.DefaultClient.
func NewToolset(httpClient *http.Client) *Toolset {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Toolset{httpClient: httpClient}
}

// NewHTTPHandler builds the MCP server with all publishing tools registered
// and wraps it in the streamable HTTP transport.
func NewHTTPHandler(appName string, httpClient *http.Client) http.Handler {
	return mcpserver.NewStreamableHTTPServer(NewMCPServer(appName, httpClient))
}

// NewMCPServer builds the MCP server with all publishing tools registered.
func NewMCPServer(appName string, httpClient *http.Client) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(appName, serverVersion,
		mcpserver.WithToolCapabilities(false),
	)
	tools := NewToolset(httpClient)

	s.AddTool(mcp.NewTool("create_post",
		mcp.WithDescription("Create a new post on the authenticated user's website via Micropub"),
		mcp.WithString("content", mcp.Required(), mcp.Description("Body text of the post")),
		mcp.WithString("name", mcp.Description("Optional post title")),
		mcp.WithString("category", mcp.Description("Optional comma-separated list of categories/tags")),
		mcp.WithString("photo", mcp.Description("Optional URL of a photo to attach")),
		mcp.WithString("slug", mcp.Description("Optional URL slug for the post")),
		mcp.WithString("status", mcp.Description("Optional post status, e.g. draft or published")),
	), tools.CreatePost)

	s.AddTool(mcp.NewTool("update_post",
		mcp.WithDescription("Update properties of an existing post"),
		mcp.WithString("url", mcp.Required(), mcp.Description("URL of the post to update")),
		mcp.WithObject("replace", mcp.Description("Properties to replace, e.g. {\"content\": \"new text\"}")),
		mcp.WithObject("add", mcp.Description("Properties to add values to")),
		mcp.WithObject("delete", mcp.Description("Property values to remove, or use delete_properties for whole properties")),
		mcp.WithString("delete_properties", mcp.Description("Comma-separated property names to remove wholesale")),
	), tools.UpdatePost)

	s.AddTool(mcp.NewTool("delete_post",
		mcp.WithDescription("Delete a post"),
		mcp.WithString("url", mcp.Required(), mcp.Description("URL of the post to delete")),
	), tools.DeletePost)

	s.AddTool(mcp.NewTool("undelete_post",
		mcp.WithDescription("Restore a previously deleted post"),
		mcp.WithString("url", mcp.Required(), mcp.Description("URL of the post to restore")),
	), tools.UndeletePost)

	s.AddTool(mcp.NewTool("get_post",
		mcp.WithDescription("Fetch the source properties of a post"),
		mcp.WithString("url", mcp.Required(), mcp.Description("URL of the post to fetch")),
		mcp.WithString("properties", mcp.Description("Optional comma-separated list of properties to return")),
	), tools.GetPost)

	s.AddTool(mcp.NewTool("get_config",
		mcp.WithDescription("Fetch the Micropub endpoint's configuration"),
	), tools.GetConfig)

	s.AddTool(mcp.NewTool("upload_media",
		mcp.WithDescription("Upload a file to the site's media endpoint"),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Name of the file")),
		mcp.WithString("content_type", mcp.Required(), mcp.Description("MIME type of the file")),
		mcp.WithString("data", mcp.Required(), mcp.Description("Base64-encoded file contents")),
	), tools.UploadMedia)

	return s
}

// clientFromContext builds a Micropub client from the request's auth context.
func (ts *Toolset) clientFromContext(ctx context.Context) (*micropub.Client, bool) {
	authCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, false
	}
	return micropub.NewClient(authCtx.Props.MicropubEndpoint, authCtx.Props.AccessToken,
		micropub.WithMediaEndpoint(authCtx.Props.MediaEndpoint),
		micropub.WithHTTPClient(ts.httpClient)), true
}

// CreatePost handles the create_post tool call.
func (ts *Toolset) CreatePost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, ok := ts.clientFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}
	args := request.GetArguments()

	content, _ := args["content"].(string)
	if content == "" {
		return mcp.NewToolResultError("content is required"), nil
	}

	properties := map[string]any{"content": content}
	if name, _ := args["name"].(string); name != "" {
		properties["name"] = name
	}
	if category, _ := args["category"].(string); category != "" {
		properties["category"] = splitCommaList(category)
	}
	if photo, _ := args["photo"].(string); photo != "" {
		properties["photo"] = photo
	}
	if slug, _ := args["slug"].(string); slug != "" {
		properties["mp-slug"] = slug
	}
	if status, _ := args["status"].(string); status != "" {
		properties["post-status"] = status
	}

	result, err := client.CreateEntry(ctx, properties)
	if err != nil {
		return mcp.NewToolResultError("failed to create post: " + err.Error()), nil
	}
	if result.Location != "" {
		return mcp.NewToolResultText("Post created: " + result.Location), nil
	}
	return mcp.NewToolResultText("Post created"), nil
}

// UpdatePost handles the update_post tool call.
func (ts *Toolset) UpdatePost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, ok := ts.clientFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}
	args := request.GetArguments()

	postURL, _ := args["url"].(string)
	if postURL == "" {
		return mcp.NewToolResultError("url is required"), nil
	}

	update := micropub.Update{}
	if replace, ok := args["replace"].(map[string]any); ok {
		update.Replace = replace
	}
	if add, ok := args["add"].(map[string]any); ok {
		update.Add = add
	}
	if del, ok := args["delete"].(map[string]any); ok {
		update.Delete = del
	}
	if names, _ := args["delete_properties"].(string); names != "" {
		update.Delete = splitCommaList(names)
	}
	if update.Replace == nil && update.Add == nil && update.Delete == nil {
		return mcp.NewToolResultError("at least one of replace, add, delete or delete_properties is required"), nil
	}

	if _, err := client.UpdateEntry(ctx, postURL, update); err != nil {
		return mcp.NewToolResultError("failed to update post: " + err.Error()), nil
	}
	return mcp.NewToolResultText("Post updated: " + postURL), nil
}

// DeletePost handles the delete_post tool call.
func (ts *Toolset) DeletePost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, ok := ts.clientFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}

	postURL, _ := request.GetArguments()["url"].(string)
	if postURL == "" {
		return mcp.NewToolResultError("url is required"), nil
	}

	if _, err := client.DeleteEntry(ctx, postURL); err != nil {
		return mcp.NewToolResultError("failed to delete post: " + err.Error()), nil
	}
	return mcp.NewToolResultText("Post deleted: " + postURL), nil
}

// UndeletePost handles the undelete_post tool call.
func (ts *Toolset) UndeletePost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, ok := ts.clientFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}

	postURL, _ := request.GetArguments()["url"].(string)
	if postURL == "" {
		return mcp.NewToolResultError("url is required"), nil
	}

	if _, err := client.UndeleteEntry(ctx, postURL); err != nil {
		return mcp.NewToolResultError("failed to restore post: " + err.Error()), nil
	}
	return mcp.NewToolResultText("Post restored: " + postURL), nil
}

// GetPost handles the get_post tool call.
func (ts *Toolset) GetPost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, ok := ts.clientFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}
	args := request.GetArguments()

	postURL, _ := args["url"].(string)
	if postURL == "" {
		return mcp.NewToolResultError("url is required"), nil
	}

	var properties []string
	if list, _ := args["properties"].(string); list != "" {
		properties = splitCommaList(list)
	}

	source, err := client.GetSource(ctx, postURL, properties)
	if err != nil {
		return mcp.NewToolResultError("failed to fetch post: " + err.Error()), nil
	}
	return jsonToolResult(source)
}

// GetConfig handles the get_config tool call.
func (ts *Toolset) GetConfig(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, ok := ts.clientFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}

	config, err := client.GetConfig(ctx)
	if err != nil {
		return mcp.NewToolResultError("failed to fetch config: " + err.Error()), nil
	}
	return jsonToolResult(config)
}

// UploadMedia handles the upload_media tool call.
func (ts *Toolset) UploadMedia(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	client, ok := ts.clientFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}
	args := request.GetArguments()

	filename, _ := args["filename"].(string)
	contentType, _ := args["content_type"].(string)
	encoded, _ := args["data"].(string)
	if filename == "" || contentType == "" || encoded == "" {
		return mcp.NewToolResultError("filename, content_type and data are required"), nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return mcp.NewToolResultError("data is not valid base64"), nil
	}

	result, err := client.UploadMedia(ctx, filename, contentType, data)
	if err != nil {
		return mcp.NewToolResultError("failed to upload media: " + err.Error()), nil
	}
	if result.Location != "" {
		return mcp.NewToolResultText("Media uploaded: " + result.Location), nil
	}
	return mcp.NewToolResultText("Media uploaded"), nil
}

func jsonToolResult(v any) (*mcp.CallToolResult, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to encode response: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
