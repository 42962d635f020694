package mcp

import "github.com/mark3labs/mcp-go/mcp"

var fetchToolDef = mcp.NewTool("toc_fetch",
	mcp.WithDescription("Fetch a stored table of contents by snapshot id, or the latest snapshot of a page. Provide exactly one of id or page."),
	mcp.WithString("id", mcp.Description("Snapshot id (ULID)")),
	mcp.WithString("page", mcp.Description("Page identifier, matched case-insensitively")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var listToolDef = mcp.NewTool("toc_list",
	mcp.WithDescription("List indexed pages, most recently updated first."),
	mcp.WithNumber("limit", mcp.Description("Maximum items to return (default 20, max 100)"), mcp.Min(1), mcp.Max(100)),
	mcp.WithNumber("offset", mcp.Description("Items to skip"), mcp.Min(0)),
	mcp.WithReadOnlyHintAnnotation(true),
)

var searchToolDef = mcp.NewTool("toc_search",
	mcp.WithDescription("Search section titles across the latest snapshot of every page. Matching is a case-insensitive substring test."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Search term (max 200 characters)")),
	mcp.WithString("page", mcp.Description("Restrict results to one page")),
	mcp.WithNumber("limit", mcp.Description("Maximum items to return (default 20, max 100)"), mcp.Min(1), mcp.Max(100)),
	mcp.WithNumber("offset", mcp.Description("Items to skip"), mcp.Min(0)),
	mcp.WithReadOnlyHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("toc_export",
	mcp.WithDescription("Export the latest table of contents of a page as plain text, one \"#<n> <badge> <title>\" line per section. Optionally writes a .txt file."),
	mcp.WithString("page", mcp.Required(), mcp.Description("Page identifier")),
	mcp.WithString("path", mcp.Description("Destination .txt file inside the exports directory")),
)

var deleteToolDef = mcp.NewTool("toc_delete",
	mcp.WithDescription("Delete every stored snapshot of a page."),
	mcp.WithString("page", mcp.Required(), mcp.Description("Page identifier")),
	mcp.WithDestructiveHintAnnotation(true),
)

var pruneToolDef = mcp.NewTool("toc_prune",
	mcp.WithDescription("Delete older snapshots of a page, keeping the newest ones."),
	mcp.WithString("page", mcp.Required(), mcp.Description("Page identifier")),
	mcp.WithNumber("keep", mcp.Description("Snapshots to keep (default 1)"), mcp.Min(1)),
	mcp.WithDestructiveHintAnnotation(true),
)
