package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("build_landing_page",
		mcp.WithPromptDescription("Guide through building a landing page from sections, headings and buttons"),
		mcp.WithArgument("product",
			mcp.ArgumentDescription("Product or topic the page presents"),
			mcp.RequiredArgument(),
		),
	), s.handleLandingPagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("data_dashboard",
		mcp.WithPromptDescription("Lay out a dashboard page whose tables and charts are bound to a database"),
		mcp.WithArgument("connectionId",
			mcp.ArgumentDescription("Database connection to bind components to"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the dashboard is about"),
		),
	), s.handleDataDashboardPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("contact_form",
		mcp.WithPromptDescription("Add a contact form with inputs, a checkbox and a submit button"),
		mcp.WithArgument("fields",
			mcp.ArgumentDescription("Comma separated list of input labels (default: Name, Email, Message)"),
		),
	), s.handleContactFormPrompt)
}

func (s *Server) handleLandingPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	product := req.Params.Arguments["product"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Build a landing page for: %s", product),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a landing page for "%s" on the active page. Follow these steps:

1. Call get_tree to see what is already on the page, and list_component_types for the palette
2. Add a Section for the hero (add_component), then a Heading and a Paragraph inside it
3. Set the copy with update_text: the heading should read "%s"
4. Add a Row with three Column children for the feature list, each with a Heading and a Paragraph
5. Add a final Section with a Button as the call to action, and set its href with update_props
6. Use update_style for spacing (padding, margin) and background colors
7. Call save_page when the layout looks right

Use undo if a step goes wrong instead of deleting and re-adding components.`, product, product),
				},
			},
		},
	}, nil
}

func (s *Server) handleDataDashboardPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	connID := req.Params.Arguments["connectionId"]
	topic := req.Params.Arguments["topic"]
	if topic == "" {
		topic = "the data"
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Create a dashboard for %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Create a dashboard about %s using database connection %s. Follow these steps:

1. Call introspect_database with connectionId "%s" and pick the most relevant tables
2. Add a Heading at the root with a title for the dashboard
3. Add a Row with two Column children
4. In one column add a DataTable, in the other a Chart (add_component)
5. Bind each of them to a table with bind_component and check the rows with preview_component
6. Call save_page

Keep previews small: a limit of 10 to 20 rows is enough for the editor.`, topic, connID, connID),
				},
			},
		},
	}, nil
}

func (s *Server) handleContactFormPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	fields := req.Params.Arguments["fields"]
	if fields == "" {
		fields = "Name, Email, Message"
	}
	return &mcp.GetPromptResult{
		Description: "Add a contact form",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Add a contact form to the active page with these fields: %s. Follow these steps:

1. Add a Form component where it fits (get_tree shows the current layout)
2. For each field add an Input inside the form and set its label and placeholder with update_props
3. Add a Checkbox for consent and a Button with the text "Send"
4. Use duplicate_component when fields share the same setup
5. Call save_page`, fields),
				},
			},
		},
	}, nil
}
