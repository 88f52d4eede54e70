package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/template"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/teemow/bandavail/internal/apperr"
	"github.com/teemow/bandavail/internal/auth"
	"github.com/teemow/bandavail/internal/availability"
	"github.com/teemow/bandavail/internal/google"
	"github.com/teemow/bandavail/internal/resources"
	"github.com/teemow/bandavail/internal/tools/availability_tools"
	"github.com/teemow/bandavail/internal/tools/google_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for the tools and resources served by
"bandavail mcp", read from the registered tool definitions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFile == "" {
				return runGenerateDocs(cmd.OutOrStdout())
			}
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			if err := runGenerateDocs(f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(w io.Writer) error {
	mcpSrv, err := newDocsMCPServer()
	if err != nil {
		return err
	}
	return toolsDocTemplate.Execute(w, buildToolsDoc(listTools(mcpSrv)))
}

// newDocsMCPServer registers every tool, including write operations, against
// inert dependencies. Its handlers are never called.
func newDocsMCPServer() (*mcpserver.MCPServer, error) {
	noSheet := func(context.Context) (availability.SheetClient, error) {
		return nil, apperr.ErrNotAuthenticated
	}
	deps := toolDeps{
		google: google_tools.Deps{
			Login:  auth.NewCodeLogin(auth.NewFlow(&oauth2.Config{})),
			Tokens: google.NewFileTokenStore(""),
		},
		availability: availability_tools.Deps{
			Service: availability.NewService(nil),
			Sheet:   noSheet,
		},
	}

	mcpSrv := mcpserver.NewMCPServer("bandavail", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
	if err := registerAllTools(mcpSrv, deps, false); err != nil {
		return nil, err
	}
	return mcpSrv, nil
}

// listTools returns the registered tool definitions sorted by name.
func listTools(mcpSrv *mcpserver.MCPServer) []mcp.Tool {
	var tools []mcp.Tool
	for _, st := range mcpSrv.ListTools() {
		tools = append(tools, st.Tool)
	}
	slices.SortFunc(tools, func(a, b mcp.Tool) int { return strings.Compare(a.Name, b.Name) })
	return tools
}

type toolsDoc struct {
	Sections  []toolSection
	Resources []resourceDoc
}

type toolSection struct {
	Title string
	Tools []toolDoc
}

type toolDoc struct {
	Name        string
	Description string
	Args        []argDoc
}

type argDoc struct {
	Name        string
	Required    bool
	Description string
}

type resourceDoc struct {
	URI         string
	Description string
}

// toolCategories maps a tool name prefix to its section, in output order.
var toolCategories = []struct{ prefix, title string }{
	{"availability_", "Availability Tools"},
	{"google_", "Google OAuth Tools"},
}

func getCategoryFromToolName(name string) string {
	for _, c := range toolCategories {
		if strings.HasPrefix(name, c.prefix) {
			return c.title
		}
	}
	return "Other"
}

func buildToolsDoc(tools []mcp.Tool) toolsDoc {
	byTitle := map[string][]toolDoc{}
	for _, tool := range tools {
		title := getCategoryFromToolName(tool.Name)
		byTitle[title] = append(byTitle[title], newToolDoc(tool))
	}

	var doc toolsDoc
	for _, c := range toolCategories {
		if docs := byTitle[c.title]; len(docs) > 0 {
			doc.Sections = append(doc.Sections, toolSection{Title: c.title, Tools: docs})
		}
	}
	if other := byTitle["Other"]; len(other) > 0 {
		doc.Sections = append(doc.Sections, toolSection{Title: "Other", Tools: other})
	}

	doc.Resources = []resourceDoc{
		{URI: resources.MembersURI, Description: "Member names from the sheet header, as a JSON array."},
		{URI: resources.ScheduleURI, Description: "The schedule view, as a JSON array of rows."},
	}
	return doc
}

func newToolDoc(tool mcp.Tool) toolDoc {
	doc := toolDoc{Name: tool.Name, Description: tool.Description}

	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		prop, ok := tool.InputSchema.Properties[name].(map[string]interface{})
		if !ok {
			continue
		}
		desc, _ := prop["description"].(string)
		if desc == "" {
			typ, _ := prop["type"].(string)
			if typ == "" {
				typ = "any"
			}
			desc = typ + " parameter"
		}
		doc.Args = append(doc.Args, argDoc{
			Name:        name,
			Required:    slices.Contains(tool.InputSchema.Required, name),
			Description: desc,
		})
	}
	return doc
}

var toolsDocTemplate = template.Must(template.New("tools").Funcs(template.FuncMap{
	"anchor": func(title string) string { return strings.ToLower(strings.ReplaceAll(title, " ", "-")) },
}).Parse(`# MCP Tools Reference

Tools and resources served by ` + "`bandavail mcp`" + `. Generated by ` + "`bandavail generate-docs`" + `.

## Table of Contents

{{range .Sections}}- [{{.Title}}](#{{anchor .Title}})
{{end}}- [Resources](#resources)

## Authentication

Tools read the Google token written by ` + "`bandavail login`" + `. Without one, call ` + "`google_get_auth_url`" + `,
open the URL, and pass the resulting code or redirect URL to ` + "`google_save_auth_code`" + `.

` + "`availability_update`" + ` is not registered with ` + "`--read-only`" + ` or when no OpenAI API key is configured.
{{range .Sections}}
## {{.Title}}
{{range .Tools}}
### {{.Name}}
{{with .Description}}
{{.}}
{{end}}{{with .Args}}
**Arguments:**
{{range .}}- ` + "`{{.Name}}`" + ` ({{if .Required}}required{{else}}optional{{end}}): {{.Description}}
{{end}}{{end}}{{end}}{{end}}
## Resources
{{range .Resources}}
- ` + "`{{.URI}}`" + `: {{.Description}}{{end}}
`))
