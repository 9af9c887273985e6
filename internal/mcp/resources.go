// ABOUTME: Resource templates exposing Lawmatics records under lawmatics:// URIs.
// ABOUTME: Dispatches resources/read to the API client by collection name.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lexops/lawmatics-mcp/internal/lawmatics"
)

// ErrUnknownResource is returned for URIs outside the lawmatics:// scheme or
// referencing an unknown collection.
var ErrUnknownResource = errors.New("unknown resource")

const resourceScheme = "lawmatics://"

// ResourceReader serves MCP resource templates and reads.
type ResourceReader interface {
	Templates() []MCPResourceTemplate
	Read(ctx context.Context, uri string) ([]MCPResourceContents, error)
}

// LawmaticsResources reads lawmatics:// resources through the API client.
type LawmaticsResources struct {
	client *lawmatics.Client
}

// NewLawmaticsResources creates a resource reader backed by the API client.
func NewLawmaticsResources(client *lawmatics.Client) *LawmaticsResources {
	return &LawmaticsResources{client: client}
}

// Templates lists the parameterized resources this server serves.
func (lr *LawmaticsResources) Templates() []MCPResourceTemplate {
	return []MCPResourceTemplate{
		{
			URITemplate: "lawmatics://contacts/{contact_id}",
			Name:        "Contact by ID",
			Description: "Get a specific contact by ID",
			MimeType:    "application/json",
		},
		{
			URITemplate: "lawmatics://matters/{matter_id}",
			Name:        "Matter by ID",
			Description: "Get a specific matter/case by ID",
			MimeType:    "application/json",
		},
		{
			URITemplate: "lawmatics://tasks/{task_id}",
			Name:        "Task by ID",
			Description: "Get a specific task by ID",
			MimeType:    "application/json",
		},
		{
			URITemplate: "lawmatics://companies/{company_id}",
			Name:        "Company by ID",
			Description: "Get a specific company by ID",
			MimeType:    "application/json",
		},
	}
}

// Read resolves a lawmatics://<collection>/<id> URI to a record.
func (lr *LawmaticsResources) Read(ctx context.Context, uri string) ([]MCPResourceContents, error) {
	rest, ok := strings.CutPrefix(uri, resourceScheme)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, uri)
	}

	collection, id, ok := strings.Cut(rest, "/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, uri)
	}

	var (
		data json.RawMessage
		err  error
	)
	switch collection {
	case "contacts":
		data, err = lr.client.GetContact(ctx, id)
	case "matters":
		data, err = lr.client.GetMatter(ctx, id)
	case "tasks":
		data, err = lr.client.GetTask(ctx, id)
	case "companies":
		data, err = lr.client.GetCompany(ctx, id)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, uri)
	}
	if err != nil {
		return nil, err
	}

	return []MCPResourceContents{
		{
			URI:      uri,
			MimeType: "application/json",
			Text:     string(data),
		},
	}, nil
}
