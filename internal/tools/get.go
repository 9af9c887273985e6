// ABOUTME: Get-by-ID tools for Lawmatics resources plus user listing.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lexops/lawmatics-mcp/internal/lawmatics"
)

// idSchema builds the one-required-ID input schema shared by the get tools.
func idSchema(field, description string) json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			field: map[string]any{"type": "string", "description": description},
		},
		"required": []string{field},
	}
	data, _ := json.Marshal(schema)
	return data
}

// requireID extracts a single required string argument.
func requireID(args json.RawMessage, field string) (string, error) {
	var in map[string]string
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	id := in[field]
	if id == "" {
		return "", fmt.Errorf("invalid arguments: %s is required", field)
	}
	return id, nil
}

func (r *Registry) registerGetTools(client *lawmatics.Client) {
	type fetcher func(ctx context.Context, id string) (json.RawMessage, error)

	byID := []struct {
		name        string
		idField     string
		description string
		fetch       fetcher
	}{
		{
			name:    "get_contact",
			idField: "contact_id",
			description: "Get a contact by ID from Lawmatics. Retrieves complete information " +
				"including all fields, custom fields, associated matters, notes, and activity history.",
			fetch: client.GetContact,
		},
		{
			name:    "get_matter",
			idField: "matter_id",
			description: "Get a matter by ID from Lawmatics. Retrieves complete information " +
				"including all fields, custom fields, associated contacts, tasks, documents, and case history.",
			fetch: client.GetMatter,
		},
		{
			name:        "get_task",
			idField:     "task_id",
			description: "Get a task by ID from Lawmatics, including status, due date, assignee, and associations.",
			fetch:       client.GetTask,
		},
		{
			name:    "get_company",
			idField: "company_id",
			description: "Get a company by ID from Lawmatics, including all fields, contact " +
				"information, associated contacts, and custom fields.",
			fetch: client.GetCompany,
		},
		{
			name:        "get_time_entry",
			idField:     "time_entry_id",
			description: "Get a time entry by ID from Lawmatics, including duration, date, billable flag, and matter.",
			fetch:       client.GetTimeEntry,
		},
		{
			name:        "get_expense",
			idField:     "expense_id",
			description: "Get an expense by ID from Lawmatics, including amount, date, category, and matter.",
			fetch:       client.GetExpense,
		},
		{
			name:        "get_user",
			idField:     "user_id",
			description: "Get a user/team member by ID from Lawmatics.",
			fetch:       client.GetUser,
		},
	}

	for _, g := range byID {
		g := g
		r.register(Definition{
			Name:        g.name,
			Description: g.description,
			InputSchema: idSchema(g.idField, "The unique "+g.idField),
		}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			id, err := requireID(args, g.idField)
			if err != nil {
				return nil, err
			}
			return g.fetch(ctx, id)
		})
	}

	r.register(Definition{
		Name: "list_users",
		Description: "List all users/team members in the Lawmatics account. " +
			"Useful for getting user IDs for filtering tasks, time entries, etc.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return client.ListUsers(ctx)
	})
}
