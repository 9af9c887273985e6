// ABOUTME: Search tools for contacts, matters, tasks, companies, time entries,
// ABOUTME: and expenses.

package tools

import (
	"context"
	"encoding/json"

	"github.com/lexops/lawmatics-mcp/internal/lawmatics"
)

func (r *Registry) registerSearchTools(client *lawmatics.Client) {
	r.register(Definition{
		Name: "search_contacts",
		Description: "Search for contacts (leads, clients, referrers) in Lawmatics. " +
			"Best for finding people by name, email, phone number, or associated matter/company. " +
			"Supports filtering by multiple criteria simultaneously.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string", "description": "Search for contacts by name (partial match supported)"},
				"email": {"type": "string", "description": "Search for contacts by email address"},
				"phone": {"type": "string", "description": "Search for contacts by phone number"},
				"matter_id": {"type": "string", "description": "Filter contacts by matter ID"},
				"company_id": {"type": "string", "description": "Filter contacts by company ID"},
				"limit": {"type": "integer", "description": "Maximum results to return (1-100)", "minimum": 1, "maximum": 100, "default": 20}
			}
		}`),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			Name      string `json:"name"`
			Email     string `json:"email"`
			Phone     string `json:"phone"`
			MatterID  string `json:"matter_id"`
			CompanyID string `json:"company_id"`
			Limit     int    `json:"limit"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return client.SearchContacts(ctx, lawmatics.ContactSearch{
			Name:      in.Name,
			Email:     in.Email,
			Phone:     in.Phone,
			MatterID:  in.MatterID,
			CompanyID: in.CompanyID,
			Limit:     clampLimit(in.Limit),
		})
	})

	r.register(Definition{
		Name: "search_matters",
		Description: "Search for matters/cases in Lawmatics. " +
			"Best for finding cases by name, client, status, or practice area.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string", "description": "Search matters by name"},
				"contact_id": {"type": "string", "description": "Filter matters by associated contact ID"},
				"status": {"type": "string", "description": "Filter by matter status (e.g. active, closed)"},
				"practice_area": {"type": "string", "description": "Filter by practice area"},
				"limit": {"type": "integer", "description": "Maximum results to return (1-100)", "minimum": 1, "maximum": 100, "default": 20}
			}
		}`),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			Name         string `json:"name"`
			ContactID    string `json:"contact_id"`
			Status       string `json:"status"`
			PracticeArea string `json:"practice_area"`
			Limit        int    `json:"limit"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return client.SearchMatters(ctx, lawmatics.MatterSearch{
			Name:         in.Name,
			ContactID:    in.ContactID,
			Status:       in.Status,
			PracticeArea: in.PracticeArea,
			Limit:        clampLimit(in.Limit),
		})
	})

	r.register(Definition{
		Name: "search_tasks",
		Description: "Search for tasks in Lawmatics. " +
			"Best for finding to-dos by assignee, status, due date range, or associated contact/matter.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"contact_id": {"type": "string", "description": "Filter tasks by associated contact ID"},
				"matter_id": {"type": "string", "description": "Filter tasks by associated matter ID"},
				"status": {"type": "string", "description": "Filter by task status (pending, completed)"},
				"assigned_to": {"type": "string", "description": "Filter by assigned user ID"},
				"due_date_after": {"type": "string", "description": "Tasks due after this date (YYYY-MM-DD)"},
				"due_date_before": {"type": "string", "description": "Tasks due before this date (YYYY-MM-DD)"},
				"limit": {"type": "integer", "description": "Maximum results to return (1-100)", "minimum": 1, "maximum": 100, "default": 20}
			}
		}`),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			ContactID     string `json:"contact_id"`
			MatterID      string `json:"matter_id"`
			Status        string `json:"status"`
			AssignedTo    string `json:"assigned_to"`
			DueDateAfter  string `json:"due_date_after"`
			DueDateBefore string `json:"due_date_before"`
			Limit         int    `json:"limit"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return client.SearchTasks(ctx, lawmatics.TaskSearch{
			ContactID:     in.ContactID,
			MatterID:      in.MatterID,
			Status:        in.Status,
			AssignedTo:    in.AssignedTo,
			DueDateAfter:  in.DueDateAfter,
			DueDateBefore: in.DueDateBefore,
			Limit:         clampLimit(in.Limit),
		})
	})

	r.register(Definition{
		Name: "search_companies",
		Description: "Search for companies in Lawmatics. " +
			"Best for finding organizations by name, email, or phone number.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string", "description": "Search companies by name"},
				"email": {"type": "string", "description": "Search companies by email address"},
				"phone": {"type": "string", "description": "Search companies by phone number"},
				"limit": {"type": "integer", "description": "Maximum results to return (1-100)", "minimum": 1, "maximum": 100, "default": 20}
			}
		}`),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Phone string `json:"phone"`
			Limit int    `json:"limit"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return client.SearchCompanies(ctx, lawmatics.CompanySearch{
			Name:  in.Name,
			Email: in.Email,
			Phone: in.Phone,
			Limit: clampLimit(in.Limit),
		})
	})

	r.register(Definition{
		Name: "search_time_entries",
		Description: "Search for time entries in Lawmatics. " +
			"Best for finding billable hours by contact, matter, user, or date range.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"contact_id": {"type": "string", "description": "Filter time entries by contact ID"},
				"matter_id": {"type": "string", "description": "Filter time entries by matter ID"},
				"user_id": {"type": "string", "description": "Filter by the user who logged the time"},
				"date_after": {"type": "string", "description": "Entries after this date (YYYY-MM-DD)"},
				"date_before": {"type": "string", "description": "Entries before this date (YYYY-MM-DD)"},
				"limit": {"type": "integer", "description": "Maximum results to return (1-100)", "minimum": 1, "maximum": 100, "default": 20}
			}
		}`),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			ContactID  string `json:"contact_id"`
			MatterID   string `json:"matter_id"`
			UserID     string `json:"user_id"`
			DateAfter  string `json:"date_after"`
			DateBefore string `json:"date_before"`
			Limit      int    `json:"limit"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return client.SearchTimeEntries(ctx, lawmatics.TimeEntrySearch{
			ContactID:  in.ContactID,
			MatterID:   in.MatterID,
			UserID:     in.UserID,
			DateAfter:  in.DateAfter,
			DateBefore: in.DateBefore,
			Limit:      clampLimit(in.Limit),
		})
	})

	r.register(Definition{
		Name: "search_expenses",
		Description: "Search for expenses in Lawmatics. " +
			"Best for finding case costs by contact, matter, or date range. Results include " +
			"amount, description, date, category, and matter associations.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"contact_id": {"type": "string", "description": "Filter expenses by contact ID"},
				"matter_id": {"type": "string", "description": "Filter expenses by matter ID"},
				"date_after": {"type": "string", "description": "Expenses after this date (YYYY-MM-DD)"},
				"date_before": {"type": "string", "description": "Expenses before this date (YYYY-MM-DD)"},
				"limit": {"type": "integer", "description": "Maximum results to return (1-100)", "minimum": 1, "maximum": 100, "default": 20}
			}
		}`),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			ContactID  string `json:"contact_id"`
			MatterID   string `json:"matter_id"`
			DateAfter  string `json:"date_after"`
			DateBefore string `json:"date_before"`
			Limit      int    `json:"limit"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return client.SearchExpenses(ctx, lawmatics.ExpenseSearch{
			ContactID:  in.ContactID,
			MatterID:   in.MatterID,
			DateAfter:  in.DateAfter,
			DateBefore: in.DateBefore,
			Limit:      clampLimit(in.Limit),
		})
	})
}
