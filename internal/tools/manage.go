// ABOUTME: Create, update, and delete tools for contacts, tasks, time entries,
// ABOUTME: and expenses.

package tools

import (
	"context"
	"encoding/json"

	"github.com/lexops/lawmatics-mcp/internal/lawmatics"
)

func (r *Registry) registerManageTools(client *lawmatics.Client) {
	r.register(Definition{
		Name: "create_contact",
		Description: "Create a new contact (lead, client, or referrer) in Lawmatics. " +
			"At minimum requires first and last name. Can include email, phone, and company.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"first_name": {"type": "string", "description": "Contact's first name"},
				"last_name": {"type": "string", "description": "Contact's last name"},
				"email": {"type": "string", "description": "Contact's email address"},
				"phone": {"type": "string", "description": "Contact's phone number"},
				"company_id": {"type": "string", "description": "Associated company ID"},
				"contact_type": {"type": "string", "description": "Type of contact (lead, client, referrer)", "default": "lead"}
			},
			"required": ["first_name", "last_name"]
		}`),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			FirstName   string `json:"first_name"`
			LastName    string `json:"last_name"`
			Email       string `json:"email"`
			Phone       string `json:"phone"`
			CompanyID   string `json:"company_id"`
			ContactType string `json:"contact_type"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if in.ContactType == "" {
			in.ContactType = "lead"
		}
		return client.CreateContact(ctx, lawmatics.NewContact{
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Type:      in.ContactType,
			Email:     in.Email,
			Phone:     in.Phone,
			CompanyID: in.CompanyID,
		})
	})

	r.register(Definition{
		Name: "update_contact",
		Description: "Update an existing contact in Lawmatics. " +
			"Only the provided fields are changed; omitted fields keep their current values.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"contact_id": {"type": "string", "description": "ID of the contact to update"},
				"first_name": {"type": "string", "description": "New first name"},
				"last_name": {"type": "string", "description": "New last name"},
				"email": {"type": "string", "description": "New email address"},
				"phone": {"type": "string", "description": "New phone number"},
				"status": {"type": "string", "description": "New contact status"}
			},
			"required": ["contact_id"]
		}`),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			ContactID string `json:"contact_id"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Email     string `json:"email"`
			Phone     string `json:"phone"`
			Status    string `json:"status"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return client.UpdateContact(ctx, in.ContactID, lawmatics.ContactUpdate{
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Email:     in.Email,
			Phone:     in.Phone,
			Status:    in.Status,
		})
	})

	r.register(Definition{
		Name: "create_task",
		Description: "Create a new task/to-do item in Lawmatics. Tasks can be " +
			"associated with contacts, matters, and assigned to team members.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {"type": "string", "description": "Task title"},
				"description": {"type": "string", "description": "Task description"},
				"due_date": {"type": "string", "description": "Due date (YYYY-MM-DD)"},
				"assigned_to": {"type": "string", "description": "User ID to assign task to"},
				"contact_id": {"type": "string", "description": "Associated contact ID"},
				"matter_id": {"type": "string", "description": "Associated matter ID"},
				"status": {"type": "string", "description": "Task status (pending, completed)", "default": "pending"}
			},
			"required": ["title"]
		}`),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			DueDate     string `json:"due_date"`
			AssignedTo  string `json:"assigned_to"`
			ContactID   string `json:"contact_id"`
			MatterID    string `json:"matter_id"`
			Status      string `json:"status"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if in.Status == "" {
			in.Status = "pending"
		}
		return client.CreateTask(ctx, lawmatics.NewTask{
			Title:       in.Title,
			Status:      in.Status,
			Description: in.Description,
			DueDate:     in.DueDate,
			AssignedTo:  in.AssignedTo,
			ContactID:   in.ContactID,
			MatterID:    in.MatterID,
		})
	})

	r.register(Definition{
		Name: "update_task",
		Description: "Update an existing task in Lawmatics. " +
			"Only the provided fields are changed; omitted fields keep their current values.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"task_id": {"type": "string", "description": "ID of the task to update"},
				"title": {"type": "string", "description": "New task title"},
				"description": {"type": "string", "description": "New task description"},
				"due_date": {"type": "string", "description": "New due date (YYYY-MM-DD)"},
				"assigned_to": {"type": "string", "description": "New assigned user ID"},
				"status": {"type": "string", "description": "New task status (pending, completed)"}
			},
			"required": ["task_id"]
		}`),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			TaskID      string `json:"task_id"`
			Title       string `json:"title"`
			Description string `json:"description"`
			DueDate     string `json:"due_date"`
			AssignedTo  string `json:"assigned_to"`
			Status      string `json:"status"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return client.UpdateTask(ctx, in.TaskID, lawmatics.TaskUpdate{
			Title:       in.Title,
			Description: in.Description,
			DueDate:     in.DueDate,
			AssignedTo:  in.AssignedTo,
			Status:      in.Status,
		})
	})

	r.register(Definition{
		Name: "delete_task",
		Description: "Delete a task from Lawmatics by ID. This cannot be undone.",
		InputSchema: idSchema("task_id", "ID of the task to delete"),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		id, err := requireID(args, "task_id")
		if err != nil {
			return nil, err
		}
		return client.DeleteTask(ctx, id)
	})

	r.register(Definition{
		Name: "create_time_entry",
		Description: "Create a new time entry for tracking billable hours on a matter. " +
			"Time entries are used for billing and reporting.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"matter_id": {"type": "string", "description": "Matter ID the time is associated with"},
				"duration": {"type": "number", "description": "Duration in hours", "exclusiveMinimum": 0},
				"description": {"type": "string", "description": "Description of work performed"},
				"date": {"type": "string", "description": "Date of work (YYYY-MM-DD)"},
				"user_id": {"type": "string", "description": "User ID who performed the work"},
				"billable": {"type": "boolean", "description": "Whether time is billable", "default": true}
			},
			"required": ["matter_id", "duration", "description", "date"]
		}`),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		in := struct {
			MatterID    string  `json:"matter_id"`
			Duration    float64 `json:"duration"`
			Description string  `json:"description"`
			Date        string  `json:"date"`
			UserID      string  `json:"user_id"`
			Billable    *bool   `json:"billable"`
		}{}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		billable := true
		if in.Billable != nil {
			billable = *in.Billable
		}
		return client.CreateTimeEntry(ctx, lawmatics.NewTimeEntry{
			MatterID:    in.MatterID,
			Duration:    in.Duration,
			Description: in.Description,
			Date:        in.Date,
			Billable:    billable,
			UserID:      in.UserID,
		})
	})

	r.register(Definition{
		Name: "create_expense",
		Description: "Create a new expense entry for tracking case-related costs. " +
			"Expenses can be billable or non-billable and are used for reimbursement tracking.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"matter_id": {"type": "string", "description": "Matter ID the expense is associated with"},
				"amount": {"type": "number", "description": "Expense amount", "exclusiveMinimum": 0},
				"description": {"type": "string", "description": "Description of expense"},
				"date": {"type": "string", "description": "Date of expense (YYYY-MM-DD)"},
				"category": {"type": "string", "description": "Expense category (e.g. 'filing fees', 'travel')"},
				"billable": {"type": "boolean", "description": "Whether expense is billable", "default": true}
			},
			"required": ["matter_id", "amount", "description", "date"]
		}`),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		in := struct {
			MatterID    string  `json:"matter_id"`
			Amount      float64 `json:"amount"`
			Description string  `json:"description"`
			Date        string  `json:"date"`
			Category    string  `json:"category"`
			Billable    *bool   `json:"billable"`
		}{}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		billable := true
		if in.Billable != nil {
			billable = *in.Billable
		}
		return client.CreateExpense(ctx, lawmatics.NewExpense{
			MatterID:    in.MatterID,
			Amount:      in.Amount,
			Description: in.Description,
			Date:        in.Date,
			Billable:    billable,
			Category:    in.Category,
		})
	})
}
