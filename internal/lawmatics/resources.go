// ABOUTME: Typed operations for Lawmatics resources: contacts, matters, tasks,
// ABOUTME: companies, time entries, expenses, and users.

package lawmatics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// ContactSearch filters a contact search. Empty fields are omitted.
type ContactSearch struct {
	Name      string
	Email     string
	Phone     string
	MatterID  string
	CompanyID string
	Limit     int
}

// MatterSearch filters a matter search.
type MatterSearch struct {
	Name         string
	ContactID    string
	Status       string
	PracticeArea string
	Limit        int
}

// TaskSearch filters a task search.
type TaskSearch struct {
	ContactID     string
	MatterID      string
	Status        string
	AssignedTo    string
	DueDateAfter  string
	DueDateBefore string
	Limit         int
}

// CompanySearch filters a company search.
type CompanySearch struct {
	Name  string
	Email string
	Phone string
	Limit int
}

// TimeEntrySearch filters a time entry search. Dates are YYYY-MM-DD.
type TimeEntrySearch struct {
	ContactID  string
	MatterID   string
	UserID     string
	DateAfter  string
	DateBefore string
	Limit      int
}

// ExpenseSearch filters an expense search. Dates are YYYY-MM-DD.
type ExpenseSearch struct {
	ContactID  string
	MatterID   string
	DateAfter  string
	DateBefore string
	Limit      int
}

// NewContact is the payload for creating a contact. FirstName and LastName
// are required; Type defaults to "lead" server-side when empty.
type NewContact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Type      string `json:"type,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
}

// ContactUpdate carries the fields to change on an existing contact.
type ContactUpdate struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Status    string `json:"status,omitempty"`
}

// NewTask is the payload for creating a task. Title is required.
type NewTask struct {
	Title       string `json:"title"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	ContactID   string `json:"contact_id,omitempty"`
	MatterID    string `json:"matter_id,omitempty"`
}

// TaskUpdate carries the fields to change on an existing task.
type TaskUpdate struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	Status      string `json:"status,omitempty"`
}

// NewTimeEntry is the payload for creating a time entry. Duration is hours.
type NewTimeEntry struct {
	MatterID    string  `json:"matter_id"`
	Duration    float64 `json:"duration"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Billable    bool    `json:"billable"`
	UserID      string  `json:"user_id,omitempty"`
}

// NewExpense is the payload for creating an expense.
type NewExpense struct {
	MatterID    string  `json:"matter_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Billable    bool    `json:"billable"`
	Category    string  `json:"category,omitempty"`
}

// SearchContacts searches contacts (leads, clients, referrers).
func (c *Client) SearchContacts(ctx context.Context, s ContactSearch) (json.RawMessage, error) {
	q := url.Values{}
	setIfPresent(q, "name", s.Name)
	setIfPresent(q, "email", s.Email)
	setIfPresent(q, "phone", s.Phone)
	setIfPresent(q, "matter_id", s.MatterID)
	setIfPresent(q, "company_id", s.CompanyID)
	setLimit(q, s.Limit)
	return c.get(ctx, "contacts", q)
}

// SearchMatters searches matters/cases.
func (c *Client) SearchMatters(ctx context.Context, s MatterSearch) (json.RawMessage, error) {
	q := url.Values{}
	setIfPresent(q, "name", s.Name)
	setIfPresent(q, "contact_id", s.ContactID)
	setIfPresent(q, "status", s.Status)
	setIfPresent(q, "practice_area", s.PracticeArea)
	setLimit(q, s.Limit)
	return c.get(ctx, "matters", q)
}

// SearchTasks searches tasks.
func (c *Client) SearchTasks(ctx context.Context, s TaskSearch) (json.RawMessage, error) {
	q := url.Values{}
	setIfPresent(q, "contact_id", s.ContactID)
	setIfPresent(q, "matter_id", s.MatterID)
	setIfPresent(q, "status", s.Status)
	setIfPresent(q, "assigned_to", s.AssignedTo)
	setIfPresent(q, "due_date_after", s.DueDateAfter)
	setIfPresent(q, "due_date_before", s.DueDateBefore)
	setLimit(q, s.Limit)
	return c.get(ctx, "tasks", q)
}

// SearchCompanies searches companies.
func (c *Client) SearchCompanies(ctx context.Context, s CompanySearch) (json.RawMessage, error) {
	q := url.Values{}
	setIfPresent(q, "name", s.Name)
	setIfPresent(q, "email", s.Email)
	setIfPresent(q, "phone", s.Phone)
	setLimit(q, s.Limit)
	return c.get(ctx, "companies", q)
}

// SearchTimeEntries searches time entries.
func (c *Client) SearchTimeEntries(ctx context.Context, s TimeEntrySearch) (json.RawMessage, error) {
	q := url.Values{}
	setIfPresent(q, "contact_id", s.ContactID)
	setIfPresent(q, "matter_id", s.MatterID)
	setIfPresent(q, "user_id", s.UserID)
	setIfPresent(q, "date_after", s.DateAfter)
	setIfPresent(q, "date_before", s.DateBefore)
	setLimit(q, s.Limit)
	return c.get(ctx, "time_entries", q)
}

// SearchExpenses searches expenses.
func (c *Client) SearchExpenses(ctx context.Context, s ExpenseSearch) (json.RawMessage, error) {
	q := url.Values{}
	setIfPresent(q, "contact_id", s.ContactID)
	setIfPresent(q, "matter_id", s.MatterID)
	setIfPresent(q, "date_after", s.DateAfter)
	setIfPresent(q, "date_before", s.DateBefore)
	setLimit(q, s.Limit)
	return c.get(ctx, "expenses", q)
}

// GetContact retrieves a contact by ID.
func (c *Client) GetContact(ctx context.Context, id string) (json.RawMessage, error) {
	return c.getByID(ctx, "contacts", id)
}

// GetMatter retrieves a matter by ID.
func (c *Client) GetMatter(ctx context.Context, id string) (json.RawMessage, error) {
	return c.getByID(ctx, "matters", id)
}

// GetTask retrieves a task by ID.
func (c *Client) GetTask(ctx context.Context, id string) (json.RawMessage, error) {
	return c.getByID(ctx, "tasks", id)
}

// GetCompany retrieves a company by ID.
func (c *Client) GetCompany(ctx context.Context, id string) (json.RawMessage, error) {
	return c.getByID(ctx, "companies", id)
}

// GetTimeEntry retrieves a time entry by ID.
func (c *Client) GetTimeEntry(ctx context.Context, id string) (json.RawMessage, error) {
	return c.getByID(ctx, "time_entries", id)
}

// GetExpense retrieves an expense by ID.
func (c *Client) GetExpense(ctx context.Context, id string) (json.RawMessage, error) {
	return c.getByID(ctx, "expenses", id)
}

// GetUser retrieves a user by ID.
func (c *Client) GetUser(ctx context.Context, id string) (json.RawMessage, error) {
	return c.getByID(ctx, "users", id)
}

// ListUsers lists all users in the account.
func (c *Client) ListUsers(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "users", nil)
}

// CreateContact creates a new contact.
func (c *Client) CreateContact(ctx context.Context, payload NewContact) (json.RawMessage, error) {
	if payload.FirstName == "" || payload.LastName == "" {
		return nil, fmt.Errorf("lawmatics: first_name and last_name are required")
	}
	return c.post(ctx, "contacts", payload)
}

// UpdateContact updates an existing contact.
func (c *Client) UpdateContact(ctx context.Context, id string, payload ContactUpdate) (json.RawMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("lawmatics: contact id is required")
	}
	return c.put(ctx, "contacts/"+url.PathEscape(id), payload)
}

// CreateTask creates a new task.
func (c *Client) CreateTask(ctx context.Context, payload NewTask) (json.RawMessage, error) {
	if payload.Title == "" {
		return nil, fmt.Errorf("lawmatics: task title is required")
	}
	return c.post(ctx, "tasks", payload)
}

// UpdateTask updates an existing task.
func (c *Client) UpdateTask(ctx context.Context, id string, payload TaskUpdate) (json.RawMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("lawmatics: task id is required")
	}
	return c.put(ctx, "tasks/"+url.PathEscape(id), payload)
}

// DeleteTask deletes a task by ID.
func (c *Client) DeleteTask(ctx context.Context, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("lawmatics: task id is required")
	}
	return c.delete(ctx, "tasks/"+url.PathEscape(id))
}

// CreateTimeEntry creates a new time entry.
func (c *Client) CreateTimeEntry(ctx context.Context, payload NewTimeEntry) (json.RawMessage, error) {
	if payload.MatterID == "" || payload.Description == "" || payload.Date == "" {
		return nil, fmt.Errorf("lawmatics: matter_id, description, and date are required")
	}
	if payload.Duration <= 0 {
		return nil, fmt.Errorf("lawmatics: duration must be positive")
	}
	return c.post(ctx, "time_entries", payload)
}

// CreateExpense creates a new expense.
func (c *Client) CreateExpense(ctx context.Context, payload NewExpense) (json.RawMessage, error) {
	if payload.MatterID == "" || payload.Description == "" || payload.Date == "" {
		return nil, fmt.Errorf("lawmatics: matter_id, description, and date are required")
	}
	if payload.Amount <= 0 {
		return nil, fmt.Errorf("lawmatics: amount must be positive")
	}
	return c.post(ctx, "expenses", payload)
}

func (c *Client) getByID(ctx context.Context, resource, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("lawmatics: %s id is required", resource)
	}
	return c.get(ctx, resource+"/"+url.PathEscape(id), nil)
}

func setLimit(q url.Values, limit int) {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
}
