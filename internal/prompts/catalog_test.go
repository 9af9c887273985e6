// ABOUTME: Tests for the embedded prompt catalog
// ABOUTME: Covers loading, argument validation, and template rendering

package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load()
	require.NoError(t, err)
	return c
}

func TestLoadCatalog(t *testing.T) {
	c := loadCatalog(t)

	list := c.List()
	require.Len(t, list, 6)

	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name
		assert.NotEmpty(t, p.Description, "prompt %s needs a description", p.Name)
		assert.NotEmpty(t, p.Template, "prompt %s needs a template", p.Name)
	}
	assert.Equal(t, []string{
		"find-contact-by-phone",
		"matter-overview",
		"create-new-client",
		"daily-task-summary",
		"billing-report",
		"matter-search-analysis",
	}, names)
}

func TestRenderSubstitutesArguments(t *testing.T) {
	c := loadCatalog(t)

	text, err := c.Render("find-contact-by-phone", map[string]string{
		"phone_number": "555-0100",
	})
	require.NoError(t, err)

	assert.Contains(t, text, "phone number: 555-0100")
	assert.Contains(t, text, "phone: '555-0100'")
	assert.NotContains(t, text, "{{", "all placeholders must be resolved")
}

func TestRenderMissingRequiredArgument(t *testing.T) {
	c := loadCatalog(t)

	_, err := c.Render("matter-overview", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matter_id")
}

func TestRenderDropsUnsetOptionalLines(t *testing.T) {
	c := loadCatalog(t)

	text, err := c.Render("daily-task-summary", nil)
	require.NoError(t, err)
	assert.NotContains(t, text, "assigned_to", "user filter lines must be dropped without a user_id")
	assert.Contains(t, text, "daily task summary")

	text, err = c.Render("daily-task-summary", map[string]string{"user_id": "u-5"})
	require.NoError(t, err)
	assert.Contains(t, text, "assigned_to: 'u-5'")
}

func TestBillingReportRequiresScope(t *testing.T) {
	c := loadCatalog(t)

	_, err := c.Render("billing-report", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matter_id")

	text, err := c.Render("billing-report", map[string]string{"matter_id": "m-1"})
	require.NoError(t, err)
	assert.Contains(t, text, "matter m-1")
	assert.NotContains(t, text, "Scope: contact")
	assert.NotContains(t, text, "Date range", "date line drops without dates")
}

func TestCreateNewClientRendersAllFields(t *testing.T) {
	c := loadCatalog(t)

	text, err := c.Render("create-new-client", map[string]string{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
		"phone":      "555-0100",
	})
	require.NoError(t, err)

	for _, want := range []string{"Ada Lovelace", "ada@example.com", "555-0100", "contact_type: 'client'"} {
		assert.Contains(t, text, want)
	}
}

func TestRenderUnknownPrompt(t *testing.T) {
	c := loadCatalog(t)

	_, err := c.Render("nope", nil)
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	c := loadCatalog(t)

	p, ok := c.Get("billing-report")
	require.True(t, ok)
	assert.Equal(t, []string{"matter_id", "contact_id"}, p.RequiresAny)

	var required []string
	for _, a := range p.Arguments {
		if a.Required {
			required = append(required, a.Name)
		}
	}
	assert.Empty(t, required, "billing-report arguments are individually optional")

	lines := strings.Split(p.Template, "\n")
	assert.Greater(t, len(lines), 5)
}
