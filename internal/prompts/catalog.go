// ABOUTME: Embedded prompt catalog for guided Lawmatics workflows
// ABOUTME: Loads prompt templates from TOML and renders them with arguments

package prompts

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed catalog.toml
var catalogTOML []byte

var placeholderRe = regexp.MustCompile(`\{\{([a-z_]+)\}\}`)

// Argument describes one prompt argument.
type Argument struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Required    bool   `toml:"required"`
}

// Prompt is one catalog entry.
type Prompt struct {
	Name        string     `toml:"name"`
	Description string     `toml:"description"`
	Template    string     `toml:"template"`
	Arguments   []Argument `toml:"arguments"`

	// RequiresAny lists argument names of which at least one must be set.
	RequiresAny []string `toml:"requires_any"`
}

// Catalog holds the loaded prompts in file order.
type Catalog struct {
	prompts []Prompt
	byName  map[string]*Prompt
}

type catalogFile struct {
	Prompts []Prompt `toml:"prompts"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	var file catalogFile
	if err := toml.Unmarshal(catalogTOML, &file); err != nil {
		return nil, fmt.Errorf("parsing prompt catalog: %w", err)
	}
	if len(file.Prompts) == 0 {
		return nil, fmt.Errorf("prompt catalog is empty")
	}

	c := &Catalog{
		prompts: file.Prompts,
		byName:  make(map[string]*Prompt, len(file.Prompts)),
	}
	for i := range c.prompts {
		p := &c.prompts[i]
		if p.Name == "" {
			return nil, fmt.Errorf("prompt catalog entry %d has no name", i)
		}
		if _, dup := c.byName[p.Name]; dup {
			return nil, fmt.Errorf("duplicate prompt %q in catalog", p.Name)
		}
		c.byName[p.Name] = p
	}
	return c, nil
}

// List returns all prompts in catalog order.
func (c *Catalog) List() []Prompt {
	out := make([]Prompt, len(c.prompts))
	copy(out, c.prompts)
	return out
}

// Get returns a prompt by name.
func (c *Catalog) Get(name string) (*Prompt, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// Render substitutes arguments into the prompt template. Required arguments
// must be present and non-empty. Lines referencing an unset optional
// argument are dropped from the output.
func (c *Catalog) Render(name string, args map[string]string) (string, error) {
	p, ok := c.byName[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt: %s", name)
	}

	for _, arg := range p.Arguments {
		if arg.Required && args[arg.Name] == "" {
			return "", fmt.Errorf("prompt %s: missing required argument %q", name, arg.Name)
		}
	}

	if len(p.RequiresAny) > 0 {
		any := false
		for _, argName := range p.RequiresAny {
			if args[argName] != "" {
				any = true
				break
			}
		}
		if !any {
			return "", fmt.Errorf("prompt %s: one of %s is required",
				name, strings.Join(p.RequiresAny, ", "))
		}
	}

	lines := strings.Split(strings.TrimSpace(p.Template), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		keep := true
		rendered := placeholderRe.ReplaceAllStringFunc(line, func(match string) string {
			argName := placeholderRe.FindStringSubmatch(match)[1]
			value := args[argName]
			if value == "" {
				keep = false
			}
			return value
		})
		if keep {
			out = append(out, rendered)
		}
	}
	return strings.Join(out, "\n"), nil
}
