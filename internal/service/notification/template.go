package notification

import (
	"fmt"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/airmeet-sync/internal/model"
)

// ErrTemplateNotFound is returned when a notification references a template
// id missing from configuration.
var ErrTemplateNotFound = fmt.Errorf("template not found")

const (
	openDelim  = "{{"
	closeDelim = "}}"
	ifPrefix   = "#if"
	endIfTag   = "{{/if}}"
)

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenVariable
	tokenConditional
)

type token struct {
	kind tokenKind
	text string // literal content
	name string // variable name for variable and conditional tokens
	// inner tokens of a conditional block; conditionals do not nest
	inner []token
}

// Renderer renders notification templates. Template bodies are tokenized
// once and cached; NotificationConfig is immutable after startup so the
// cache never needs invalidation.
type Renderer struct {
	templates map[string]model.NotificationTemplate
	parsed    *gocache.Cache
}

func NewRenderer(templates map[string]model.NotificationTemplate) *Renderer {
	return &Renderer{
		templates: templates,
		parsed:    gocache.New(gocache.NoExpiration, 0),
	}
}

// Template returns the configured template for id.
func (r *Renderer) Template(id string) (model.NotificationTemplate, error) {
	tmpl, ok := r.templates[id]
	if !ok {
		return model.NotificationTemplate{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return tmpl, nil
}

// Render substitutes variables into the template body. Conditional blocks
// are kept iff their variable is present and non-empty; every other
// placeholder resolves to the mapped value or the empty string. Rendering
// never fails for missing variables, only for a missing template or a
// malformed body.
func (r *Renderer) Render(templateID string, variables map[string]string) (string, error) {
	tmpl, err := r.Template(templateID)
	if err != nil {
		return "", err
	}

	tokens, err := r.tokens(templateID, tmpl.Body)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, t := range tokens {
		switch t.kind {
		case tokenLiteral:
			sb.WriteString(t.text)
		case tokenVariable:
			sb.WriteString(variables[t.name])
		case tokenConditional:
			if variables[t.name] == "" {
				continue
			}
			for _, it := range t.inner {
				if it.kind == tokenVariable {
					sb.WriteString(variables[it.name])
				} else {
					sb.WriteString(it.text)
				}
			}
		}
	}
	return sb.String(), nil
}

func (r *Renderer) tokens(templateID, body string) ([]token, error) {
	if cached, ok := r.parsed.Get(templateID); ok {
		return cached.([]token), nil
	}

	tokens, err := parseTemplate(body)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", templateID, err)
	}
	r.parsed.SetDefault(templateID, tokens)
	return tokens, nil
}

// parseTemplate tokenizes a template body into literal, variable and
// conditional spans. Nested {{#if}} blocks are unsupported and rejected at
// parse time rather than silently mishandled.
func parseTemplate(body string) ([]token, error) {
	var tokens []token
	rest := body

	for rest != "" {
		open := strings.Index(rest, openDelim)
		if open < 0 {
			tokens = append(tokens, token{kind: tokenLiteral, text: rest})
			break
		}
		if open > 0 {
			tokens = append(tokens, token{kind: tokenLiteral, text: rest[:open]})
			rest = rest[open:]
		}

		if strings.HasPrefix(rest, endIfTag) {
			return nil, fmt.Errorf("unmatched %s", endIfTag)
		}

		closeIdx := strings.Index(rest, closeDelim)
		if closeIdx < 0 {
			// Unterminated delimiter, keep as literal text.
			tokens = append(tokens, token{kind: tokenLiteral, text: rest})
			break
		}

		tag := strings.TrimSpace(rest[len(openDelim):closeIdx])
		rest = rest[closeIdx+len(closeDelim):]

		if name, ok := strings.CutPrefix(tag, ifPrefix); ok {
			name = strings.TrimSpace(name)
			if name == "" {
				return nil, fmt.Errorf("conditional block without a variable name")
			}

			end := strings.Index(rest, endIfTag)
			if end < 0 {
				return nil, fmt.Errorf("conditional block for %q is not closed", name)
			}
			innerBody := rest[:end]
			if strings.Contains(innerBody, openDelim+ifPrefix) {
				return nil, fmt.Errorf("nested conditional blocks are not supported")
			}
			rest = rest[end+len(endIfTag):]

			inner, err := parseInner(innerBody)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenConditional, name: name, inner: inner})
			continue
		}

		tokens = append(tokens, token{kind: tokenVariable, name: tag})
	}

	return tokens, nil
}

// parseInner tokenizes conditional block content, which may contain only
// literals and variables.
func parseInner(body string) ([]token, error) {
	var tokens []token
	rest := body

	for rest != "" {
		open := strings.Index(rest, openDelim)
		if open < 0 {
			tokens = append(tokens, token{kind: tokenLiteral, text: rest})
			break
		}
		if open > 0 {
			tokens = append(tokens, token{kind: tokenLiteral, text: rest[:open]})
			rest = rest[open:]
		}

		closeIdx := strings.Index(rest, closeDelim)
		if closeIdx < 0 {
			tokens = append(tokens, token{kind: tokenLiteral, text: rest})
			break
		}

		name := strings.TrimSpace(rest[len(openDelim):closeIdx])
		rest = rest[closeIdx+len(closeDelim):]
		tokens = append(tokens, token{kind: tokenVariable, name: name})
	}

	return tokens, nil
}
