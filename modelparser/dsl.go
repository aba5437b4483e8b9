package modelparser

import (
	"fmt"
	"strings"
)

// ParseDSLDocument parses the compact text declarative model format
// (`model Blog { id Int @id }`, `enum Role { ADMIN MEMBER }`). No
// parser library in the corpus targets this grammar — pg_query_go
// only understands SQL — so this is a small hand-written scanner
// rather than a borrowed dependency; see DESIGN.md.
func ParseDSLDocument(src string) (*Document, error) {
	p := &dslParser{lines: splitStatements(src)}
	return p.parse()
}

type dslParser struct {
	lines []string
}

// splitStatements breaks the source into `model X { ... }` / `enum X
// { ... }` blocks by brace nesting, ignoring blank lines and `//`
// line comments.
func splitStatements(src string) []string {
	var cleaned strings.Builder
	for _, line := range strings.Split(src, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		cleaned.WriteString(line)
		cleaned.WriteByte('\n')
	}

	var blocks []string
	var depth int
	var cur strings.Builder
	for _, r := range cleaned.String() {
		cur.WriteRune(r)
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				blocks = append(blocks, cur.String())
				cur.Reset()
			}
		}
	}
	return blocks
}

func (p *dslParser) parse() (*Document, error) {
	doc := &Document{}
	for _, block := range p.lines {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		switch {
		case strings.HasPrefix(block, "model "):
			model, err := parseModelBlock(block)
			if err != nil {
				return nil, err
			}
			doc.Models = append(doc.Models, *model)
		case strings.HasPrefix(block, "enum "):
			enum, err := parseEnumBlock(block)
			if err != nil {
				return nil, err
			}
			doc.Enums = append(doc.Enums, *enum)
		default:
			return nil, fmt.Errorf("unrecognized declaration: %q", firstLine(block))
		}
	}
	return doc, nil
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}

func parseModelBlock(block string) (*Model, error) {
	header, body, err := splitHeaderBody(block, "model")
	if err != nil {
		return nil, err
	}
	model := &Model{Name: header}

	for _, line := range splitFieldLines(body) {
		field, err := parseFieldLine(line)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", model.Name, err)
		}
		model.Fields = append(model.Fields, *field)
	}
	return model, nil
}

func parseEnumBlock(block string) (*Enum, error) {
	header, body, err := splitHeaderBody(block, "enum")
	if err != nil {
		return nil, err
	}
	enum := &Enum{Name: header}
	for _, line := range splitFieldLines(body) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		enum.Values = append(enum.Values, line)
	}
	return enum, nil
}

func splitHeaderBody(block, keyword string) (name string, body string, err error) {
	open := strings.Index(block, "{")
	close := strings.LastIndex(block, "}")
	if open < 0 || close < 0 || close < open {
		return "", "", fmt.Errorf("malformed %s block", keyword)
	}
	header := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(block[:open]), keyword))
	if header == "" {
		return "", "", fmt.Errorf("%s block missing a name", keyword)
	}
	return header, block[open+1 : close], nil
}

func splitFieldLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseFieldLine parses `name Type[?][[]] @attr(...) @attr2` into a Field.
func parseFieldLine(line string) (*Field, error) {
	tokens := tokenizeFieldLine(line)
	if len(tokens) < 2 {
		return nil, fmt.Errorf("malformed field declaration: %q", line)
	}

	field := &Field{Name: tokens[0], Arity: ArityRequired}
	typeToken := tokens[1]

	if strings.HasSuffix(typeToken, "[]") {
		field.Arity = ArityList
		typeToken = strings.TrimSuffix(typeToken, "[]")
	} else if strings.HasSuffix(typeToken, "?") {
		field.Arity = ArityNullable
		typeToken = strings.TrimSuffix(typeToken, "?")
	}
	field.Type = typeToken

	for _, attr := range tokens[2:] {
		if err := applyAttribute(field, attr); err != nil {
			return nil, err
		}
	}
	return field, nil
}

// tokenizeFieldLine splits on whitespace but keeps a parenthesized
// `@attr(...)` group as one token.
func tokenizeFieldLine(line string) []string {
	var tokens []string
	var cur strings.Builder
	depth := 0
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range line {
		switch {
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			depth--
			cur.WriteRune(r)
		case r == ' ' && depth == 0:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func applyAttribute(field *Field, attr string) error {
	if !strings.HasPrefix(attr, "@") {
		return fmt.Errorf("expected attribute starting with @, got %q", attr)
	}
	attr = strings.TrimPrefix(attr, "@")

	name := attr
	var args string
	if idx := strings.Index(attr, "("); idx >= 0 && strings.HasSuffix(attr, ")") {
		name = attr[:idx]
		args = attr[idx+1 : len(attr)-1]
	}

	switch name {
	case "id":
		field.Id = true
	case "unique":
		field.Unique = true
	case "map":
		value, err := extractArg(args, "name")
		if err != nil {
			return err
		}
		field.Map = value
	case "default":
		value := strings.Trim(args, `"`)
		field.Default = &value
	case "relation":
		rel, err := parseRelationArgs(args)
		if err != nil {
			return err
		}
		field.Relation = rel
	default:
		return fmt.Errorf("unrecognized attribute @%s", name)
	}
	return nil
}

// extractArg pulls `key: "value"` out of an attribute's argument list.
func extractArg(args, key string) (string, error) {
	for _, part := range strings.Split(args, ",") {
		part = strings.TrimSpace(part)
		if rest, ok := strings.CutPrefix(part, key+":"); ok {
			return strings.Trim(strings.TrimSpace(rest), `"`), nil
		}
	}
	return "", fmt.Errorf("attribute missing %q argument", key)
}

// parseRelationArgs parses `references: [id]` or `"Name", references: [id]`.
func parseRelationArgs(args string) (*Relation, error) {
	rel := &Relation{Kind: RelationInline}
	parts := splitTopLevelCommas(args)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, `"`) {
			rel.Name = strings.Trim(part, `"`)
			continue
		}
		if rest, ok := strings.CutPrefix(part, "references:"); ok {
			rest = strings.TrimSpace(rest)
			rest = strings.TrimPrefix(rest, "[")
			rest = strings.TrimSuffix(rest, "]")
			for _, col := range strings.Split(rest, ",") {
				col = strings.TrimSpace(col)
				if col != "" {
					rel.References = append(rel.References, col)
				}
			}
		}
	}
	if len(rel.References) == 0 {
		return nil, fmt.Errorf("@relation missing references list")
	}
	return rel, nil
}

func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	var cur strings.Builder
	for _, r := range s {
		switch r {
		case '[':
			depth++
			cur.WriteRune(r)
		case ']':
			depth--
			cur.WriteRune(r)
		case ',':
			if depth == 0 {
				parts = append(parts, cur.String())
				cur.Reset()
				continue
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
