package dataset

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/treebench/pkg/errors"
)

const missingToken = "?"

// parseARFF reads the dense ARFF subset used by the corpus: @relation,
// @attribute (numeric, real, integer, string, date, nominal) and @data.
func parseARFF(path string, r io.Reader) (string, []Column, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		relation string
		columns  []Column
		levelSet []map[string]bool
		inData   bool
		line     int
	)

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || text[0] == '%' {
			continue
		}

		if !inData {
			keyword, rest := splitKeyword(text)
			switch strings.ToLower(keyword) {
			case "@relation":
				name, _, err := nextToken(rest)
				if err != nil {
					return "", nil, errors.NewLoadError(path, line, "bad @relation", err)
				}
				relation = name
			case "@attribute":
				col, levels, err := parseAttribute(rest)
				if err != nil {
					return "", nil, errors.NewLoadError(path, line, "bad @attribute", err)
				}
				columns = append(columns, col)
				levelSet = append(levelSet, levels)
			case "@data":
				if len(columns) == 0 {
					return "", nil, errors.NewLoadError(path, line, "@data before any @attribute", nil)
				}
				inData = true
			default:
				return "", nil, errors.NewLoadError(path, line, "unexpected header line", nil)
			}
			continue
		}

		if text[0] == '{' {
			return "", nil, errors.NewLoadError(path, line, "sparse instances are not supported", nil)
		}
		fields, err := splitRow(text)
		if err != nil {
			return "", nil, errors.NewLoadError(path, line, "bad data row", err)
		}
		if len(fields) != len(columns) {
			return "", nil, errors.NewLoadError(path, line,
				"expected "+strconv.Itoa(len(columns))+" values, got "+strconv.Itoa(len(fields)), nil)
		}
		for j, field := range fields {
			if err := appendCell(&columns[j], levelSet[j], field); err != nil {
				return "", nil, errors.NewLoadError(path, line, "column '"+columns[j].Name+"'", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", nil, errors.NewLoadError(path, line, "read", err)
	}
	if !inData {
		return "", nil, errors.NewLoadError(path, 0, "no @data section", nil)
	}
	return relation, columns, nil
}

func splitKeyword(text string) (string, string) {
	i := strings.IndexAny(text, " \t")
	if i < 0 {
		return text, ""
	}
	return text[:i], strings.TrimSpace(text[i+1:])
}

func parseAttribute(rest string) (Column, map[string]bool, error) {
	name, tail, err := nextToken(rest)
	if err != nil {
		return Column{}, nil, err
	}
	tail = strings.TrimSpace(tail)
	if tail == "" {
		return Column{}, nil, errors.Newf("attribute '%s' has no type", name)
	}

	if tail[0] == '{' {
		end := strings.LastIndexByte(tail, '}')
		if end < 0 {
			return Column{}, nil, errors.Newf("attribute '%s': unterminated nominal list", name)
		}
		levels, err := splitRow(tail[1:end])
		if err != nil {
			return Column{}, nil, err
		}
		set := make(map[string]bool, len(levels))
		for _, l := range levels {
			set[l] = true
		}
		return NewColumn(name, Nominal, levels, 0), set, nil
	}

	typ, _ := splitKeyword(tail)
	switch strings.ToLower(typ) {
	case "numeric", "real":
		return NewColumn(name, Numeric, nil, 0), nil, nil
	case "integer":
		return NewColumn(name, Integer, nil, 0), nil, nil
	case "string":
		return NewColumn(name, String, nil, 0), nil, nil
	case "date":
		return NewColumn(name, Date, nil, 0), nil, nil
	default:
		return Column{}, nil, errors.Newf("attribute '%s': unsupported type %q", name, typ)
	}
}

func appendCell(c *Column, levels map[string]bool, field string) error {
	if field == missingToken {
		if c.Kind.IsNumeric() {
			c.AppendNum(0, true)
		} else {
			c.AppendStr("", true)
		}
		return nil
	}
	switch c.Kind {
	case Numeric, Integer:
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return errors.Newf("not a number: %q", field)
		}
		c.AppendNum(v, math.IsNaN(v))
	case Nominal:
		if !levels[field] {
			return errors.Newf("undeclared nominal value %q", field)
		}
		c.AppendStr(field, false)
	default:
		c.AppendStr(field, false)
	}
	return nil
}

// splitRow splits a comma-separated ARFF value list, honouring single and
// double quotes and backslash escapes inside quotes.
func splitRow(text string) ([]string, error) {
	var fields []string
	rest := text
	for {
		tok, tail, err := nextValue(rest)
		if err != nil {
			return nil, err
		}
		fields = append(fields, tok)
		tail = strings.TrimLeft(tail, " \t")
		if tail == "" {
			return fields, nil
		}
		if tail[0] != ',' {
			return nil, errors.Newf("expected ',' near %q", tail)
		}
		rest = tail[1:]
	}
}

// nextToken reads one whitespace-delimited or quoted token.
func nextToken(text string) (string, string, error) {
	text = strings.TrimLeft(text, " \t")
	if text == "" {
		return "", "", errors.New("missing token")
	}
	if text[0] == '\'' || text[0] == '"' {
		return readQuoted(text)
	}
	i := strings.IndexAny(text, " \t")
	if i < 0 {
		return text, "", nil
	}
	return text[:i], text[i:], nil
}

// nextValue reads one value of a comma-separated list.
func nextValue(text string) (string, string, error) {
	text = strings.TrimLeft(text, " \t")
	if text != "" && (text[0] == '\'' || text[0] == '"') {
		return readQuoted(text)
	}
	i := strings.IndexByte(text, ',')
	if i < 0 {
		return strings.TrimSpace(text), "", nil
	}
	return strings.TrimSpace(text[:i]), text[i:], nil
}

func readQuoted(text string) (string, string, error) {
	quote := text[0]
	var b strings.Builder
	for i := 1; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch == '\\' && i+1 < len(text):
			i++
			b.WriteByte(text[i])
		case ch == quote:
			return b.String(), text[i+1:], nil
		default:
			b.WriteByte(ch)
		}
	}
	return "", "", errors.Newf("unterminated quote in %q", text)
}
