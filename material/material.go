// Package material holds per physical group material properties and reads
// conductivity tables.
package material

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Conductivity is the property key consumed by the stiffness calculation.
const Conductivity = "conductivity"

var (
	// ErrMissing is returned when a required property is not set.
	ErrMissing = errors.New("material: missing property")
	// ErrFormat marks malformed material table input.
	ErrFormat = errors.New("material: malformed input")
	// ErrValue is returned for a property value outside its valid range.
	ErrValue = errors.New("material: invalid property value")
)

// Properties maps property names to scalar values.
type Properties map[string]float64

// WithConductivity returns properties holding only the given conductivity.
func WithConductivity(sigma float64) Properties {
	return Properties{Conductivity: sigma}
}

// Get returns the named property or an error wrapping ErrMissing.
func (p Properties) Get(name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrMissing, name)
	}
	return v, nil
}

// Conductivity returns the electrical conductivity.  It must be positive and
// finite.
func (p Properties) Conductivity() (float64, error) {
	v, err := p.Get(Conductivity)
	if err != nil {
		return 0, err
	}
	if !(v > 0) || math.IsInf(v, 1) {
		return 0, fmt.Errorf("%w: conductivity %v", ErrValue, v)
	}
	return v, nil
}

// Names returns the property names in sorted order.
func (p Properties) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatError reports a malformed line of a material table.
type FormatError struct {
	// Line is the 1-based line number.
	Line int
	Text string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("material: line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *FormatError) Unwrap() []error { return []error{ErrFormat, e.Err} }

// ReadTable reads a table of "name value" or "name=value" lines mapping
// physical group names to conductivities.  Blank lines and lines starting
// with '#' are ignored, as is anything after a '#'.
func ReadTable(r io.Reader) (map[string]float64, error) {
	table := map[string]float64{}
	scanner := bufio.NewScanner(r)
	for lineno := 1; scanner.Scan(); lineno++ {
		text := scanner.Text()
		line := text
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name, val, err := splitLine(line)
		if err != nil {
			return nil, &FormatError{Line: lineno, Text: text, Err: err}
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, &FormatError{Line: lineno, Text: text, Err: err}
		}
		if _, dup := table[name]; dup {
			return nil, &FormatError{Line: lineno, Text: text, Err: fmt.Errorf("duplicate entry for %q", name)}
		}
		table[name] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

func splitLine(line string) (name, val string, err error) {
	if i := strings.IndexByte(line, '='); i >= 0 {
		name, val = strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
	} else {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return "", "", fmt.Errorf("want 2 fields, got %d", len(fields))
		}
		name, val = fields[0], fields[1]
	}
	if name == "" || val == "" || strings.ContainsAny(val, " \t") {
		return "", "", errors.New("want name and value")
	}
	return name, val, nil
}

// LoadTable reads the material table at path.
func LoadTable(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}
