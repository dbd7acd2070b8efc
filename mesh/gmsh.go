package mesh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rwcarlsen/scfem/element"
)

var (
	// ErrParse marks malformed mesh file input.
	ErrParse = errors.New("mesh: malformed input")
	// ErrUnsupported is returned for mesh file features (format versions,
	// element types) that cannot be read.
	ErrUnsupported = errors.New("mesh: unsupported")
)

// ParseError reports the location of malformed mesh file input.
type ParseError struct {
	// Line is the 1-based line number.
	Line    int
	Section string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Section == "" {
		return fmt.Sprintf("mesh: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("mesh: line %d in %v: %v", e.Line, e.Section, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// gmshTypes maps Gmsh element type numbers to element kinds.  Gmsh local
// node ordering for these types matches the element package.
var gmshTypes = map[int]element.Kind{
	1: element.Line,
	2: element.Triangle,
	4: element.Tetrahedron,
	5: element.Hexahedron,
	6: element.Prism,
}

// gmshPoint is the Gmsh type of single node elements.  They carry no
// conduction and only add their node to a physical group.
const gmshPoint = 15

// Decoder reads a mesh in the Gmsh MSH 2.2 ASCII format.
type Decoder struct {
	// Logger receives warnings about skipped content.  The default logger is
	// used if it is nil.
	Logger *slog.Logger

	r       io.Reader
	scanner *bufio.Scanner
	line    int
	section string
	mesh    *Mesh
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder { return &Decoder{r: r} }

// ReadGmsh reads a Gmsh MSH 2.2 ASCII mesh from r.
func ReadGmsh(r io.Reader) (*Mesh, error) { return NewDecoder(r).Decode() }

// LoadGmsh reads the Gmsh MSH 2.2 ASCII mesh file at path.
func LoadGmsh(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadGmsh(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Decode reads the whole input and returns the mesh.  Sections other than
// MeshFormat, PhysicalNames, Nodes and Elements are skipped.  Elements whose
// physical tag has no name are skipped with a warning.
func (d *Decoder) Decode() (*Mesh, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mesh")

	d.scanner = bufio.NewScanner(d.r)
	// node and element lines are short but some writers emit very long
	// lines in sections we skip
	d.scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	d.mesh = New()
	var elems []rawElement

	var sawFormat bool
	for {
		line, ok := d.next()
		if !ok {
			break
		}
		if !strings.HasPrefix(line, "$") {
			return nil, d.errorf("unexpected content %q outside of a section", line)
		}
		d.section = line[1:]

		var err error
		switch line {
		case "$MeshFormat":
			sawFormat = true
			err = d.readMeshFormat()
		case "$PhysicalNames":
			err = d.readPhysicalNames()
		case "$Nodes":
			err = d.readNodes()
		case "$Elements":
			var section []rawElement
			section, err = d.readElements()
			elems = append(elems, section...)
		default:
			err = d.skipSection()
		}
		if err != nil {
			return nil, err
		}
		d.section = ""
	}
	if err := d.scanner.Err(); err != nil {
		return nil, err
	}
	if !sawFormat {
		return nil, &ParseError{Line: d.line, Err: errors.New("missing $MeshFormat section")}
	}

	// Elements are added once all sections are read since PhysicalNames may
	// legally follow Elements.
	skipped := map[int]int{}
	for _, raw := range elems {
		name, ok := d.mesh.PhysicalNames[raw.tag]
		if !ok {
			skipped[raw.tag]++
			continue
		}
		if raw.kind == point {
			if err := d.mesh.AddPoint(raw.nodes[0], name); err != nil {
				return nil, &ParseError{Line: raw.line, Section: "Elements", Err: err}
			}
			continue
		}
		e, err := d.mesh.AddElement(raw.id, raw.kind, raw.nodes, name)
		if err != nil {
			return nil, &ParseError{Line: raw.line, Section: "Elements", Err: err}
		}
		e.PhysicalTag = raw.tag
	}

	tags := make([]int, 0, len(skipped))
	for tag := range skipped {
		tags = append(tags, tag)
	}
	sort.Ints(tags)
	for _, tag := range tags {
		logger.Warn("skipping elements without a physical name", "physical_tag", tag, "elements", skipped[tag])
	}
	logger.Debug("read mesh", "nodes", d.mesh.NumNodes(), "elements", len(d.mesh.Elements), "groups", len(d.mesh.groups))
	return d.mesh, nil
}

// point marks raw point elements.
const point element.Kind = 0

type rawElement struct {
	line  int
	id    int
	kind  element.Kind
	tag   int
	nodes []int
}

// next returns the next non-blank line with surrounding space removed.
func (d *Decoder) next() (string, bool) {
	for d.scanner.Scan() {
		d.line++
		line := strings.TrimSpace(d.scanner.Text())
		if line != "" {
			return line, true
		}
	}
	return "", false
}

// mustNext is like next but reports end of input as an error.
func (d *Decoder) mustNext() (string, error) {
	line, ok := d.next()
	if !ok {
		if err := d.scanner.Err(); err != nil {
			return "", err
		}
		return "", d.errorf("unexpected EOF in %v", d.section)
	}
	return line, nil
}

func (d *Decoder) errorf(format string, args ...any) error {
	return &ParseError{Line: d.line, Section: d.section, Err: fmt.Errorf(format, args...)}
}

func (d *Decoder) wrap(err error) error {
	return &ParseError{Line: d.line, Section: d.section, Err: err}
}

// expectEnd consumes the closing marker of the current section.
func (d *Decoder) expectEnd() error {
	line, err := d.mustNext()
	if err != nil {
		return err
	}
	if want := "$End" + d.section; line != want {
		return d.errorf("got %q, want %v", line, want)
	}
	return nil
}

func (d *Decoder) skipSection() error {
	want := "$End" + d.section
	for {
		line, err := d.mustNext()
		if err != nil {
			return err
		}
		if line == want {
			return nil
		}
	}
}

// readCount reads the single integer count line that opens a section.
func (d *Decoder) readCount() (int, error) {
	line, err := d.mustNext()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 0 {
		return 0, d.errorf("invalid count %q", line)
	}
	return n, nil
}

func (d *Decoder) readMeshFormat() error {
	line, err := d.mustNext()
	if err != nil {
		return err
	}

	parts := strings.Fields(line)
	if len(parts) < 3 {
		return d.errorf("invalid MeshFormat line %q", line)
	}
	if !strings.HasPrefix(parts[0], "2") {
		return d.wrap(fmt.Errorf("%w: format version %v (want 2.x)", ErrUnsupported, parts[0]))
	}
	if parts[1] != "0" {
		return d.wrap(fmt.Errorf("%w: binary file type %v", ErrUnsupported, parts[1]))
	}
	return d.expectEnd()
}

func (d *Decoder) readPhysicalNames() error {
	n, err := d.readCount()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		line, err := d.mustNext()
		if err != nil {
			return err
		}

		// dim tag "name with spaces"
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return d.errorf("invalid physical name %q", line)
		}
		tag, err := strconv.Atoi(parts[1])
		if err != nil {
			return d.wrap(err)
		}
		name := strings.TrimSpace(parts[2])
		if s, err := strconv.Unquote(name); err == nil {
			name = s
		}
		if name == "" {
			return d.errorf("empty physical name for tag %d", tag)
		}
		d.mesh.PhysicalNames[tag] = name
	}
	return d.expectEnd()
}

func (d *Decoder) readNodes() error {
	n, err := d.readCount()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		line, err := d.mustNext()
		if err != nil {
			return err
		}

		parts := strings.Fields(line)
		if len(parts) != 4 {
			return d.errorf("want 4 fields in node line, got %d", len(parts))
		}
		tag, err := strconv.Atoi(parts[0])
		if err != nil {
			return d.wrap(err)
		}
		var x [3]float64
		for k := range x {
			if x[k], err = strconv.ParseFloat(parts[k+1], 64); err != nil {
				return d.wrap(err)
			}
		}
		if _, err := d.mesh.AddNode(tag, x); err != nil {
			return d.wrap(err)
		}
	}
	return d.expectEnd()
}

func (d *Decoder) readElements() ([]rawElement, error) {
	n, err := d.readCount()
	if err != nil {
		return nil, err
	}

	elems := make([]rawElement, 0, n)
	for i := 0; i < n; i++ {
		line, err := d.mustNext()
		if err != nil {
			return nil, err
		}

		// id type ntags tag... node...
		fields := strings.Fields(line)
		vals := make([]int, len(fields))
		for k, f := range fields {
			if vals[k], err = strconv.Atoi(f); err != nil {
				return nil, d.wrap(err)
			}
		}
		if len(vals) < 3 {
			return nil, d.errorf("want at least 3 fields in element line, got %d", len(vals))
		}
		id, typ, ntags := vals[0], vals[1], vals[2]
		kind, ok := gmshTypes[typ]
		if typ == gmshPoint {
			ok, kind = true, point
		}
		if !ok {
			return nil, d.wrap(fmt.Errorf("element %d: %w element type %d", id, ErrUnsupported, typ))
		}
		nnodes := 1
		if kind != point {
			nnodes = kind.NumNodes()
		}
		if ntags < 0 || len(vals) != 3+ntags+nnodes {
			return nil, d.wrap(fmt.Errorf("element %d: %w: type %d with %d tags needs %d fields, got %d",
				id, element.ErrNodeCount, typ, ntags, 3+ntags+nnodes, len(vals)))
		}

		raw := rawElement{line: d.line, id: id, kind: kind, nodes: vals[3+ntags:]}
		if ntags > 0 {
			raw.tag = vals[3]
		}
		for _, tag := range raw.nodes {
			if _, ok := d.mesh.tagIndex[tag]; !ok {
				return nil, d.wrap(fmt.Errorf("element %d: %w: tag %d", id, ErrUnknownNode, tag))
			}
		}
		elems = append(elems, raw)
	}
	return elems, d.expectEnd()
}
