package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Point maps variable names to values in their natural (constrained) space.
type Point map[string][]float64

// Clone returns a deep copy.
func (p Point) Clone() Point {
	out := make(Point, len(p))
	for k, v := range p {
		out[k] = append([]float64(nil), v...)
	}
	return out
}

// Scalar returns the first element of name, or 0 if absent.
func (p Point) Scalar(name string) float64 {
	v := p[name]
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

// Names returns the keys in sorted order.
func (p Point) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ShapeSize returns the number of elements of shape. The empty shape is a
// scalar with one element.
func ShapeSize(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// FormatShape renders a shape as "(2, 3)"; scalars render as "()".
func FormatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func broadcast(name, what string, vals []float64, shape []int) ([]float64, error) {
	size := ShapeSize(shape)
	switch len(vals) {
	case size:
		return append([]float64(nil), vals...), nil
	case 1:
		out := make([]float64, size)
		for i := range out {
			out[i] = vals[0]
		}
		return out, nil
	}
	return nil, &ShapeMismatchError{Name: name, What: what, Shape: shape, Got: len(vals)}
}

func (p Point) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, name := range p.Names() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", name, p[name])
	}
	b.WriteString("}")
	return b.String()
}
