// Package codec owns the flattened text encoding of links and paths exchanged
// with the store.
//
// A link is a parenthesised tuple (arrow,weight,context,class,cptr). The last
// two fields are the two components of the destination NodePtr and may also
// appear nested and quoted, as in (arrow,weight,context,"(class,cptr)").
// Links in a path are separated by ';' and paths in a result by '\n'.
// Quote characters come in pairs and are stripped before splitting.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/spacetime/internal/apperr"
	"github.com/starford/spacetime/internal/models"
)

const (
	linkSep = ";"
	pathSep = "\n"
)

// SyntaxError describes one tuple or path that does not match the grammar.
type SyntaxError struct {
	Line    int // 1-based line of the path blob, 0 when decoding a single link array
	Segment string
	Reason  string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("codec: line %d: %s: %q", e.Line, e.Reason, e.Segment)
	}
	return fmt.Sprintf("codec: %s: %q", e.Reason, e.Segment)
}

// Unwrap lets callers match errors.Is(err, apperr.ErrMalformedPath).
func (e *SyntaxError) Unwrap() error {
	return apperr.ErrMalformedPath
}

// DecodeLinkArray parses the ';'-separated link tuples of one path.
// Empty segments are skipped. The first malformed tuple fails the whole array.
func DecodeLinkArray(text string) ([]models.Link, error) {
	var out []models.Link
	for _, seg := range strings.Split(text, linkSep) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		l, err := decodeLink(seg)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// DecodePathArray parses a '\n'-separated blob of paths. Empty lines are
// dropped. A malformed line does not affect the others: every decodable path
// is returned, and the errors of the failing lines are joined into err.
func DecodePathArray(text string) ([]models.Path, error) {
	var (
		paths []models.Path
		errs  []error
	)
	for i, line := range strings.Split(text, pathSep) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		links, err := DecodeLinkArray(line)
		if err != nil {
			var se *SyntaxError
			if errors.As(err, &se) {
				se.Line = i + 1
			}
			errs = append(errs, err)
			continue
		}
		if len(links) > 0 {
			paths = append(paths, models.Path(links))
		}
	}
	return paths, errors.Join(errs...)
}

func decodeLink(seg string) (models.Link, error) {
	var l models.Link

	if strings.Count(seg, `"`)%2 != 0 {
		return l, &SyntaxError{Segment: seg, Reason: "unbalanced quoting"}
	}
	s := strings.ReplaceAll(seg, `"`, "")
	s = strings.ReplaceAll(s, `\`, "")
	s = strings.TrimSpace(s)

	if strings.Count(s, "(") != strings.Count(s, ")") {
		return l, &SyntaxError{Segment: seg, Reason: "unbalanced parentheses"}
	}
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return l, &SyntaxError{Segment: seg, Reason: "tuple must be parenthesised"}
	}
	inner := s[1 : len(s)-1]
	inner = strings.NewReplacer("(", "", ")", "").Replace(inner)

	fields := strings.Split(inner, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	switch {
	case len(fields) < 4:
		return l, &SyntaxError{Segment: seg, Reason: fmt.Sprintf("expected 4 fields, got %d", len(fields))}
	case len(fields) == 4:
		// The destination is one logical field but always has two components.
		return l, &SyntaxError{Segment: seg, Reason: "destination needs class and index components"}
	case len(fields) > 5:
		return l, &SyntaxError{Segment: seg, Reason: fmt.Sprintf("too many fields: %d", len(fields))}
	}

	arrow, err := strconv.Atoi(fields[0])
	if err != nil {
		return l, &SyntaxError{Segment: seg, Reason: "bad arrow pointer"}
	}
	weight, err := strconv.ParseFloat(fields[1], 32)
	if err != nil {
		return l, &SyntaxError{Segment: seg, Reason: "bad weight"}
	}
	ctx, err := strconv.Atoi(fields[2])
	if err != nil {
		return l, &SyntaxError{Segment: seg, Reason: "bad context pointer"}
	}
	class, err := strconv.Atoi(fields[3])
	if err != nil {
		return l, &SyntaxError{Segment: seg, Reason: "bad destination class"}
	}
	cptr, err := strconv.Atoi(fields[4])
	if err != nil {
		return l, &SyntaxError{Segment: seg, Reason: "bad destination index"}
	}

	return models.Link{
		Arrow:   models.ArrowPtr(arrow),
		Weight:  float32(weight),
		Context: models.ContextPtr(ctx),
		Dst:     models.NodePtr{Class: class, CPtr: cptr},
	}, nil
}

// EncodeLink renders l as a flat tuple.
func EncodeLink(l models.Link) string {
	return fmt.Sprintf("(%d,%s,%d,%d,%d)",
		l.Arrow,
		strconv.FormatFloat(float64(l.Weight), 'f', -1, 32),
		l.Context,
		l.Dst.Class,
		l.Dst.CPtr)
}

// EncodeLinkArray renders one path.
func EncodeLinkArray(links []models.Link) string {
	parts := make([]string, len(links))
	for i, l := range links {
		parts[i] = EncodeLink(l)
	}
	return strings.Join(parts, linkSep)
}

// EncodePathArray renders a set of paths, one per line.
func EncodePathArray(paths []models.Path) string {
	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		lines = append(lines, EncodeLinkArray(p))
	}
	return strings.Join(lines, pathSep)
}
