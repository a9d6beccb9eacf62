// Package decode parses the three CSV-like shard payload formats —
// documents, document-stats, and term-stats — into in-memory entities.
package decode

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedRecord is returned when a row does not conform to its
// payload's schema (wrong column count, unparseable frequency, ...).
var ErrMalformedRecord = errors.New("decode: malformed record")

// Document is a tree-shaped record: nested keyed objects with string
// leaves, built by interpreting each dcs column header as a dotted path.
type Document map[string]any

// Documents parses a documents (.dcs) payload. The first row is the
// header; column 0 is the document id, every other column is a dotted
// field path. It returns one Document per subsequent row, keyed by id.
func Documents(r io.Reader) (map[string]Document, error) {
	cr := newReader(r)

	rawHeader, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]Document{}, nil
		}

		return nil, fmt.Errorf("%w: reading header: %w", ErrMalformedRecord, err)
	}

	// cr reuses its row's backing array on every Read; the header must be
	// copied out before the first data row overwrites it in place.
	header := append([]string(nil), rawHeader...)

	out := make(map[string]Document)

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}

		if len(row) == 0 {
			continue
		}

		id := row[0]
		doc := make(Document)

		for i := 1; i < len(header) && i < len(row); i++ {
			setField(doc, header[i], row[i])
		}

		out[id] = doc
	}

	return out, nil
}

// setField assigns value at the dotted path header within doc, creating
// intermediate nested Documents as needed. Unlike a naive clone-then-mutate
// approach, it writes directly into doc so nested paths actually persist.
func setField(doc Document, header, value string) {
	parts := strings.Split(header, ".")
	cur := doc

	for i, part := range parts {
		if i == len(parts)-1 {
			cur[part] = value

			return
		}

		next, ok := cur[part].(Document)
		if !ok {
			next = make(Document)
			cur[part] = next
		}

		cur = next
	}
}

// DocumentStats parses a document-stats (.dst) payload: each line is
// `id,"tok1:n1 tok2:n2 ..."`, with no header row. Multiple lines for the
// same id are merged, with later lines overwriting the term count for any
// token they repeat.
func DocumentStats(r io.Reader) (map[string]map[string]int, error) {
	cr := newReader(r)

	out := make(map[string]map[string]int)

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}

		if len(row) < 2 {
			return nil, fmt.Errorf("%w: document-stat row has %d columns, want 2", ErrMalformedRecord, len(row))
		}

		id := row[0]

		stat, ok := out[id]
		if !ok {
			stat = make(map[string]int)
			out[id] = stat
		}

		for _, pair := range strings.Fields(row[1]) {
			term, countStr, ok := strings.Cut(pair, ":")
			if !ok {
				return nil, fmt.Errorf("%w: term-frequency pair %q missing ':'", ErrMalformedRecord, pair)
			}

			count, err := strconv.Atoi(countStr)
			if err != nil {
				return nil, fmt.Errorf("%w: term-frequency count %q: %w", ErrMalformedRecord, countStr, err)
			}

			stat[term] = count
		}
	}

	return out, nil
}

// TermStats parses a term-stats (.tst) payload: each line is
// `token,"doc_id_1 doc_id_2 ..."`, with no header row. Multiple lines for
// the same token append their document ids; duplicates are preserved as
// the format permits.
func TermStats(r io.Reader) (map[string][]string, error) {
	cr := newReader(r)

	out := make(map[string][]string)

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}

		if len(row) < 2 {
			return nil, fmt.Errorf("%w: term-stat row has %d columns, want 2", ErrMalformedRecord, len(row))
		}

		token := row[0]
		out[token] = append(out[token], strings.Fields(row[1])...)
	}

	return out, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	return cr
}
