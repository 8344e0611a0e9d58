package format

import (
	"bytes"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// WriteEDN writes an EDN rendering of v: maps become keyword maps, slices
// vectors. Values go through JSON first so json tags decide the keys, and
// numbers are kept verbatim so 64-bit ids survive.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}

	var buf bytes.Buffer
	ednWriter{buf: &buf, pretty: pretty}.value(x, 0)
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

type ednWriter struct {
	buf    *bytes.Buffer
	pretty bool
}

// value handles exactly the shapes a JSON decode with UseNumber produces.
func (e ednWriter) value(v any, level int) {
	switch t := v.(type) {
	case nil:
		e.buf.WriteString("nil")
	case bool:
		e.buf.WriteString(strconv.FormatBool(t))
	case json.Number:
		e.buf.WriteString(t.String())
	case string:
		if isInstant(t) {
			e.buf.WriteString("#inst ")
		}
		e.buf.WriteString(strconv.Quote(t))
	case []any:
		e.seq('[', ']', len(t), level, func(i int) { e.value(t[i], level+1) })
	case map[string]any:
		keys := slices.Sorted(maps.Keys(t))
		e.seq('{', '}', len(keys), level, func(i int) {
			e.buf.WriteString(":" + strings.ReplaceAll(keys[i], "_", "-") + " ")
			e.value(t[keys[i]], level+1)
		})
	}
}

// seq writes n elements between open and closing. Pretty output puts one
// element per line, indented two spaces per level.
func (e ednWriter) seq(open, closing byte, n, level int, elem func(i int)) {
	e.buf.WriteByte(open)
	for i := 0; i < n; i++ {
		switch {
		case e.pretty:
			e.buf.WriteString("\n" + strings.Repeat("  ", level+1))
		case i > 0:
			e.buf.WriteByte(' ')
		}
		elem(i)
	}
	if e.pretty && n > 0 {
		e.buf.WriteString("\n" + strings.Repeat("  ", level))
	}
	e.buf.WriteByte(closing)
}

// isInstant reports whether s is an RFC 3339 timestamp; those are tagged
// #inst. The backend's naive "2006-01-02T15:04:05" stamps stay strings.
func isInstant(s string) bool {
	if len(s) < len("2006-01-02T15:04:05Z") {
		return false
	}
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}
