package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	ID        int64   `json:"id"`
	TeamID    int64   `json:"team_id"`
	Title     string  `json:"title"`
	Due       *string `json:"due_date"`
	CreatedAt string  `json:"created_at"`
}

type sampleList []sample

func (l sampleList) Rows() Rows {
	r := Rows{Header: []string{"ID", "TITLE"}}
	for _, s := range l {
		r.Data = append(r.Data, []string{"#1", s.Title})
	}
	return r
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"data": sample{ID: 1, Title: "a"}}, "", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := `{"data":{"id":1,"team_id":0,"title":"a","due_date":null,"created_at":""}}` + "\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}

func TestWriteEDN(t *testing.T) {
	var buf bytes.Buffer
	v := sample{ID: 9007199254740993, TeamID: 2, Title: "a", CreatedAt: "2026-01-02T03:04:05Z"}
	if err := Write(&buf, v, EDN, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		":id 9007199254740993",
		":team-id 2",
		":due-date nil",
		`:created-at #inst "2026-01-02T03:04:05Z"`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}

func TestWriteEDN_NaiveTimestampStaysString(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEDN(&buf, map[string]string{"at": "2026-01-02T03:04:05"}, false); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	if got := buf.String(); got != "{:at \"2026-01-02T03:04:05\"}\n" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteEDN_Pretty(t *testing.T) {
	var buf bytes.Buffer
	v := map[string]any{
		"signed_in": true,
		"tags":      []string{"a", "b"},
		"empty":     []string{},
		"meta":      map[string]any{},
	}
	if err := WriteEDN(&buf, v, true); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	want := "{\n  :empty []\n  :meta {}\n  :signed-in true\n  :tags [\n    \"a\"\n    \"b\"\n  ]\n}\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	buf.Reset()
	if err := WriteEDN(&buf, v, false); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	if got := buf.String(); got != "{:empty [] :meta {} :signed-in true :tags [\"a\" \"b\"]}\n" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	list := sampleList{{Title: "Ship it"}, {Title: strings.Repeat("x", 100)}}
	if err := Write(&buf, map[string]any{"data": list}, Table, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "TITLE") || !strings.Contains(out, "Ship it") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if strings.Contains(out, strings.Repeat("x", 100)) {
		t.Fatalf("expected long cell truncated:\n%s", out)
	}
}

func TestWriteTable_FallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"data": map[string]string{"k": "v"}}, Table, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), `"k": "v"`) {
		t.Fatalf("expected indented json; got %q", buf.String())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, 1, "xml", false); err == nil {
		t.Fatalf("expected error")
	}
}
