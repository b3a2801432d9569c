package filter_test

import (
	"bytes"
	"log"
	"net/url"
	"strings"
	"testing"

	"github.com/bcnelson/console-cache/internal/filter"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  filter.Filter
	}{
		{"empty", "", filter.Filter{}},
		{"json blob", `filter={"database":"instances/i1/databases/db1","schema":"public"}`,
			filter.Filter{Database: "instances/i1/databases/db1", Schema: "public"}},
		{"discrete fields", "schema=public&table=users", filter.Filter{Schema: "public", Table: "users"}},
		{"blob wins", `filter={"table":"a"}&table=b`, filter.Filter{Table: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("ParseQuery failed: %v", err)
			}
			got := filter.New(q, log.New(&bytes.Buffer{}, "", 0)).Get()
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestNew_MalformedBlob(t *testing.T) {
	var buf bytes.Buffer
	q := url.Values{"filter": {"{bad"}}

	c := filter.New(q, log.New(&buf, "", 0))

	if got := c.Get(); got != (filter.Filter{}) {
		t.Errorf("Expected empty filter, got %+v", got)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 1 {
		t.Errorf("Expected 1 log line, got %d: %q", lines, buf.String())
	}
}

func TestContext_Mutations(t *testing.T) {
	c := filter.New(url.Values{}, nil)

	c.Set(filter.Filter{Project: "projects/p1"})
	got := c.Update(func(f *filter.Filter) { f.Table = "orders" })

	want := filter.Filter{Project: "projects/p1", Table: "orders"}
	if got != want || c.Get() != want {
		t.Errorf("Expected %+v, got %+v", want, c.Get())
	}
}

func TestParseQuery(t *testing.T) {
	var buf bytes.Buffer
	if v := filter.ParseQuery("schema=public", nil); v.Get("schema") != "public" {
		t.Errorf("Expected schema=public, got %v", v)
	}
	if v := filter.ParseQuery("%zz", log.New(&buf, "", 0)); len(v) != 0 {
		t.Errorf("Expected no values, got %v", v)
	}
	if buf.Len() == 0 {
		t.Error("Expected a log line for the malformed query")
	}
}
