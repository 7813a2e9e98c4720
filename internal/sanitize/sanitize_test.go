package sanitize

import (
	"strings"
	"testing"
)

func TestPlainText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    []string
		notWant []string
	}{
		{name: "empty", in: "  "},
		{name: "plain", in: "Boil water.", want: []string{"Boil water."}},
		{name: "markdown emphasis", in: "Add **salt** and _pepper_", want: []string{"Add salt and pepper"}, notWant: []string{"*", "_"}},
		{name: "html", in: "<p>Mix &amp; stir</p><script>alert(1)</script>", want: []string{"Mix & stir"}, notWant: []string{"<", "alert"}},
		{name: "list", in: "- pasta\n- tomato", want: []string{"- pasta", "- tomato"}},
		{name: "paragraphs", in: "Step one.\n\n\n\nStep two.", want: []string{"Step one.\n\nStep two."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := PlainText(tt.in)
			if len(tt.want) == 0 && got != "" {
				t.Errorf("PlainText(%q) = %q, want empty", tt.in, got)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("PlainText(%q) = %q, want it to contain %q", tt.in, got, w)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(got, nw) {
					t.Errorf("PlainText(%q) = %q, must not contain %q", tt.in, got, nw)
				}
			}
		})
	}
}
