package templates

import "testing"

func TestRendererRender(t *testing.T) {
	var r Renderer

	tests := []struct {
		name    string
		tmpl    string
		data    any
		want    string
		wantErr bool
	}{
		{name: "greet", tmpl: "Hello {{.Name}}", data: map[string]string{"Name": "Amit"}, want: "Hello Amit"},
		{name: "missing key", tmpl: "Hello {{.Missing}}", data: map[string]string{"Name": "x"}, wantErr: true},
		{name: "empty template", tmpl: "", data: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Render(tt.name, tt.tmpl, tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestRendererCachesParsedTemplates(t *testing.T) {
	var r Renderer
	if _, err := r.Render("cached", "Hi {{.Name}}", map[string]string{"Name": "A"}); err != nil {
		t.Fatalf("first render: %v", err)
	}
	// Second render with the same name reuses the cached parse; different
	// data still flows through.
	out, err := r.Render("cached", "Hi {{.Name}}", map[string]string{"Name": "B"})
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if out != "Hi B" {
		t.Errorf("output = %q, want %q", out, "Hi B")
	}
}
