package symbols

import (
	"testing"

	"cix/internal/grammar"
	"cix/internal/modules"
)

func TestClassifierLayer(t *testing.T) {
	c := NewClassifier(nil)
	tests := []struct {
		path string
		lang string
		kind string
		want Layer
	}{
		{"db/migrations/001_init.sql", grammar.LangSQL, "", LayerDatabase},
		{"app/models/user.py", grammar.LangPython, "", LayerDatabase},
		{"src/entity/Order.java", grammar.LangJava, "", LayerDatabase},
		{"web/src/components/Button.tsx", grammar.LangTSX, "", LayerFrontend},
		{"site/views/index.html", "", "", LayerView},
		{"ui/App.vue", "vue", "", LayerView},
		{"services/api/handler.go", grammar.LangGo, "", LayerBackend},
		{"tools/gen.go", grammar.LangGo, "", LayerBackend},
		{"scripts/build.sh", "shell", "", LayerUnknown},
		{"README.md", "", "", LayerUnknown},
		{"anything/odd.rb", "ruby", grammar.KindColumn, LayerDatabase},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := c.Layer(tt.path, tt.lang, tt.kind); got != tt.want {
				t.Errorf("Layer(%q) = %s, want %s", tt.path, got, tt.want)
			}
		})
	}
}

func TestClassifierCategory(t *testing.T) {
	c := NewClassifier(nil)
	tests := map[string]string{
		"main.go":                         "root",
		"internal/storage/db.go":          "storage",
		"src/main/java/com/acme/App.java": "acme",
		"billing/invoice.py":              "billing",
		"pkg/x.go":                        "root",
	}
	for path, want := range tests {
		if got := c.Category(path); got != want {
			t.Errorf("Category(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestClassifierOverrides(t *testing.T) {
	c := NewClassifier(modules.NewOverrides([]*modules.Module{
		{Name: "payments", Paths: []string{"internal/billing"}, Layer: "Database", Tags: []string{"pci"}},
	}))

	s := Symbol{FilePath: "internal/billing/charge.go", Language: grammar.LangGo}
	c.Apply(&s, grammar.KindFunction)
	if s.Category != "payments" || s.Layer != LayerDatabase || s.Domain != DomainCode {
		t.Errorf("classified = %s/%s/%s", s.Category, s.Layer, s.Domain)
	}
	if tags, ok := s.Metadata["tags"].([]string); !ok || tags[0] != "pci" {
		t.Errorf("tags = %v", s.Metadata["tags"])
	}

	d := Symbol{FilePath: "docs/guide.md"}
	c.Apply(&d, "")
	if d.Domain != DomainDoc || d.Category != "docs" {
		t.Errorf("doc classified = %s/%s", d.Domain, d.Category)
	}
}
