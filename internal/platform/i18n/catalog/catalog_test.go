package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func TestLoadEmbeddedLocalesShareKeys(t *testing.T) {
	bundle, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded catalogs: %v", err)
	}
	if !bundle.HasLocale("pt-BR") {
		t.Fatal("expected locale pt-BR")
	}
	base := bundle.Keys(BaseLocale)
	if len(base) == 0 {
		t.Fatal("expected base locale keys")
	}
	other := bundle.Keys("pt-BR")
	if len(other) != len(base) {
		t.Fatalf("pt-BR keys = %d, want %d", len(other), len(base))
	}
	for i := range base {
		if base[i] != other[i] {
			t.Fatalf("key %d = %q, want %q", i, other[i], base[i])
		}
	}
}

func TestDefaultRegistersPrinters(t *testing.T) {
	Default()
	p := message.NewPrinter(language.MustParse("pt-BR"))
	if got := p.Sprintf("errors.contract.already_voted"); got != "Você já votou nesta pergunta" {
		t.Fatalf("pt-BR message = %q", got)
	}
	p = message.NewPrinter(language.English)
	if got := p.Sprintf("validation.options_too_few", 2); got != "At least 2 options are required" {
		t.Fatalf("en message = %q", got)
	}
}

func TestMessageFallsBackToBase(t *testing.T) {
	bundle, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("load embedded catalogs: %v", err)
	}
	got, ok := bundle.Message("fr-FR", "display.just_now")
	if !ok || got != "Just now" {
		t.Fatalf("Message = %q, %v; want Just now", got, ok)
	}
	if _, ok := bundle.Message(BaseLocale, "display.missing"); ok {
		t.Fatal("expected missing key")
	}
}

func TestLoadFromFSRejectsForeignNamespaceKey(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "locales/en-US/errors.yaml"), `locale: "en-US"
namespace: "errors"
messages:
  "display.just_now": "nope"
`)

	if _, err := LoadFromFS(os.DirFS(dir)); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadFromFSRequiresBaseLocale(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "locales/pt-BR/errors.yaml"), `locale: "pt-BR"
namespace: "errors"
messages:
  "errors.x": "y"
`)

	if _, err := LoadFromFS(os.DirFS(dir)); err == nil {
		t.Fatal("expected missing base locale error")
	}
}

func TestParseCatalogFile(t *testing.T) {
	file, err := parseCatalogFile([]byte(`# comment
locale: "en-US"
namespace: "errors"
messages:
  "errors.quoted": "say \"hi\": now"
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := file.Messages["errors.quoted"]; got != `say "hi": now` {
		t.Fatalf("message = %q", got)
	}

	for _, bad := range []string{
		`locale: en-US`,
		"locale: \"en-US\"\nnamespace: \"errors\"\n\"a\": \"b\"",
		"locale: \"en-US\"\nnamespace: \"errors\"\nmessages:\n  \"a\" \"b\"",
		"locale: \"en-US\"\nnamespace: \"errors\"\nmessages:\n",
	} {
		if _, err := parseCatalogFile([]byte(bad)); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func mustWriteFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
