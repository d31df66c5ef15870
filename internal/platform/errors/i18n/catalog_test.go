package i18n

import (
	"testing"
	"testing/fstest"
)

func TestGetCatalogFallback(t *testing.T) {
	base := GetCatalog("en-US")
	if base == nil {
		t.Fatal("expected base catalog")
	}
	if got := GetCatalog("missing-locale"); got != base {
		t.Fatal("expected fallback to en-US catalog")
	}
	if got := GetCatalog(""); got != base {
		t.Fatal("expected empty locale to resolve to en-US catalog")
	}
}

func TestGetCatalogNegotiatesAcceptLanguage(t *testing.T) {
	got := GetCatalog("pt-BR,pt;q=0.9,en;q=0.5")
	if got.Locale() != "pt-BR" {
		t.Fatalf("locale = %q, want pt-BR", got.Locale())
	}
	if got := GetCatalog("fr-FR"); got.Locale() != BaseLocale {
		t.Fatalf("locale = %q, want %s", got.Locale(), BaseLocale)
	}
}

func TestEmbeddedCatalogsCoverBaseCodes(t *testing.T) {
	base := GetCatalog(BaseLocale)
	ptBR := GetCatalog("pt-BR")
	for code := range base.messages {
		if _, ok := ptBR.messages[code]; !ok {
			t.Fatalf("pt-BR catalog is missing %s", code)
		}
	}
}

func TestFormatRendersMetadata(t *testing.T) {
	got := GetCatalog(BaseLocale).Format("UNSUPPORTED_COUNTRY", map[string]string{"CountryID": "9"})
	if got != "Country 9 is not supported" {
		t.Fatalf("message = %q", got)
	}
}

func TestFormatFallbacks(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "hello {{.Name}}",
	})

	if cat.Format("unknown", nil) != "unknown" {
		t.Fatal("expected code fallback when template missing")
	}
	if got := cat.Format("code", nil); got != "hello " {
		t.Fatalf("expected missing metadata to render empty, got %q", got)
	}
}

func TestFormatTemplateErrorFallback(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "{{ if .Name }}",
	})
	if cat.Format("code", map[string]string{"Name": "X"}) != "{{ if .Name }}" {
		t.Fatal("expected template fallback on parse error")
	}
}

func TestRegisterCatalog(t *testing.T) {
	custom := NewCatalog("de-DE", map[Code]string{"code": "ok"})
	RegisterCatalog("de-DE", custom)
	if got := GetCatalog("de-DE"); got != custom {
		t.Fatal("expected registered catalog")
	}
	if got := GetCatalog("de"); got != custom {
		t.Fatalf("expected base language to match registered catalog, got %q", got.Locale())
	}
}

func TestLoadFromFSRequiresBaseLocale(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/pt-BR.yaml": {Data: []byte("locale: pt-BR\nmessages:\n  NOT_FOUND: \"x\"\n")},
	}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected missing base locale error")
	}
}

func TestLoadFromFSRejectsEmptyMessages(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en-US.yaml": {Data: []byte("locale: en-US\nmessages: {}\n")},
	}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected empty messages error")
	}
}
