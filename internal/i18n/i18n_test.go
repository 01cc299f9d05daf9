package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestReasonEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := Reason(ctx, "already_taken")
	if got != "You have already submitted this exam." {
		t.Errorf("Reason(already_taken) = %q", got)
	}
}

func TestReasonRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := Reason(ctx, "expired")
	if got != "Экзамен уже закончился." {
		t.Errorf("Reason(expired) = %q", got)
	}
}

func TestEveryReasonIsTranslated(t *testing.T) {
	reasons := []string{
		"already_taken", "not_yet_open", "expired", "exam_inactive", "exam_not_found",
		"malformed_submission", "forbidden", "exam_locked", "invalid_exam", "not_passed", "not_found",
	}
	for _, lang := range []string{"en", "ru"} {
		ctx := initLang(t, lang)
		for _, r := range reasons {
			if got := Reason(ctx, r); got == "Reason."+r {
				t.Errorf("%s: missing translation for %s", lang, r)
			}
		}
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "ExamsAvailable", 1); got != "1 exam available." {
		t.Errorf("Tp(ExamsAvailable, 1) = %q", got)
	}
	if got := Tp(ctx, "ExamsAvailable", 5); got != "5 exams available." {
		t.Errorf("Tp(ExamsAvailable, 5) = %q", got)
	}

	ctx = initLang(t, "ru")
	if got := Tp(ctx, "ExamsAvailable", 5); got != "Доступно 5 экзаменов." {
		t.Errorf("Tp(ExamsAvailable, 5) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "CertificateIssued", map[string]any{"Number": "CERT-1-2-ABC"})
	if got != "Certificate CERT-1-2-ABC issued." {
		t.Errorf("Td(CertificateIssued) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestLanguages(t *testing.T) {
	initLang(t, "en")
	langs := Languages()
	if !slices.Contains(langs, "en") || !slices.Contains(langs, "ru") {
		t.Errorf("Languages() = %v, want en and ru", langs)
	}
}

func TestMiddlewareNegotiates(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var got string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Reason(r.Context(), "not_found")
	}))

	tests := []struct {
		name   string
		target string
		header string
		want   string
	}{
		{"default", "/", "", "Not found."},
		{"accept-language", "/", "ru-RU,ru;q=0.9,en;q=0.8", "Не найдено."},
		{"query wins", "/?lang=en", "ru", "Not found."},
		{"unknown language", "/", "fr", "Not found."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Accept-Language", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
