package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLocale(t *testing.T) {
	cases := map[string]string{
		"":                        "en",
		"de-DE,de;q=0.9,en;q=0.8": "de",
		"fr-FR, zh_CN;q=0.7":      "zh",
		"fr, es":                  "en",
		"EN-us":                   "en",
	}
	for header, want := range cases {
		assert.Equal(t, want, NormalizeLocale(header), header)
	}
}

func TestLocaleFromRequestPrefersQuery(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/users/verification-code?lang=zh", nil)
	r.Header.Set("Accept-Language", "de")
	assert.Equal(t, "zh", LocaleFromRequest(r))

	r = httptest.NewRequest("POST", "/api/users/verification-code", nil)
	r.Header.Set("Accept-Language", "de")
	assert.Equal(t, "de", LocaleFromRequest(r))

	assert.Equal(t, DefaultLocale, LocaleFromRequest(nil))
}

func TestCodeEmailPerKind(t *testing.T) {
	subjects := map[string]bool{}
	for _, kind := range []CodeEmailKind{CodeRegister, CodePasswordReset, CodeEmailChange} {
		msg := CodeEmail("en", kind, "012345", 10)
		assert.Contains(t, msg.Text, "012345")
		assert.Contains(t, msg.Text, "10 minutes")
		assert.Contains(t, msg.HTML, "<strong>012345</strong>")
		subjects[msg.Subject] = true
	}
	assert.Len(t, subjects, 3)
}

func TestCodeEmailFallsBackToDefaultLocale(t *testing.T) {
	msg := CodeEmail("fr", CodePasswordReset, "999999", 5)
	assert.Equal(t, emailTranslations["en"].PasswordReset.Subject, msg.Subject)

	zh := CodeEmail("zh", CodeRegister, "123456", 10)
	assert.Equal(t, "注册验证码", zh.Subject)
	assert.Contains(t, zh.Text, "123456")
}
