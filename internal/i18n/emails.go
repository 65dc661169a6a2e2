package i18n

import (
	"strconv"
	"strings"
)

type EmailContent struct {
	Subject string
	Text    string
	HTML    string
}

// CodeEmailKind selects the wording of a verification code email.
type CodeEmailKind int

const (
	CodeRegister CodeEmailKind = iota
	CodePasswordReset
	CodeEmailChange
)

type codeStrings struct {
	Subject string
	Text    string
	HTML    string
}

type emailStrings struct {
	Register      codeStrings
	PasswordReset codeStrings
	EmailChange   codeStrings
}

var emailTranslations = map[string]emailStrings{
	"en": {
		Register: codeStrings{
			Subject: "Your registration code",
			Text:    "Your registration code is {code}. It is valid for {minutes} minutes.",
			HTML: "<p>Welcome!</p>" +
				"<p>Use the code below to finish creating your account.</p>" +
				"<p><strong>{code}</strong></p>" +
				"<p>The code expires in {minutes} minutes.</p>" +
				"<p>If you did not request this, you can ignore this email.</p>",
		},
		PasswordReset: codeStrings{
			Subject: "Your password reset code",
			Text:    "Your password reset code is {code}. It is valid for {minutes} minutes.\nIf you did not request this, ignore this email.",
			HTML: "<p>Password reset</p>" +
				"<p>Use the code below to choose a new password.</p>" +
				"<p><strong>{code}</strong></p>" +
				"<p>The code expires in {minutes} minutes.</p>" +
				"<p>If you did not request this, ignore this email.</p>",
		},
		EmailChange: codeStrings{
			Subject: "Confirm your new email address",
			Text:    "Your email change code is {code}. It is valid for {minutes} minutes.",
			HTML: "<p>Confirm your new email address</p>" +
				"<p>Use the code below to move your account to this address.</p>" +
				"<p><strong>{code}</strong></p>" +
				"<p>The code expires in {minutes} minutes.</p>" +
				"<p>If you did not request this, you can ignore this email.</p>",
		},
	},
	"de": {
		Register: codeStrings{
			Subject: "Ihr Registrierungscode",
			Text:    "Ihr Registrierungscode ist {code}. Er ist {minutes} Minuten gültig.",
			HTML: "<p>Willkommen!</p>" +
				"<p>Verwenden Sie den untenstehenden Code, um Ihr Konto anzulegen.</p>" +
				"<p><strong>{code}</strong></p>" +
				"<p>Der Code ist {minutes} Minuten gültig.</p>" +
				"<p>Wenn Sie dies nicht angefordert haben, können Sie diese E-Mail ignorieren.</p>",
		},
		PasswordReset: codeStrings{
			Subject: "Ihr Code zum Zurücksetzen des Passworts",
			Text:    "Ihr Code zum Zurücksetzen des Passworts ist {code}. Er ist {minutes} Minuten gültig.\nWenn Sie dies nicht angefordert haben, ignorieren Sie diese E-Mail.",
			HTML: "<p>Passwort zurücksetzen</p>" +
				"<p>Verwenden Sie den untenstehenden Code, um ein neues Passwort festzulegen.</p>" +
				"<p><strong>{code}</strong></p>" +
				"<p>Der Code ist {minutes} Minuten gültig.</p>" +
				"<p>Wenn Sie dies nicht angefordert haben, ignorieren Sie diese E-Mail.</p>",
		},
		EmailChange: codeStrings{
			Subject: "Neue E-Mail-Adresse bestätigen",
			Text:    "Ihr Code zur Änderung der E-Mail-Adresse ist {code}. Er ist {minutes} Minuten gültig.",
			HTML: "<p>Neue E-Mail-Adresse bestätigen</p>" +
				"<p>Verwenden Sie den untenstehenden Code, um Ihr Konto auf diese Adresse umzustellen.</p>" +
				"<p><strong>{code}</strong></p>" +
				"<p>Der Code ist {minutes} Minuten gültig.</p>" +
				"<p>Wenn Sie dies nicht angefordert haben, können Sie diese E-Mail ignorieren.</p>",
		},
	},
	"zh": {
		Register: codeStrings{
			Subject: "注册验证码",
			Text:    "您的注册验证码是: {code}，有效期为{minutes}分钟。",
			HTML:    "<p>您的注册验证码是: <strong>{code}</strong></p><p>有效期为{minutes}分钟。</p>",
		},
		PasswordReset: codeStrings{
			Subject: "重置密码验证码",
			Text:    "您的重置密码验证码是: {code}，有效期为{minutes}分钟。",
			HTML:    "<p>您的重置密码验证码是: <strong>{code}</strong></p><p>有效期为{minutes}分钟。</p>",
		},
		EmailChange: codeStrings{
			Subject: "修改邮箱验证码",
			Text:    "您的修改邮箱验证码是: {code}，有效期为{minutes}分钟。",
			HTML:    "<p>您的修改邮箱验证码是: <strong>{code}</strong></p><p>有效期为{minutes}分钟。</p>",
		},
	},
}

func emailStringsForLocale(locale string) emailStrings {
	key := NormalizeLocale(locale)
	if val, ok := emailTranslations[key]; ok {
		return val
	}
	return emailTranslations[DefaultLocale]
}

func (s emailStrings) forKind(kind CodeEmailKind) codeStrings {
	switch kind {
	case CodeRegister:
		return s.Register
	case CodePasswordReset:
		return s.PasswordReset
	case CodeEmailChange:
		return s.EmailChange
	default:
		return s.Register
	}
}

func renderTemplate(tmpl string, values map[string]string) string {
	if tmpl == "" || len(values) == 0 {
		return tmpl
	}

	replacements := make([]string, 0, len(values)*2)
	for key, value := range values {
		replacements = append(replacements, "{"+key+"}", value)
	}
	return strings.NewReplacer(replacements...).Replace(tmpl)
}

// CodeEmail renders the verification code message for kind in locale.
func CodeEmail(locale string, kind CodeEmailKind, code string, minutes int) EmailContent {
	templates := emailStringsForLocale(locale).forKind(kind)
	values := map[string]string{
		"code":    code,
		"minutes": strconv.Itoa(minutes),
	}
	return EmailContent{
		Subject: templates.Subject,
		Text:    renderTemplate(templates.Text, values),
		HTML:    renderTemplate(templates.HTML, values),
	}
}
