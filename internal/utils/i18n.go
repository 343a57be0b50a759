package utils

import "fmt"

// Server-side message catalog. Violation messages are shown inline to
// candidates, so they are kept here rather than in the frontend bundle.

var translations = map[string]map[string]string{
	"en": {
		"health.ok":             "ok",
		"validation.required":   "This field is required",
		"validation.min_length": "Minimum length is %d characters",
		"validation.max_length": "Maximum length is %d characters",
		"validation.pattern":    "Invalid format",
		"validation.min":        "Minimum value is %s",
		"validation.max":        "Maximum value is %s",
		"validation.min_items":  "Please select at least %d options",
		"validation.max_items":  "Please select at most %d options",
		"validation.type":       "This answer does not match the question type",
		"submit.failed":         "Please fix the highlighted answers before submitting",
		"persist.failed":        "Your answers could not be saved. Please try again",
	},
	"zh": {
		"health.ok":             "好的",
		"validation.required":   "此项为必填项",
		"validation.min_length": "最少需要 %d 个字符",
		"validation.max_length": "最多允许 %d 个字符",
		"validation.pattern":    "格式不正确",
		"validation.min":        "最小值为 %s",
		"validation.max":        "最大值为 %s",
		"validation.min_items":  "请至少选择 %d 项",
		"validation.max_items":  "最多只能选择 %d 项",
		"validation.type":       "答案类型与题目不符",
		"submit.failed":         "请先修正标记的答案再提交",
		"persist.failed":        "答案保存失败，请重试",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations["en"][key]; ok {
		return v
	}
	return key
}

// Tf formats the translated template for key with args.
func Tf(locale, key string, args ...any) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// SupportedLocales lists the locales with a message catalog.
func SupportedLocales() []string {
	return []string{"en", "zh"}
}
