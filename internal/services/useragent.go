package services

import "strings"

// uaRule maps a user agent token to a name. Order matters: Edge and Opera
// also carry "Chrome", Chrome also carries "Safari".
type uaRule struct {
	token string
	name  string
}

var browserRules = []uaRule{
	{"edg/", "Edge"},
	{"opr/", "Opera"},
	{"samsungbrowser", "Samsung Internet"},
	{"firefox/", "Firefox"},
	{"fxios", "Firefox"},
	{"crios", "Chrome"},
	{"chrome/", "Chrome"},
	{"safari/", "Safari"},
}

var osRules = []uaRule{
	{"windows", "Windows"},
	{"android", "Android"},
	{"iphone", "iOS"},
	{"ipad", "iOS"},
	{"mac os x", "macOS"},
	{"cros", "ChromeOS"},
	{"linux", "Linux"},
}

// classifyUserAgent extracts browser, device type (mobile, tablet, desktop, bot) and OS names.
// Unknown parts come back empty.
func classifyUserAgent(ua string) (browser, device, os string) {
	s := strings.ToLower(ua)
	if s == "" {
		return "", "", ""
	}

	for _, r := range browserRules {
		if strings.Contains(s, r.token) {
			browser = r.name
			break
		}
	}
	for _, r := range osRules {
		if strings.Contains(s, r.token) {
			os = r.name
			break
		}
	}

	switch {
	case strings.Contains(s, "bot") || strings.Contains(s, "crawler") || strings.Contains(s, "spider") || strings.Contains(s, "whatsapp"):
		device = "bot"
	case strings.Contains(s, "ipad") || strings.Contains(s, "tablet") || (strings.Contains(s, "android") && !strings.Contains(s, "mobile")):
		device = "tablet"
	case strings.Contains(s, "mobi") || strings.Contains(s, "iphone"):
		device = "mobile"
	default:
		device = "desktop"
	}
	return browser, device, os
}
