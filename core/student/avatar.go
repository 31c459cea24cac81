package student

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

var avatarColors = []string{"#6750A4", "#FF6D00", "#2E7D32", "#1565C0", "#C62828", "#6A1B9A", "#00838F"}

const avatarSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100">` +
	`<defs><linearGradient id="g" x1="0" y1="0" x2="1" y2="1">` +
	`<stop offset="0%%" stop-color="%[1]s"/><stop offset="100%%" stop-color="%[1]s88"/>` +
	`</linearGradient></defs>` +
	`<rect width="100" height="100" rx="16" fill="url(#g)"/>` +
	`<text x="50" y="62" font-family="Roboto,sans-serif" font-size="42" font-weight="700" fill="white" text-anchor="middle">%[2]s</text>` +
	`</svg>`

// DefaultAvatar returns an SVG data URI showing the first letter of name.
// The same name always yields the same avatar.
func DefaultAvatar(name string) string {
	var initial string
	if r, _ := utf8.DecodeRuneInString(name); r != utf8.RuneError {
		initial = string(unicode.ToUpper(r))
	}
	color := avatarColors[utf8.RuneCountInString(name)%len(avatarColors)]

	svg := fmt.Sprintf(avatarSVG, color, initial)
	return "data:image/svg+xml," + strings.ReplaceAll(url.QueryEscape(svg), "+", "%20")
}
