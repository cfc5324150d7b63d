// Package crawler classifies user agents as search engine, social preview
// and SEO crawlers, which the site answers with prerendered snapshots.
package crawler

import "strings"

// Unknown is the name reported for user agents that are not crawlers.
const Unknown = "Unknown"

type pattern struct {
	match string
	name  string
}

// Specific patterns come before the generic ones.
var patterns = []pattern{
	{"googlebot", "Googlebot"},
	{"google-inspectiontool", "Google Inspection Tool"},
	{"bingbot", "Bingbot"},
	{"yandex", "Yandex"},
	{"baiduspider", "Baidu"},
	{"duckduckbot", "DuckDuckBot"},
	{"applebot", "Applebot"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitterbot"},
	{"linkedinbot", "LinkedIn"},
	{"slackbot", "Slack"},
	{"whatsapp", "WhatsApp"},
	{"telegrambot", "Telegram"},
	{"discordbot", "Discord"},
	{"pinterest", "Pinterest"},
	{"ahrefsbot", "Ahrefs"},
	{"semrushbot", "SEMrush"},
	{"mj12bot", "Majestic"},
	{"dotbot", "Moz"},
	{"slurp", "Yahoo Slurp"},
	{"crawler", "Generic Crawler"},
	{"spider", "Generic Spider"},
}

var generic = []string{"bot", "crawl", "scrape", "preview"}

// IsBot reports whether ua is likely a crawler.
func IsBot(ua string) bool {
	return Name(ua) != Unknown
}

// Name returns a display name for the crawler behind ua, "Other Bot" for an
// unrecognized crawler and Unknown for everything else.
func Name(ua string) string {
	ua = strings.ToLower(ua)
	if ua == "" {
		return Unknown
	}
	for _, p := range patterns {
		if strings.Contains(ua, p.match) {
			return p.name
		}
	}
	for _, g := range generic {
		if strings.Contains(ua, g) {
			return "Other Bot"
		}
	}
	return Unknown
}
