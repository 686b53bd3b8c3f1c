package useragent

import (
	"fmt"
	"os"
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

// Parser classifies User-Agent strings into device/browser/OS information
// for click analytics.
type Parser struct {
	parser *uaparser.Parser
	log    *zap.Logger
}

// DeviceInfo is the parsed view of a User-Agent string.
type DeviceInfo struct {
	DeviceType string // mobile, tablet, desktop, bot, unknown
	Browser    string
	OS         string
}

// NewParser builds a parser from a uap-core regexes file. When the file is
// missing or unreadable the parser falls back to the definitions compiled
// into uap-go, so callers always get a working instance.
func NewParser(regexFilePath string, log *zap.Logger) (*Parser, error) {
	if regexFilePath != "" {
		data, err := os.ReadFile(regexFilePath)
		if err == nil {
			p, err := uaparser.NewFromBytes(data)
			if err != nil {
				return nil, fmt.Errorf("failed to build parser from %s: %w", regexFilePath, err)
			}
			log.Info("user-agent parser initialized", zap.String("regexes_file", regexFilePath))
			return &Parser{parser: p, log: log}, nil
		}
		log.Warn("regexes file unavailable, using embedded definitions",
			zap.String("regexes_file", regexFilePath), zap.Error(err))
	}

	return &Parser{parser: uaparser.NewFromSaved(), log: log}, nil
}

// Parse returns device information for a User-Agent string. A nil receiver
// or empty input yields the unknown classification.
func (p *Parser) Parse(userAgent string) DeviceInfo {
	info := DeviceInfo{DeviceType: "unknown", Browser: "unknown", OS: "unknown"}
	if p == nil || userAgent == "" {
		return info
	}

	client := p.parser.Parse(userAgent)

	if f := client.UserAgent.Family; f != "" && f != "Other" {
		info.Browser = f
	}
	if f := client.Os.Family; f != "" && f != "Other" {
		info.OS = f
	}
	info.DeviceType = deviceType(client, userAgent)

	return info
}

func deviceType(client *uaparser.Client, userAgent string) string {
	if isBot(client.UserAgent.Family, userAgent) {
		return "bot"
	}

	device := client.Device.Family
	if containsAny(device, "iPad", "Tablet", "Kindle", "Surface") {
		return "tablet"
	}
	if containsAny(device, "iPhone", "Android", "BlackBerry", "Windows Phone", "Mobile", "Phone") {
		return "mobile"
	}

	os := client.Os.Family
	switch {
	case strings.Contains(os, "iOS"):
		if strings.Contains(userAgent, "iPad") {
			return "tablet"
		}
		return "mobile"
	case strings.Contains(os, "Android"):
		// Android tablets typically omit "Mobile" from the User-Agent.
		if !strings.Contains(userAgent, "Mobile") {
			return "tablet"
		}
		return "mobile"
	case containsAny(os, "Windows Phone", "BlackBerry", "Firefox OS", "Sailfish"):
		return "mobile"
	case containsAny(os, "Windows", "Mac OS X", "macOS", "Linux", "Ubuntu", "Chrome OS", "FreeBSD", "OpenBSD", "NetBSD"):
		return "desktop"
	}

	return "unknown"
}

func isBot(uaFamily, userAgent string) bool {
	indicators := []string{
		"Googlebot", "Bingbot", "Slurp", "DuckDuckBot", "Baiduspider",
		"YandexBot", "facebookexternalhit", "Twitterbot", "LinkedInBot",
		"WhatsApp", "Telegram", "bot", "crawler", "spider", "scraper",
	}
	for _, ind := range indicators {
		if containsFold(uaFamily, ind) || containsFold(userAgent, ind) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
