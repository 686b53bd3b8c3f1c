package validation

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// blockedHosts are hostnames (or substrings of hostnames) that must never be
// shortened: loopback addresses and local names would turn the redirector
// into an SSRF gadget.
var blockedHosts = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
	"::1",
	"local",
}

// ValidateURL проверяет, что строка — абсолютный http/https URL и не
// указывает на локальные или приватные адреса. Возвращает человекочитаемую
// причину отказа.
func ValidateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL format")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("only http and https URLs are allowed")
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return fmt.Errorf("URL must have a hostname")
	}

	for _, blocked := range blockedHosts {
		if strings.Contains(hostname, blocked) {
			return fmt.Errorf("URL points to a blocked host")
		}
	}

	if ip := net.ParseIP(hostname); ip != nil && ip.To4() != nil && isPrivateIPv4(ip.To4()) {
		return fmt.Errorf("URL points to a private network")
	}

	return nil
}

// isPrivateIPv4 проверяет диапазоны 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16
func isPrivateIPv4(ip net.IP) bool {
	switch {
	case ip[0] == 10:
		return true
	case ip[0] == 172 && ip[1] >= 16 && ip[1] <= 31:
		return true
	case ip[0] == 192 && ip[1] == 168:
		return true
	}
	return false
}

// ipHeaders — заголовки с клиентским IP в порядке приоритета
var ipHeaders = []string{
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
	"X-Client-IP",
}

// ClientIP извлекает IP клиента из запроса с учетом прокси-заголовков.
// Если валидный адрес не найден, возвращает "unknown" — это допустимый
// вырожденный ключ, объединяющий неатрибутируемых клиентов в один bucket.
func ClientIP(r *http.Request) string {
	for _, header := range ipHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		// Заголовок может содержать список IP через запятую
		candidate := strings.TrimSpace(strings.Split(value, ",")[0])
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	}

	return "unknown"
}

// GeoLocation извлекает страну и город из заголовков, проставляемых
// платформой (Cloudflare / Vercel). При отсутствии возвращает "Unknown".
func GeoLocation(r *http.Request) (country, city string) {
	country = firstHeader(r, "CF-IPCountry", "X-Vercel-IP-Country")
	if country == "" {
		country = "Unknown"
	}

	city = firstHeader(r, "X-Vercel-IP-City")
	if city == "" {
		city = "Unknown"
	}

	return country, city
}

func firstHeader(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return ""
}
