package bridge

import (
	"encoding/base64"
	"net"
	"net/url"
	"os"
	"strings"

	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// InvalidTokenMessage is the exit message reported for a bad link token.
const InvalidTokenMessage = "Invalid link token!"

// DefaultLanguage is used when no language is configured or detectable.
const DefaultLanguage = "en"

// LanguageSystem asks for the language of the host environment.
const LanguageSystem = "system"

var tokenEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodeToken decodes a link token into the link URL. Standard and URL-safe
// alphabets are accepted, with or without padding. The URL must be absolute
// http or https.
func DecodeToken(token string) (*url.URL, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidLinkToken, map[string]string{"reason": "empty token"})
	}

	var decoded []byte
	for _, enc := range tokenEncodings {
		b, err := enc.DecodeString(token)
		if err == nil {
			decoded = b
			break
		}
	}
	if decoded == nil {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidLinkToken, map[string]string{"reason": "not base64"})
	}

	return parseLinkURL(string(decoded))
}

// EncodeToken validates a link URL and encodes it as a link token.
func EncodeToken(link string) (string, error) {
	u, err := parseLinkURL(link)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(u.String())), nil
}

func parseLinkURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, linkerr.WithCause(linkerr.ErrInvalidLinkToken, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidLinkToken, map[string]string{"reason": "scheme must be http or https"})
	}
	if u.Host == "" {
		return nil, linkerr.WithDetails(linkerr.ErrInvalidLinkToken, map[string]string{"reason": "missing host"})
	}
	u.Scheme = scheme
	return u, nil
}

// Origin returns the scheme://host[:port] origin of u. The port is omitted
// when it is the scheme's default, as browsers report it.
func Origin(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == defaultPorts[scheme] {
		port = ""
	}
	if port != "" {
		return scheme + "://" + net.JoinHostPort(host, port)
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return scheme + "://" + host
}

// normalizeOrigin canonicalizes a reported origin. Values that do not parse
// as an http(s) origin are returned unchanged.
func normalizeOrigin(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return Origin(u)
}

//nolint:gochecknoglobals // scheme default ports
var defaultPorts = map[string]string{"http": "80", "https": "443"}

// decorateURL appends the lng and th query parameters to the link URL.
// Existing parameters keep their order.
func decorateURL(u *url.URL, language, theme string) string {
	params := url.Values{}
	params.Set("lng", resolveLanguage(language))
	if theme != "" {
		params.Set("th", theme)
	}

	out := *u
	if out.RawQuery == "" {
		out.RawQuery = params.Encode()
	} else {
		out.RawQuery += "&" + params.Encode()
	}
	return out.String()
}

// resolveLanguage maps "system" to the LANG environment variable, so
// "pt_BR.UTF-8" becomes "pt-BR".
func resolveLanguage(language string) string {
	if language != LanguageSystem {
		if language == "" {
			return DefaultLanguage
		}
		return language
	}

	lang := os.Getenv("LANG")
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	lang = strings.ReplaceAll(lang, "_", "-")
	if lang == "" || lang == "C" || lang == "POSIX" {
		return DefaultLanguage
	}
	return lang
}
