package record

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// DisplayURL normalises a Record's URL the way a DevTools front-end expects
// to display it: lowercase scheme/host, IDN hosts converted to their ASCII
// (punycode) form, and the default port for the scheme omitted. Parse
// failures return raw unchanged rather than erroring, since display
// normalisation is best-effort.
func DisplayURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}

	port := u.Port()
	switch {
	case (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443"):
		u.Host = host
	case port != "":
		u.Host = net.JoinHostPort(host, port)
	default:
		u.Host = host
	}

	return u.String()
}
