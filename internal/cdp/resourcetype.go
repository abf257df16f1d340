package cdp

import (
	"strings"

	"github.com/chromedp/cdproto/network"
)

// classifyResourceType implements §4.10's classification rule, using
// cdproto's own ResourceType enum so the string values match what a real
// Chromium front-end expects byte-for-byte.
func classifyResourceType(mimeType string) network.ResourceType {
	mimeType = strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return network.ResourceTypeImage
	case strings.HasSuffix(mimeType, "/javascript"):
		return network.ResourceTypeScript
	case strings.HasSuffix(mimeType, "/css"):
		return network.ResourceTypeStylesheet
	case mimeType == "text/html":
		return network.ResourceTypeDocument
	default:
		return network.ResourceTypeOther
	}
}
