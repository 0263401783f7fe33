package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
)

// DetectBlock checks a response for anti-bot interstitials. Insurer pages
// are large marketing documents, so body markers are only trusted on
// error statuses or short bodies.
func DetectBlock(resp *http.Response, body []byte) BlockType {
	if resp == nil {
		return BlockNone
	}

	challenged := resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable
	if challenged {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-mitigated") != "" ||
			strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	if !challenged && len(body) >= 4096 {
		return BlockNone
	}

	lower := strings.ToLower(string(body))
	switch {
	case strings.Contains(lower, "checking your browser"),
		strings.Contains(lower, "cf-browser-verification"),
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge"):
		return BlockCloudflare
	case strings.Contains(lower, "g-recaptcha"),
		strings.Contains(lower, "h-captcha"),
		strings.Contains(lower, "captcha-container"):
		return BlockCaptcha
	}
	return BlockNone
}
