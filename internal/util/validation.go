package util

import (
	"net"
	"net/url"
	"strings"

	"github.com/coah80/appxzip/internal/config"
)

type URLValidation struct {
	Valid bool
	Error string
}

// ValidateDownloadURL accepts http(s) URLs whose path ends in .zip. With
// blockPrivate set, hosts resolving to loopback or private ranges are refused.
func ValidateDownloadURL(rawURL string, blockPrivate bool) URLValidation {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return URLValidation{false, "URL is required"}
	}
	if len(rawURL) > config.MaxURLLength {
		return URLValidation{false, "URL is too long"}
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return URLValidation{false, "Only HTTP/HTTPS URLs are allowed"}
	}
	if !strings.HasSuffix(rawURL, ".zip") {
		return URLValidation{false, "URL must point to a .zip file"}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return URLValidation{false, "Invalid URL format"}
	}

	if blockPrivate && isPrivateHost(strings.ToLower(parsed.Hostname())) {
		return URLValidation{false, "Private/local URLs are not allowed"}
	}

	return URLValidation{true, ""}
}

var privateNets []*net.IPNet

func init() {
	cidrs := []string{
		"127.0.0.0/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"0.0.0.0/8",
		"169.254.0.0/16",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, _ := net.ParseCIDR(cidr)
		privateNets = append(privateNets, network)
	}
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateNets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

var lookupIP = net.LookupIP

func isPrivateHost(hostname string) bool {
	if hostname == "" || hostname == "localhost" {
		return true
	}

	ip := net.ParseIP(strings.Trim(hostname, "[]"))
	if ip != nil {
		return isPrivateIP(ip)
	}

	ips, err := lookupIP(hostname)
	if err != nil {
		return true
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return true
		}
	}
	return false
}
