package util

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDownloadURL(t *testing.T) {
	cases := []struct {
		name  string
		url   string
		valid bool
	}{
		{"https zip", "https://cdn.example.com/v/encrypted-abc123.zip", true},
		{"http zip", "http://cdn.example.com/a.zip", true},
		{"surrounding space", "  https://cdn.example.com/a.zip  ", true},
		{"empty", "", false},
		{"not zip", "https://cdn.example.com/a.mp4", false},
		{"query after zip", "https://cdn.example.com/a.zip?x=1", false},
		{"ftp", "ftp://cdn.example.com/a.zip", false},
		{"no scheme", "cdn.example.com/a.zip", false},
		{"no host", "https:///a.zip", false},
		{"too long", "https://cdn.example.com/" + strings.Repeat("a", 2100) + ".zip", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidateDownloadURL(tc.url, false)
			assert.Equal(t, tc.valid, res.Valid, res.Error)
			if !tc.valid {
				assert.NotEmpty(t, res.Error)
			}
		})
	}
}

func TestValidateDownloadURLPrivateHosts(t *testing.T) {
	orig := lookupIP
	t.Cleanup(func() { lookupIP = orig })
	lookupIP = func(host string) ([]net.IP, error) {
		switch host {
		case "internal.example":
			return []net.IP{net.ParseIP("10.1.2.3")}, nil
		case "public.example":
			return []net.IP{net.ParseIP("93.184.216.34")}, nil
		}
		return nil, errors.New("no such host")
	}

	assert.False(t, ValidateDownloadURL("http://127.0.0.1/a.zip", true).Valid)
	assert.False(t, ValidateDownloadURL("http://localhost/a.zip", true).Valid)
	assert.False(t, ValidateDownloadURL("http://[::1]/a.zip", true).Valid)
	assert.False(t, ValidateDownloadURL("http://internal.example/a.zip", true).Valid)
	assert.False(t, ValidateDownloadURL("http://unknown.example/a.zip", true).Valid)
	assert.True(t, ValidateDownloadURL("http://public.example/a.zip", true).Valid)

	assert.True(t, ValidateDownloadURL("http://127.0.0.1/a.zip", false).Valid)
}
