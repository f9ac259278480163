package stringutil

import (
	"net/mail"
	"strings"
)

// StringAddress converts a single address to a string.
func StringAddress(a *mail.Address) string {
	if a == nil {
		return ""
	}
	if a.Name == "" {
		return a.Address
	}
	return a.String()
}

// StringAddressList converts a list of addresses to a list of strings
func StringAddressList(addrs []*mail.Address) []string {
	s := make([]string, len(addrs))
	for i, a := range addrs {
		if a != nil {
			s[i] = StringAddress(a)
		}
	}
	return s
}

// MakePathPrefixer returns a function that joins URL paths to the
// configured base path.  An empty base path yields the input unchanged.
func MakePathPrefixer(basePath string) func(string) string {
	basePath = strings.Trim(basePath, "/")
	if basePath != "" {
		basePath = "/" + basePath
	}
	return func(path string) string {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return basePath + path
	}
}
