package score

import (
	"strings"
)

// DomainClass is the reputation bucket of a host
type DomainClass int

const (
	DomainUnknown DomainClass = iota
	DomainTrusted
	DomainSuspicious
)

func (c DomainClass) String() string {
	switch c {
	case DomainTrusted:
		return "trusted"
	case DomainSuspicious:
		return "suspicious"
	default:
		return "unknown"
	}
}

// DomainClassifier matches hosts against trusted and suspicious lists.
// A host matches an entry when it contains the entry as a substring, so
// "news.bbc.com" and "bbc.com.evil.example" both hit "bbc.com".
type DomainClassifier struct {
	trusted    []string
	suspicious []string
}

// NewDomainClassifier creates a classifier; entries are lowercased and blanks dropped
func NewDomainClassifier(trusted, suspicious []string) *DomainClassifier {
	return &DomainClassifier{
		trusted:    cleanDomains(trusted),
		suspicious: cleanDomains(suspicious),
	}
}

// Classify returns the bucket for host. Trusted entries are checked first.
func (d *DomainClassifier) Classify(host string) DomainClass {
	host = strings.ToLower(host)
	for _, entry := range d.trusted {
		if strings.Contains(host, entry) {
			return DomainTrusted
		}
	}
	for _, entry := range d.suspicious {
		if strings.Contains(host, entry) {
			return DomainSuspicious
		}
	}
	return DomainUnknown
}

func cleanDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
