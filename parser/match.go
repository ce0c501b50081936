package parser

import (
	"regexp"
	"strings"
)

// MatchRule accepts an identity when every non-empty field matches.
//
// PodPrefix, ContainerPrefix and ImagePrefix are prefixes. An ImagePrefix
// starting with "/" is compared with the image name minus its registry host,
// so "/library/nginx" matches "docker.io/library/nginx:1.25". A plain
// ImagePrefix is tried on the raw image name first and then on the name
// without its registry host. ContainerType must be equal. ImageRegex, when
// set, must match the raw image name.
//
// The zero MatchRule accepts everything.
type MatchRule struct {
	PodPrefix       string
	ContainerPrefix string
	ImagePrefix     string
	ContainerType   string
	ImageRegex      *regexp.Regexp
}

// Matches reports whether id is accepted by the rule.
func (m MatchRule) Matches(id Identity) bool {
	if !strings.HasPrefix(id.PodName, m.PodPrefix) {
		return false
	}
	if !strings.HasPrefix(id.ContainerName, m.ContainerPrefix) {
		return false
	}
	if m.ContainerType != "" && id.ContainerType != m.ContainerType {
		return false
	}
	if !imageMatches(id.ImageName, m.ImagePrefix) {
		return false
	}
	return m.ImageRegex == nil || m.ImageRegex.MatchString(id.ImageName)
}

func imageMatches(image, prefix string) bool {
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(prefix, "/") && strings.HasPrefix(image, prefix) {
		return true
	}
	rest := withoutRegistry(image)
	if strings.HasPrefix(prefix, "/") {
		return strings.HasPrefix(rest, prefix)
	}
	return rest != "/"+image && strings.HasPrefix(rest[1:], prefix)
}

// withoutRegistry drops the first path segment of an image reference and
// keeps the slash: "quay.io/jetstack/cert-manager:v1" becomes
// "/jetstack/cert-manager:v1". An image without a slash gets one prepended.
func withoutRegistry(image string) string {
	i := strings.IndexByte(image, '/')
	if i <= 0 {
		return "/" + image
	}
	return image[i:]
}
