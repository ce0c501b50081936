package parser

import (
	"path"
	"path/filepath"
	"strings"
)

// IdentityFromPath derives the pod and container names from the kubelet log
// file layout:
//
//	/var/log/pods/<namespace>_<pod>_<uid>/<container>/<restart>.log
//	/var/log/containers/<pod>_<namespace>_<container>-<container id>.log
//
// Archive members ("logs.tar:var/log/pods/...") are resolved the same way.
// The image name is not part of either layout and is left empty.
func IdentityFromPath(name string) (Identity, bool) {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		name = name[i+1:]
	}
	parts := strings.Split(filepath.ToSlash(name), "/")

	if n := len(parts); n >= 4 && parts[n-4] == "pods" {
		fields := strings.Split(parts[n-3], "_")
		if len(fields) == 3 && fields[1] != "" {
			return Identity{PodName: fields[1], ContainerName: parts[n-2], ContainerType: "container"}, true
		}
	}

	if len(parts) >= 2 && parts[len(parts)-2] == "containers" {
		base := strings.TrimSuffix(path.Base(parts[len(parts)-1]), ".log")
		fields := strings.SplitN(base, "_", 3)
		if len(fields) != 3 {
			return Identity{}, false
		}
		container := fields[2]
		if dash := strings.LastIndexByte(container, '-'); dash > 0 && isHex(container[dash+1:]) {
			container = container[:dash]
		}
		return Identity{PodName: fields[0], ContainerName: container, ContainerType: "container"}, true
	}
	return Identity{}, false
}

func isHex(s string) bool {
	if len(s) < 12 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
