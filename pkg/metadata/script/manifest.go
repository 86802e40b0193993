package script

import (
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// SupportedManifestVersions lists the manifest versions this release can load.
var SupportedManifestVersions = []int{1}

type Manifest struct {
	ManifestVersion int         `json:"manifestVersion"`
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Version         string      `json:"version"`
	Description     string      `json:"description"`
	Author          string      `json:"author"`
	Homepage        string      `json:"homepage"`
	HTTPAccess      *HTTPAccess `json:"httpAccess"`
}

// HTTPAccess lists the domains a script may reach with kino.http.fetch.
type HTTPAccess struct {
	Description string   `json:"description"`
	Domains     []string `json:"domains"`
}

// ParseManifest parses and validates a manifest.json byte slice.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest JSON")
	}

	if m.ManifestVersion == 0 {
		return nil, errors.New("manifest: manifestVersion is required")
	}

	supported := false
	for _, v := range SupportedManifestVersions {
		if m.ManifestVersion == v {
			supported = true
			break
		}
	}
	if !supported {
		return nil, errors.Errorf("manifest: unsupported manifestVersion %d (supported: %v)", m.ManifestVersion, SupportedManifestVersions)
	}

	if m.ID == "" {
		return nil, errors.New("manifest: id is required")
	}
	if m.Name == "" {
		return nil, errors.New("manifest: name is required")
	}
	if m.Version == "" {
		return nil, errors.New("manifest: version is required")
	}

	return &m, nil
}
