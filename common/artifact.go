package common

import "fmt"

type ArtifactKind string

const (
	ArtifactUnknown             ArtifactKind = ""
	ArtifactPrimaryToken        ArtifactKind = "primary_token"
	ArtifactSecondaryToken      ArtifactKind = "secondary_token"
	ArtifactClientAssertion     ArtifactKind = "client_assertion"
	ArtifactClientAssertionType ArtifactKind = "client_assertion_type"
)

type Artifact struct {
	Kind      ArtifactKind
	MediaType string // e.g. "application/jwt", "application/x-www-form-urlencoded"
	Bytes     []byte
	Metadata  map[string]any
}

// String returns the artifact payload, which for tokens is the compact
// form ready to follow "Bearer ".
func (a Artifact) String() string { return string(a.Bytes) }

func ArtifactWithKind(artifacts []Artifact, kind ArtifactKind) (Artifact, error) {
	for _, artifact := range artifacts {
		if artifact.Kind == kind {
			return artifact, nil
		}
	}
	return Artifact{}, fmt.Errorf("missing artifact %s", kind)
}
