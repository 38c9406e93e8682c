package types

import "context"

// Feature is a name of a gated feature
type Feature string

const (
	// FeatureReleaseEmails gates deploy/release notification emails
	FeatureReleaseEmails Feature = "workflow:release-emails"
)

// FeatureGate reports whether a feature is enabled for the organization
type FeatureGate func(ctx context.Context, feature Feature, orgID OrganizationID) bool

// EnabledFeatures returns a FeatureGate that enables the listed features for
// every organization.
func EnabledFeatures(features ...Feature) FeatureGate {
	enabled := make(map[Feature]struct{}, len(features))
	for _, f := range features {
		enabled[f] = struct{}{}
	}
	return func(_ context.Context, feature Feature, _ OrganizationID) bool {
		_, ok := enabled[feature]
		return ok
	}
}
