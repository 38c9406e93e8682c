package config

import (
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/relnotify/pkg/domain/interfaces"
	"github.com/m-mizutani/relnotify/pkg/domain/types"
	"github.com/m-mizutani/relnotify/pkg/usecase"
)

// Notification holds release email composition settings
type Notification struct {
	BaseURL             string
	From                string
	SubjectPrefix       string
	Features            []string
	DisabledFeatures    []string
	NotifyWithoutAccess bool
}

// Flags returns CLI flags for release email composition
func (c *Notification) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "URL prefix of release links",
			Value:       "http://localhost:8080",
			Destination: &c.BaseURL,
			Sources:     cli.EnvVars("RELNOTIFY_BASE_URL"),
		},
		&cli.StringFlag{
			Name:        "mail-from",
			Usage:       "Sender address of release emails",
			Value:       "noreply@localhost",
			Destination: &c.From,
			Sources:     cli.EnvVars("RELNOTIFY_MAIL_FROM"),
		},
		&cli.StringFlag{
			Name:        "subject-prefix",
			Usage:       "Prefix of release email subjects",
			Value:       "[relnotify] ",
			Destination: &c.SubjectPrefix,
			Sources:     cli.EnvVars("RELNOTIFY_SUBJECT_PREFIX"),
		},
		&cli.StringSliceFlag{
			Name:        "feature",
			Usage:       "Enabled features",
			Value:       []string{string(types.FeatureReleaseEmails)},
			Destination: &c.Features,
			Sources:     cli.EnvVars("RELNOTIFY_FEATURES"),
		},
		&cli.StringSliceFlag{
			Name:        "disable-feature",
			Usage:       "Disabled features, taking precedence over --feature",
			Destination: &c.DisabledFeatures,
			Sources:     cli.EnvVars("RELNOTIFY_DISABLED_FEATURES"),
		},
		&cli.BoolFlag{
			Name:        "notify-without-project-access",
			Usage:       "Notify committers even if they have no team access to any release project",
			Destination: &c.NotifyWithoutAccess,
			Sources:     cli.EnvVars("RELNOTIFY_NOTIFY_WITHOUT_PROJECT_ACCESS"),
		},
	}
}

// FeatureGate returns the gate built from enabled and disabled features
func (c *Notification) FeatureGate() types.FeatureGate {
	disabled := make(map[string]bool, len(c.DisabledFeatures))
	for _, f := range c.DisabledFeatures {
		disabled[f] = true
	}

	var features []types.Feature
	for _, f := range c.Features {
		if !disabled[f] {
			features = append(features, types.Feature(f))
		}
	}
	return types.EnabledFeatures(features...)
}

// NewReleaseNotifier creates the release notification composer
func (c *Notification) NewReleaseNotifier(repo interfaces.Repository, queue interfaces.MailQueue) (*usecase.ReleaseNotifier, error) {
	return usecase.NewReleaseNotifier(repo, queue,
		usecase.WithBaseURL(c.BaseURL),
		usecase.WithFrom(c.From),
		usecase.WithSubjectPrefix(c.SubjectPrefix),
		usecase.WithFeatureGate(c.FeatureGate()),
		usecase.WithProjectAccessFilter(!c.NotifyWithoutAccess),
	)
}
