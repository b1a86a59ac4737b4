package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// OnboardingPolicy holds operator-tunable membership onboarding rules.
type OnboardingPolicy struct {
	// ReservedUsernames can never be claimed inside any organization.
	ReservedUsernames []string `mapstructure:"reservedUsernames"`
	DefaultLocale     string   `mapstructure:"defaultLocale"`
	// InviteRate / InviteBurst feed the invite endpoint's token bucket.
	InviteRate  float64 `mapstructure:"inviteRate"`
	InviteBurst int     `mapstructure:"inviteBurst"`
}

func DefaultOnboardingPolicy() OnboardingPolicy {
	return OnboardingPolicy{
		ReservedUsernames: []string{"admin", "owner", "root", "support", "system"},
		DefaultLocale:     "en",
		InviteRate:        5,
		InviteBurst:       20,
	}
}

// IsReservedUsername reports whether the username is blocked by policy.
func (p OnboardingPolicy) IsReservedUsername(username string) bool {
	needle := strings.ToLower(strings.TrimSpace(username))
	for _, reserved := range p.ReservedUsernames {
		if strings.ToLower(reserved) == needle {
			return true
		}
	}
	return false
}

type PolicyHolder struct {
	current atomic.Value // holds OnboardingPolicy
}

// NewStaticPolicyHolder wraps a fixed policy, used by tests and seeding.
func NewStaticPolicyHolder(policy OnboardingPolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("onboarding")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/orgforge/config")
	v.AddConfigPath("/etc/orgforge")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ORGFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultOnboardingPolicy()
		v.SetDefault("onboarding.reservedUsernames", defaults.ReservedUsernames)
		v.SetDefault("onboarding.defaultLocale", defaults.DefaultLocale)
		v.SetDefault("onboarding.inviteRate", defaults.InviteRate)
		v.SetDefault("onboarding.inviteBurst", defaults.InviteBurst)
	}

	var policy OnboardingPolicy
	if err := v.UnmarshalKey("onboarding", &policy); err != nil {
		return nil, err
	}
	if err := validateOnboardingPolicy(policy); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated OnboardingPolicy
		if err := v.UnmarshalKey("onboarding", &updated); err != nil {
			log.Printf("[onboarding-policy] reload failed: %v", err)
			return
		}
		if err := validateOnboardingPolicy(updated); err != nil {
			log.Printf("[onboarding-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[onboarding-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PolicyHolder) Get() OnboardingPolicy {
	return h.current.Load().(OnboardingPolicy)
}

func validateOnboardingPolicy(policy OnboardingPolicy) error {
	if strings.TrimSpace(policy.DefaultLocale) == "" {
		return errors.New("onboarding.defaultLocale cannot be empty")
	}
	if policy.InviteRate <= 0 {
		return errors.New("onboarding.inviteRate must be positive")
	}
	if policy.InviteBurst <= 0 {
		return errors.New("onboarding.inviteBurst must be positive")
	}
	return nil
}
