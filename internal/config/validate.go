package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mistio/mist/internal/errors"
)

// MaxJSLogLevel is the most verbose UI log level.
const MaxJSLogLevel = 5

// ValidationOption controls validation behavior.
type ValidationOption func(*validationContext)

type validationContext struct {
	backendValidator func(Backend) error
}

// WithBackendValidator adds a provider-aware check run against every backend.
// The settings store itself only knows the field layout, not which fields a
// provider family requires.
func WithBackendValidator(fn func(Backend) error) ValidationOption {
	return func(c *validationContext) {
		c.backendValidator = fn
	}
}

// Validate checks the settings for errors and returns structured error messages.
func Validate(s *Settings, opts ...ValidationOption) error {
	ctx := &validationContext{}
	for _, opt := range opts {
		opt(ctx)
	}

	if err := validateCoreURI(s.CoreURI); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			"Set core_uri to an absolute http(s) URL, e.g. https://mist.io")
	}

	if s.JSLogLevel < 0 || s.JSLogLevel > MaxJSLogLevel {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("js_log_level %d is out of range", s.JSLogLevel),
			fmt.Sprintf("Use a value between 0 and %d.", MaxJSLogLevel))
	}

	for name, kp := range s.Keypairs {
		if strings.TrimSpace(kp.Public) == "" && strings.TrimSpace(kp.Private) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Keypair '%s' has no key material", name),
				"Remove it or add its public/private keys.")
		}
	}

	for i, b := range s.Backends {
		if strings.TrimSpace(b.Provider) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Backend %d (%s) has no provider", i, b.Label()),
				"Set 'provider' for every entry under 'backends'.")
		}
		if ctx.backendValidator != nil {
			if err := ctx.backendValidator(b); err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					fmt.Sprintf("Backend %d (%s) is misconfigured", i, b.Label()),
					"Check the 'backends' section in settings.yaml.")
			}
		}
	}

	return nil
}

func validateCoreURI(raw string) error {
	if raw == "" {
		return fmt.Errorf("core_uri is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("core_uri %q is not a valid URL: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("core_uri %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("core_uri %q has no host", raw)
	}
	return nil
}
