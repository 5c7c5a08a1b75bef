package dirauth

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// envConfig maps the recognized deployment option names onto Config.
// Durations use Go duration syntax ("1h", "300s").
type envConfig struct {
	FailedLoginAttemptWindow       time.Duration `env:"FAILED_LOGIN_ATTEMPT_WINDOW, default=1h"`
	MaxFailedLoginAttempts         int           `env:"MAX_FAILED_LOGIN_ATTEMPTS, default=15"`
	TwoFactorEnabled               bool          `env:"TWO_FACTOR_ENABLED, default=false"`
	TwoFactorAuthCodeValidDuration time.Duration `env:"TWO_FACTOR_AUTH_CODE_VALID_DURATION, default=5m"`
	TwoFactorSrcPhoneNumber        string        `env:"TWO_FACTOR_SRC_PHONE_NUMBER"`
	TwoFactorPlivoAuthID           string        `env:"TWO_FACTOR_PLIVO_AUTH_ID"`
	TwoFactorPlivoAuthToken        string        `env:"TWO_FACTOR_PLIVO_AUTH_TOKEN"`
}

// ConfigFromEnv returns the default configuration overlaid with the
// recognized environment options.
func ConfigFromEnv(ctx context.Context) (Config, error) {
	var env envConfig
	if err := envconfig.Process(ctx, &env); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	cfg.Lockout.Window = env.FailedLoginAttemptWindow
	cfg.Lockout.MaxAttempts = env.MaxFailedLoginAttempts
	cfg.TwoFactor.Enabled = env.TwoFactorEnabled
	cfg.TwoFactor.ValidDuration = env.TwoFactorAuthCodeValidDuration
	cfg.TwoFactor.SrcPhoneNumber = env.TwoFactorSrcPhoneNumber
	cfg.TwoFactor.PlivoAuthID = env.TwoFactorPlivoAuthID
	cfg.TwoFactor.PlivoAuthToken = env.TwoFactorPlivoAuthToken

	return cfg, nil
}
