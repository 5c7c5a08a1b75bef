package dirauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/opendirs/dirauth/internal"
	"github.com/opendirs/dirauth/internal/stores"
)

// Human confirmation strings returned by IssueCode. These are shown to
// the end user verbatim, so they name the channel without leaking the
// full destination.
const (
	confirmationPhone = "Authorization code has been sent to the phone number ending with %s."
	confirmationEmail = "Authorization code has been sent. Check your email."
)

// IssueCode generates a fresh two-factor code for the user, stores it
// (superseding any live one), delivers it out of band, and returns a
// confirmation string suitable for display. The phone channel is used
// only when it is fully configured AND the profile carries a verified
// phone number; everything else falls back to email.
//
// Delivery failures are returned to the caller and never retried; the
// stored code simply ages out.
func (e *Engine) IssueCode(ctx context.Context, userID string) (string, error) {
	if e == nil || e.authCodes == nil {
		return "", ErrEngineNotReady
	}

	cfg := e.config.TwoFactor
	if !cfg.Enabled {
		return "", ErrTwoFactorDisabled
	}
	if e.profiles == nil || e.notifier == nil {
		return "", ErrEngineNotReady
	}

	contact, err := e.profiles.GetContact(ctx, userID)
	if err != nil {
		return "", err
	}

	channel, destination := pickChannel(cfg, contact)
	if destination == "" {
		return "", ErrNoContact
	}

	code, err := internal.NewAuthCode(cfg.CodeLength)
	if err != nil {
		return "", err
	}

	record := &stores.AuthCode{
		Code:     code,
		IssuedAt: e.now().Unix(),
	}
	if err := e.authCodes.Save(ctx, userID, record, cfg.ValidDuration); err != nil {
		return "", err
	}

	if err := e.notifier.Send(ctx, channel, destination, code); err != nil {
		return "", err
	}

	e.metricInc(MetricCodeIssued)
	e.emitAudit(ctx, auditEventCodeIssued, true, userID, "", "", nil, func() map[string]string {
		return map[string]string{"channel": string(channel)}
	})

	if channel == ChannelPhone {
		return fmt.Sprintf(confirmationPhone, phoneTail(destination)), nil
	}
	return confirmationEmail, nil
}

// ValidateCode reports whether code matches the user's live two-factor
// code and is still inside its validity window. Validation does not
// consume the code; a superseding IssueCode or TTL expiry retires it.
func (e *Engine) ValidateCode(ctx context.Context, userID, code string) (bool, error) {
	if e == nil || e.authCodes == nil {
		return false, ErrEngineNotReady
	}
	if !e.config.TwoFactor.Enabled {
		return false, ErrTwoFactorDisabled
	}
	if code == "" {
		return false, nil
	}

	record, err := e.authCodes.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, stores.ErrAuthCodeNotFound) {
			return false, nil
		}
		return false, err
	}

	if !codesMatch(record.Code, code) {
		return false, nil
	}
	if e.now().Unix() > record.IssuedAt+int64(e.config.TwoFactor.ValidDuration.Seconds()) {
		return false, nil
	}
	return true, nil
}

// pickChannel chooses the delivery channel for a contact. The phone
// channel requires all three gateway settings plus a verified number.
func pickChannel(cfg TwoFactorConfig, contact Contact) (Channel, string) {
	if cfg.PhoneFactorEnabled() && contact.Phone != "" && contact.PhoneVerified {
		return ChannelPhone, contact.Phone
	}
	if contact.Email != "" {
		return ChannelEmail, contact.Email
	}
	return ChannelEmail, ""
}

// phoneTail returns the last four digits of a phone number, or the whole
// number when it is shorter than that.
func phoneTail(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}

// codesMatch compares codes in time independent of where they differ.
// Length is checked first; unequal lengths can never match.
func codesMatch(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
