package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/audit"
	"github.com/MrEthical07/authcore/mfa"
	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/store"
)

// MFAEnrollment is shown to the user once. The backup codes are stored
// normalized and cannot be read back.
type MFAEnrollment struct {
	Secret      string
	URI         string
	BackupCodes []string
}

// EnableMFA enrolls userID with a fresh TOTP secret and backup codes.
func (e *Engine) EnableMFA(ctx context.Context, userID string) (*MFAEnrollment, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.clock.Now()

	unlock := e.lockUser(userID)
	defer unlock()

	user, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c := mfa.CanEnable(user); !c.OK {
		return nil, deny(c.Reason)
	}

	enr, err := e.enroller.Generate(user.Email)
	if err != nil {
		return nil, unavailable(ErrTOTPUnavailable, err)
	}
	codes, err := mfa.GenerateBackupCodes(e.config.MFA.BackupCodeCount, e.config.MFA.BackupCodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate backup codes: %w", err)
	}

	updated, err := e.updateUser(ctx, userID, func(cur model.User) (model.UserDelta, error) {
		if c := mfa.CanEnable(&cur); !c.OK {
			return model.UserDelta{}, deny(c.Reason)
		}
		return mfa.PrepareEnable(cur, enr.Secret, codes, now), nil
	})
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricMFAEnabled)
	e.emit(ctx, audit.MFAEnabled(audit.SelfMeta(*updated, requestFromContext(ctx), now), len(codes)))
	return &MFAEnrollment{Secret: enr.Secret, URI: enr.URI, BackupCodes: codes}, nil
}

// DisableMFA clears the secret and every backup code of userID.
func (e *Engine) DisableMFA(ctx context.Context, userID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	now := e.clock.Now()

	unlock := e.lockUser(userID)
	defer unlock()

	updated, err := e.updateUser(ctx, userID, func(cur model.User) (model.UserDelta, error) {
		if c := mfa.CanDisable(&cur); !c.OK {
			return model.UserDelta{}, deny(c.Reason)
		}
		return mfa.PrepareDisable(cur), nil
	})
	if err != nil {
		return err
	}

	e.metricInc(MetricMFADisabled)
	e.emit(ctx, audit.MFADisabled(audit.SelfMeta(*updated, requestFromContext(ctx), now)))
	return nil
}

// RegenerateBackupCodes replaces the backup codes of userID. Codes issued
// earlier stop working, used or not.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.clock.Now()

	unlock := e.lockUser(userID)
	defer unlock()

	codes, err := mfa.GenerateBackupCodes(e.config.MFA.BackupCodeCount, e.config.MFA.BackupCodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate backup codes: %w", err)
	}

	updated, err := e.updateUser(ctx, userID, func(cur model.User) (model.UserDelta, error) {
		if !cur.MFAEnabled {
			return model.UserDelta{}, deny(model.ReasonMFANotEnabled)
		}
		return mfa.PrepareRegenerate(cur, codes), nil
	})
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricBackupCodeRegenerated)
	e.emit(ctx, audit.BackupCodesRegenerated(audit.SelfMeta(*updated, requestFromContext(ctx), now), len(codes)))
	return codes, nil
}

// BackupCodesRemaining reports unused backup codes for userID and whether
// the count has fallen to the regeneration threshold.
func (e *Engine) BackupCodesRemaining(ctx context.Context, userID string) (int, bool, error) {
	if err := e.ready(); err != nil {
		return 0, false, err
	}
	user, err := e.loadUser(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	if user == nil {
		return 0, false, deny(model.ReasonNotFound)
	}
	if !user.MFAEnabled {
		return 0, false, deny(model.ReasonMFANotEnabled)
	}
	return mfa.RemainingBackupCodes(*user), mfa.ShouldRegenerate(*user, e.config.MFA.RegenerateThreshold), nil
}

// updateUser passes denials from fn through unchanged.
func (e *Engine) updateUser(ctx context.Context, userID string, fn store.UserMutator) (*model.User, error) {
	u, err := e.users.Update(ctx, userID, fn)
	if err == nil {
		return u, nil
	}
	var de *DenialError
	switch {
	case errors.As(err, &de):
		return nil, err
	case errors.Is(err, store.ErrNotFound):
		return nil, deny(model.ReasonNotFound)
	}
	return nil, unavailable(ErrStoreUnavailable, err)
}
