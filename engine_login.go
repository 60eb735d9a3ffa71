package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/audit"
	"github.com/MrEthical07/authcore/internal/challenge"
	"github.com/MrEthical07/authcore/lockout"
	"github.com/MrEthical07/authcore/login"
	"github.com/MrEthical07/authcore/mfa"
	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/risk"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/store"
	"go.uber.org/zap"
)

// LoginRequest is one credential submission. MFACode may be supplied up
// front; otherwise an MFA-enabled account gets a pending challenge.
type LoginRequest struct {
	Email    string
	Password string
	MFACode  string
	TenantID string
}

// LoginResult is returned for completed logins and for logins waiting on
// a second factor (MFARequired set, Session nil).
type LoginResult struct {
	UserID  string
	Session *model.Session
	Token   string

	MFARequired        bool
	ChallengeID        string
	ChallengeExpiresAt time.Time

	Risk              *risk.Analysis
	StepUpRecommended bool

	UsedBackupCode              bool
	BackupCodesRemaining        int
	ShouldRegenerateBackupCodes bool
}

const (
	mfaMethodTOTP   = "totp"
	mfaMethodBackup = "backup_code"
)

// Login authenticates req. Client IP and user agent are read from ctx
// (see [WithClientIP], [WithUserAgent]).
//
// Denials are *DenialError values; unknown accounts, wrong passwords and
// deleted accounts all report invalid_credentials.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.clock.Now()
	rc := requestFromContext(ctx)
	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = tenantIDFromContext(ctx)
	}

	found, err := e.users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, unavailable(ErrStoreUnavailable, err)
	}
	if found == nil {
		e.verifyDecoy(req.Password)
		return nil, e.rejectUnknown(ctx, req.Email, rc, now)
	}

	unlock := e.lockUser(found.ID)
	defer unlock()

	user, err := e.loadUser(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		e.verifyDecoy(req.Password)
		return nil, e.rejectUnknown(ctx, req.Email, rc, now)
	}

	// Locked and disabled accounts are refused before any hashing.
	var passwordValid bool
	if adm := lockout.Admit(user, now); adm.Allowed {
		passwordValid, err = e.passwords.Verify(req.Password, user.PasswordHash)
		if err != nil {
			return nil, unavailable(ErrHasherUnavailable, err)
		}
	}

	recent, err := e.sessions.ListByUser(ctx, user.ID)
	if err != nil {
		e.logger.Warn("session history unavailable for risk analysis",
			zap.String("user_id", user.ID), zap.Error(err))
	}

	in := login.Input{
		PasswordValid:  passwordValid,
		MFACode:        req.MFACode,
		Request:        rc,
		RecentSessions: recent,
	}
	d, updated, err := e.persistDecision(ctx, user.ID, func(cur model.User) login.Decision {
		in.User = &cur
		return login.Decide(in, e.policy, now)
	})
	if err != nil {
		return nil, err
	}

	switch d.Outcome {
	case login.Allowed:
		return e.completeLogin(ctx, *updated, tenantID, rc, d.Risk, d.StepUpRecommended, false, now, nil)
	case login.MFARequired:
		return e.startChallenge(ctx, *updated, tenantID, rc, d, now)
	case login.MFAPending:
		return e.resolveInline(ctx, *updated, tenantID, rc, req.MFACode, d, now)
	default:
		return nil, e.denyLogin(ctx, *updated, rc, d, now)
	}
}

// ConfirmMFA completes a login that returned MFARequired. The code may be
// a TOTP code or an unused backup code. A wrong code counts as a failed
// login and as an attempt against the challenge.
func (e *Engine) ConfirmMFA(ctx context.Context, challengeID, code string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	now := e.clock.Now()

	c, err := e.challenges.Get(ctx, challengeID, now)
	switch {
	case errors.Is(err, challenge.ErrNotFound), errors.Is(err, challenge.ErrExpired):
		return nil, ErrMFAChallengeInvalid
	case err != nil:
		return nil, unavailable(ErrChallengeUnavailable, err)
	}

	unlock := e.lockUser(c.UserID)
	defer unlock()

	user, err := e.loadUser(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.MFAEnabled {
		e.dropChallenge(ctx, challengeID)
		return nil, ErrMFAChallengeInvalid
	}

	rc := model.RequestContext{IP: c.IPAddress, UserAgent: c.UserAgent}
	if adm := lockout.Admit(user, now); !adm.Allowed {
		e.dropChallenge(ctx, challengeID)
		return nil, e.denyLogin(ctx, *user, rc, login.Decision{Reason: adm.Reason, RetryAfter: adm.RetryAfter}, now)
	}

	verified, method, err := e.verifySecondFactor(ctx, *user, code, now)
	if err != nil {
		return nil, err
	}
	if verified {
		removed, err := e.challenges.Delete(ctx, challengeID)
		if err != nil {
			return nil, unavailable(ErrChallengeUnavailable, err)
		}
		if !removed {
			return nil, ErrMFAChallengeInvalid
		}
	}

	r, updated, err := e.persistDecision(ctx, user.ID, func(cur model.User) login.Decision {
		return login.ResolveMFA(cur, verified, e.policy, now)
	})
	if err != nil {
		return nil, err
	}

	if r.Outcome != login.Allowed {
		e.metricInc(MetricMFAFailure)
		exceeded := false
		if r.Locked {
			e.dropChallenge(ctx, challengeID)
		} else {
			exceeded, err = e.challenges.RecordFailure(ctx, challengeID, e.config.MFA.MaxPendingAttempts, now)
			if err != nil && !errors.Is(err, challenge.ErrNotFound) && !errors.Is(err, challenge.ErrExpired) {
				e.logger.Warn("mfa challenge attempt not recorded",
					zap.String("user_id", user.ID), zap.Error(err))
			}
		}
		denial := e.denyLogin(ctx, *updated, rc, r, now)
		if exceeded {
			e.metricInc(MetricMFAAttemptsExceeded)
			return nil, fmt.Errorf("%w: %w", ErrMFAAttemptsExceeded, denial)
		}
		return nil, denial
	}

	e.metricInc(MetricMFASuccess)
	extra := map[string]any{
		"mfa_method":   method,
		"challenge_id": challengeID,
		"risk_score":   int(c.RiskScore),
	}
	return e.completeLogin(ctx, *updated, c.TenantID, rc, nil, false, method == mfaMethodBackup, now, extra)
}

// persistDecision runs decide against the stored snapshot inside the
// repository's atomic update, so a retried transaction decides again on
// fresh data.
func (e *Engine) persistDecision(ctx context.Context, userID string, decide func(model.User) login.Decision) (login.Decision, *model.User, error) {
	var d login.Decision
	u, err := e.users.Update(ctx, userID, func(cur model.User) (model.UserDelta, error) {
		d = decide(cur)
		return d.Delta, nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return d, nil, deny(model.ReasonInvalidCredentials)
		}
		return d, nil, unavailable(ErrStoreUnavailable, err)
	}
	return d, u, nil
}

func (e *Engine) resolveInline(ctx context.Context, user model.User, tenantID string, rc model.RequestContext, code string, d login.Decision, now time.Time) (*LoginResult, error) {
	verified, method, err := e.verifySecondFactor(ctx, user, code, now)
	if err != nil {
		return nil, err
	}

	r, updated, err := e.persistDecision(ctx, user.ID, func(cur model.User) login.Decision {
		return login.ResolveMFA(cur, verified, e.policy, now)
	})
	if err != nil {
		return nil, err
	}
	r.Risk = d.Risk

	if r.Outcome != login.Allowed {
		e.metricInc(MetricMFAFailure)
		return nil, e.denyLogin(ctx, *updated, rc, r, now)
	}
	e.metricInc(MetricMFASuccess)
	return e.completeLogin(ctx, *updated, tenantID, rc, d.Risk, false, method == mfaMethodBackup, now,
		map[string]any{"mfa_method": method})
}

// verifySecondFactor tries TOTP first and then the backup codes. A backup
// code is consumed atomically, so only one concurrent caller can win it.
func (e *Engine) verifySecondFactor(ctx context.Context, user model.User, code string, now time.Time) (bool, string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, "", nil
	}

	if user.MFASecret != "" {
		ok, err := e.totp.Verify(user.MFASecret, code, now)
		if err != nil {
			return false, "", unavailable(ErrTOTPUnavailable, err)
		}
		if ok {
			return true, mfaMethodTOTP, nil
		}
	}

	if !mfa.IsValidBackupCode(code, user) {
		return false, "", nil
	}
	consumed, err := e.users.ConsumeBackupCode(ctx, user.ID, code)
	if err != nil {
		return false, "", unavailable(ErrStoreUnavailable, err)
	}
	if !consumed {
		e.metricInc(MetricBackupCodeFailed)
		return false, "", nil
	}
	return true, mfaMethodBackup, nil
}

func (e *Engine) startChallenge(ctx context.Context, user model.User, tenantID string, rc model.RequestContext, d login.Decision, now time.Time) (*LoginResult, error) {
	id := e.ids.NewID()
	ttl := e.config.MFA.PendingTTL
	expires := now.Add(ttl)

	var score uint16
	if d.Risk != nil && d.Risk.Score > 0 {
		score = uint16(min(d.Risk.Score, 65535))
	}
	c := &challenge.Challenge{
		UserID:    user.ID,
		TenantID:  tenantID,
		IPAddress: rc.IP,
		UserAgent: rc.UserAgent,
		RiskScore: score,
		ExpiresAt: expires.Unix(),
	}
	if err := e.challenges.Save(ctx, id, c, ttl); err != nil {
		return nil, unavailable(ErrChallengeUnavailable, err)
	}

	e.metricInc(MetricMFARequired)
	if d.Risk != nil && d.Risk.RequiresMFA {
		e.metricInc(MetricRiskElevated)
	}
	e.emit(ctx, audit.Login(audit.SelfMeta(user, rc, now), d.Risk, model.ReasonMFARequired,
		map[string]any{"challenge_id": id}))

	return &LoginResult{
		UserID:             user.ID,
		MFARequired:        true,
		ChallengeID:        id,
		ChallengeExpiresAt: expires,
		Risk:               d.Risk,
	}, nil
}

func (e *Engine) completeLogin(ctx context.Context, user model.User, tenantID string, rc model.RequestContext, analysis *risk.Analysis, stepUp, usedBackup bool, now time.Time, extra map[string]any) (*LoginResult, error) {
	sid := e.ids.NewID()
	token, err := e.tokens.Issue(sid, user.ID, tenantID, now)
	if err != nil {
		return nil, unavailable(ErrTokenUnavailable, err)
	}

	s := session.Create(session.CreateInput{
		UserID:    user.ID,
		TenantID:  tenantID,
		IPAddress: rc.IP,
		UserAgent: rc.UserAgent,
	}, now, sid, token, e.config.Session)
	if err := e.sessions.Create(ctx, &s); err != nil {
		return nil, unavailable(ErrStoreUnavailable, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	if stepUp {
		e.metricInc(MetricStepUpRecommended)
	}
	if analysis != nil && analysis.RequiresMFA {
		e.metricInc(MetricRiskElevated)
	}

	md := map[string]any{"session_id": sid}
	for k, v := range extra {
		md[k] = v
	}
	if stepUp {
		md["step_up_recommended"] = true
	}
	meta := audit.SelfMeta(user, rc, now)
	e.emit(ctx, audit.Login(meta, analysis, model.ReasonNone, md))

	res := &LoginResult{
		UserID:            user.ID,
		Session:           &s,
		Token:             token,
		Risk:              analysis,
		StepUpRecommended: stepUp,
		UsedBackupCode:    usedBackup,
	}
	if user.MFAEnabled {
		res.BackupCodesRemaining = mfa.RemainingBackupCodes(user)
		res.ShouldRegenerateBackupCodes = mfa.ShouldRegenerate(user, e.config.MFA.RegenerateThreshold)
	}
	if usedBackup {
		e.metricInc(MetricBackupCodeUsed)
		e.emit(ctx, audit.BackupCodeUsed(meta, res.BackupCodesRemaining))
	}
	return res, nil
}

func (e *Engine) denyLogin(ctx context.Context, user model.User, rc model.RequestContext, d login.Decision, now time.Time) error {
	e.metricInc(MetricLoginFailure)
	if d.Reason == model.ReasonAccountLocked && !d.Locked {
		e.metricInc(MetricLoginLocked)
	}

	meta := audit.SelfMeta(user, rc, now)
	var extra map[string]any
	if d.FailedCount > 0 {
		extra = map[string]any{"failed_login_count": d.FailedCount}
	}
	e.emit(ctx, audit.Login(meta, d.Risk, d.Reason, extra))

	if d.Locked {
		e.metricInc(MetricAccountLocked)
		e.emit(ctx, audit.AccountLocked(meta, now.Add(d.RetryAfter), d.FailedCount))
	}
	if d.ShouldAlert {
		e.metricInc(MetricLockoutAlert)
		e.logger.Warn("repeated login failures",
			zap.String("user_id", user.ID),
			zap.Int("failed_login_count", d.FailedCount),
			zap.Bool("locked", d.Locked))
	}

	reason := d.Reason
	if reason == model.ReasonAccountDeleted {
		reason = model.ReasonInvalidCredentials
	}
	return &DenialError{Reason: reason, RetryAfter: d.RetryAfter}
}

func (e *Engine) verifyDecoy(password string) {
	if e.decoyHash != "" {
		_, _ = e.passwords.Verify(password, e.decoyHash)
	}
}

func (e *Engine) rejectUnknown(ctx context.Context, email string, rc model.RequestContext, now time.Time) error {
	e.metricInc(MetricLoginFailure)
	meta := audit.Meta{Target: audit.Target{Email: email}, Request: rc, At: now}
	e.emit(ctx, audit.Login(meta, nil, model.ReasonInvalidCredentials, nil))
	return deny(model.ReasonInvalidCredentials)
}

func (e *Engine) dropChallenge(ctx context.Context, id string) {
	if _, err := e.challenges.Delete(ctx, id); err != nil {
		e.logger.Warn("mfa challenge not removed", zap.String("challenge_id", id), zap.Error(err))
	}
}
