// Package internaldefs holds the shared metric definitions used by
// exporters. It exists so exposition names and help strings stay identical
// across export formats.
package internaldefs

import authcore "github.com/rvasily/authcore"

// CounterDef binds a counter ID to its exposition name and help text.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every engine counter in a stable exposition order.
var CounterDefs = []CounterDef{
	{authcore.MetricTokenIssued, prefixed(authcore.MetricTokenIssued), "Session tokens signed."},
	{authcore.MetricTokenRejected, prefixed(authcore.MetricTokenRejected), "Tokens that failed signature or claim verification."},
	{authcore.MetricStepUpIssued, prefixed(authcore.MetricStepUpIssued), "Step-up tokens signed after second-factor verification."},
	{authcore.MetricSessionCreated, prefixed(authcore.MetricSessionCreated), "Login sessions established."},
	{authcore.MetricSessionRevoked, prefixed(authcore.MetricSessionRevoked), "Single sessions revoked."},
	{authcore.MetricSessionRevokedAll, prefixed(authcore.MetricSessionRevokedAll), "Revoke-all operations across a subject's sessions."},
	{authcore.MetricVerifyRevoked, prefixed(authcore.MetricVerifyRevoked), "Verifications rejected because the session was revoked."},
	{authcore.MetricOTPProvisioned, prefixed(authcore.MetricOTPProvisioned), "OTP secrets provisioned."},
	{authcore.MetricOTPValidated, prefixed(authcore.MetricOTPValidated), "One-time codes accepted."},
	{authcore.MetricOTPRejected, prefixed(authcore.MetricOTPRejected), "One-time codes rejected as wrong."},
	{authcore.MetricOTPReplayed, prefixed(authcore.MetricOTPReplayed), "One-time codes rejected as replays."},
	{authcore.MetricCredentialVerified, prefixed(authcore.MetricCredentialVerified), "Credentials verified successfully."},
	{authcore.MetricCredentialRejected, prefixed(authcore.MetricCredentialRejected), "Credentials rejected as wrong."},
	{authcore.MetricLockoutTriggered, prefixed(authcore.MetricLockoutTriggered), "Lockout episodes started."},
	{authcore.MetricLockoutBlocked, prefixed(authcore.MetricLockoutBlocked), "Attempts blocked by an active lockout."},
	{authcore.MetricThrottleDelayed, prefixed(authcore.MetricThrottleDelayed), "Requests served with a proportional delay."},
	{authcore.MetricThrottleRejected, prefixed(authcore.MetricThrottleRejected), "Requests rejected over the rate ceiling."},
	{authcore.MetricResetRequested, prefixed(authcore.MetricResetRequested), "Credential resets requested."},
	{authcore.MetricResetCompleted, prefixed(authcore.MetricResetCompleted), "Credential resets completed."},
	{authcore.MetricResetRejected, prefixed(authcore.MetricResetRejected), "Reset requests or redemptions rejected."},
}

func prefixed(id authcore.MetricID) string {
	return "authcore_" + authcore.MetricName(id)
}
