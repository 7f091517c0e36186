package internaldefs

import (
	"github.com/devconnect-io/otpgate"
)

// CounterDef maps an engine counter to its exported name and help text.
type CounterDef struct {
	ID   otpgate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: otpgate.MetricRegistrationBegin, Name: "otpgate_registration_begin_total", Help: "Registration challenges issued."},
	{ID: otpgate.MetricRegistrationSuccess, Name: "otpgate_registration_success_total", Help: "Completed registrations."},
	{ID: otpgate.MetricRegistrationFailure, Name: "otpgate_registration_failure_total", Help: "Failed registration confirmations."},
	{ID: otpgate.MetricRegistrationDuplicate, Name: "otpgate_registration_duplicate_total", Help: "Registrations rejected at finalize as duplicate."},
	{ID: otpgate.MetricLoginOTPIssued, Name: "otpgate_login_otp_issued_total", Help: "Login challenges issued."},
	{ID: otpgate.MetricLoginOTPSuccess, Name: "otpgate_login_otp_success_total", Help: "Confirmed login challenges."},
	{ID: otpgate.MetricLoginOTPFailure, Name: "otpgate_login_otp_failure_total", Help: "Failed login confirmations."},
	{ID: otpgate.MetricLoginOTPAttemptsExceeded, Name: "otpgate_login_otp_attempts_exceeded_total", Help: "Login challenges destroyed by the attempt cap."},
	{ID: otpgate.MetricLoginNotApproved, Name: "otpgate_login_not_approved_total", Help: "Logins rejected by the approval re-check."},
	{ID: otpgate.MetricEmailOTPSent, Name: "otpgate_email_otp_sent_total", Help: "Email-keyed challenges issued."},
	{ID: otpgate.MetricEmailOTPVerified, Name: "otpgate_email_otp_verified_total", Help: "Verified email-keyed challenges."},
	{ID: otpgate.MetricEmailOTPFailure, Name: "otpgate_email_otp_failure_total", Help: "Failed email-keyed verifications."},
	{ID: otpgate.MetricEmailOTPAttemptsExceeded, Name: "otpgate_email_otp_attempts_exceeded_total", Help: "Email-keyed challenges destroyed by the attempt cap."},
	{ID: otpgate.MetricNotifyDispatched, Name: "otpgate_notify_dispatched_total", Help: "Codes handed to the notifier."},
	{ID: otpgate.MetricNotifyFailed, Name: "otpgate_notify_failed_total", Help: "Notifier delivery failures."},
}
