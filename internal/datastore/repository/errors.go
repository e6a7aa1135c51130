package repository

import "errors"

// Sentinel errors returned by the repositories. Callers match them with
// errors.Is rather than inspecting driver errors.
var (
	ErrAlertNotFound       = errors.New("alert not found")
	ErrAlertRuleNotFound   = errors.New("alert rule not found")
	ErrPreferenceNotFound  = errors.New("alert preference not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrCultureNotFound     = errors.New("culture not found")
	ErrCropProfileNotFound = errors.New("crop profile not found")
)
