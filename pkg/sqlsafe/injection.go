package sqlsafe

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a parameter value that failed the
// libinjection screen.
type InjectionCheckResult struct {
	Fingerprint string // libinjection fingerprint of the detected pattern
	ParamName   string // name of the parameter that failed the check
	ParamValue  any    // the value that was checked
}

// CheckParameterForInjection screens a parameter value for SQL injection
// patterns. Only string values are checked; numbers, booleans and other
// types cannot carry injection payloads and return nil.
// Returns nil if no injection is detected.
func CheckParameterForInjection(paramName string, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &InjectionCheckResult{
			Fingerprint: string(fingerprint),
			ParamName:   paramName,
			ParamValue:  value,
		}
	}

	return nil
}

// CheckAllParameters screens every value in params, returning one result per
// offending parameter. An empty slice means all values are clean.
func CheckAllParameters(params map[string]any) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for name, value := range params {
		if result := CheckParameterForInjection(name, value); result != nil {
			results = append(results, result)
		}
	}
	return results
}
