package tracker

import "strings"

// sensitiveSubstrings is the denylist applied to raw field names before
// any alias grouping. The match is a lowercased substring check per field,
// so "card_number" and "creditCard" are both excluded. This is the
// superset of the denylists the deployed snippet variants carried.
var sensitiveSubstrings = []string{
	"password", "pass", "pwd", "credit", "card", "cvv", "ssn", "social",
}

// fieldGroup declares one semantic form field: the recognized aliases in
// priority order and the canonical output keys every match populates. The
// alias rules are data; normalizeFields is the only consumer.
type fieldGroup struct {
	name    string
	aliases []string
	outputs []string
}

var fieldGroups = []fieldGroup{
	{"first name", []string{"firstName", "first_name", "firstname", "fname"}, []string{"firstName", "first_name"}},
	{"last name", []string{"lastName", "last_name", "lastname", "lname"}, []string{"lastName", "last_name"}},
	{"full name", []string{"full_name", "fullName", "name"}, []string{"full_name", "name"}},
	{"email", []string{"email", "lead_email", "email_id", "email_address", "emailAddress"}, []string{"email"}},
	{"phone", []string{"phone", "mobile_no", "phone_number", "phoneNumber", "mobile", "tel"}, []string{"phone", "mobile_no"}},
	{"company", []string{"company", "company_name", "companyName", "organization"}, []string{"company"}},
	{"country", []string{"country", "country_name"}, []string{"country"}},
	{"message", []string{"message", "comments", "comment", "inquiry", "description"}, []string{"message"}},
	{"job title", []string{"job_title", "jobTitle", "designation"}, []string{"job_title"}},
	{"industry", []string{"industry"}, []string{"industry"}},
	{"website", []string{"website", "website_url", "websiteUrl"}, []string{"website"}},
	{"address region", []string{"state", "region", "province"}, []string{"state"}},
	{"city", []string{"city", "town"}, []string{"city"}},
	{"postal code", []string{"postal_code", "postalCode", "zip", "zip_code", "zipcode"}, []string{"postal_code", "zip"}},
	{"gender", []string{"gender", "sex"}, []string{"gender"}},
	{"birth date", []string{"date_of_birth", "dob", "birth_date", "birthdate"}, []string{"date_of_birth"}},
}

// ExtendSensitiveDenylist adds deployment-specific substrings to the
// denylist. Called once at startup, before any signal is processed.
func ExtendSensitiveDenylist(substrings []string) {
	for _, s := range substrings {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		sensitiveSubstrings = append(sensitiveSubstrings, s)
	}
}

// IsSensitiveField reports whether a raw field name matches the
// sensitive-data denylist.
func IsSensitiveField(name string) bool {
	lowered := strings.ToLower(name)
	for _, substr := range sensitiveSubstrings {
		if strings.Contains(lowered, substr) {
			return true
		}
	}
	return false
}

// NormalizeFields maps raw form fields onto the canonical schema. For each
// semantic group whose aliases carry a non-empty value, every canonical
// output key receives the first matching value in alias-priority order.
// Groups absent from the input are omitted; there is no defaulting to
// empty. Sensitive fields are dropped before grouping and never reach the
// output. Clean fields that belong to no group pass through unchanged.
func NormalizeFields(raw map[string]string) map[string]string {
	clean := make(map[string]string, len(raw))
	for key, value := range raw {
		if IsSensitiveField(key) {
			continue
		}
		clean[key] = value
	}

	out := make(map[string]string, len(clean))
	grouped := make(map[string]bool)

	for _, group := range fieldGroups {
		value := ""
		for _, alias := range group.aliases {
			v, ok := clean[alias]
			if !ok {
				continue
			}
			grouped[alias] = true
			if value == "" {
				value = strings.TrimSpace(v)
			}
		}
		if value == "" {
			continue
		}
		for _, outKey := range group.outputs {
			out[outKey] = value
		}
	}

	for key, value := range clean {
		if grouped[key] {
			continue
		}
		if _, exists := out[key]; exists {
			continue
		}
		out[key] = value
	}

	return out
}

// countSensitiveFields reports how many raw fields the denylist excludes,
// for metrics only.
func countSensitiveFields(raw map[string]string) int {
	n := 0
	for key := range raw {
		if IsSensitiveField(key) {
			n++
		}
	}
	return n
}
