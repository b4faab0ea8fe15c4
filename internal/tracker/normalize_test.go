package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeFieldsAliasMerge(t *testing.T) {
	out := NormalizeFields(map[string]string{"first_name": "Jo"})

	require.Equal(t, "Jo", out["firstName"])
	require.Equal(t, "Jo", out["first_name"])
}

func TestNormalizeFieldsAliasPriorityOrder(t *testing.T) {
	// firstName is the highest-priority alias in its group and wins even
	// when a lower-priority alias is also present.
	out := NormalizeFields(map[string]string{
		"firstname": "lower",
		"firstName": "upper",
	})
	require.Equal(t, "upper", out["firstName"])
	require.Equal(t, "upper", out["first_name"])
}

func TestNormalizeFieldsOmitsAbsentGroups(t *testing.T) {
	out := NormalizeFields(map[string]string{"email": "jo@example.com"})

	require.Equal(t, "jo@example.com", out["email"])
	_, hasPhone := out["phone"]
	require.False(t, hasPhone, "absent groups must not default to empty")
}

func TestNormalizeFieldsDropsSensitiveFields(t *testing.T) {
	out := NormalizeFields(map[string]string{
		"username":    "a",
		"password":    "b",
		"card_number": "c",
	})

	require.Equal(t, "a", out["username"])
	_, hasPassword := out["password"]
	require.False(t, hasPassword)
	_, hasCard := out["card_number"]
	require.False(t, hasCard)
}

func TestNormalizeFieldsDenylistIsPerField(t *testing.T) {
	// A sensitive alias of a recognized group must not leak through the
	// group merge: the filter runs before grouping, per raw field.
	out := NormalizeFields(map[string]string{
		"passcode_email": "x", // matches "pass", dropped
		"email":          "jo@example.com",
	})
	require.Equal(t, "jo@example.com", out["email"])
	for key := range out {
		require.False(t, IsSensitiveField(key), "sensitive key %q leaked", key)
	}
}

func TestNormalizeFieldsPassThroughUnrecognized(t *testing.T) {
	out := NormalizeFields(map[string]string{"favorite_color": "teal"})
	require.Equal(t, "teal", out["favorite_color"])
}

func TestNormalizeFieldsSkipsEmptyAliases(t *testing.T) {
	out := NormalizeFields(map[string]string{
		"firstName": "  ",
		"fname":     "Jo",
	})
	require.Equal(t, "Jo", out["first_name"])
}

func TestIsSensitiveField(t *testing.T) {
	sensitive := []string{"password", "Password2", "user_pwd", "creditCard", "card-number", "cvv", "ssn_last4", "social_security", "bypass"}
	for _, name := range sensitive {
		require.True(t, IsSensitiveField(name), name)
	}
	clean := []string{"username", "email", "first_name", "company"}
	for _, name := range clean {
		require.False(t, IsSensitiveField(name), name)
	}
}
