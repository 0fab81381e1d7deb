package validate_test

import (
	"testing"

	"github.com/kodexlab/kodex/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendlyName(t *testing.T) {
	assert.Equal(t, "Code name", validate.FriendlyName("code_name"))
	assert.Equal(t, "Name", validate.FriendlyName("name"))
}

func TestCheckerAccumulatesIssues(t *testing.T) {
	issues := validate.NewChecker().
		Require("name", "").
		HexColor("color", "not-a-color").
		Result()

	require.Len(t, issues, 2)
	assert.Equal(t, "name", issues[0].Field)
	assert.Equal(t, "color", issues[1].Field)
	assert.True(t, issues.HasErrors())
}

func TestCheckerPassesValidInput(t *testing.T) {
	issues := validate.NewChecker().
		Require("name", "Anxiety").
		MaxLength("name", "Anxiety", 120).
		HexColor("color", "#1F77B4").
		Printable("name", "Anxiety").
		Result()

	assert.Nil(t, issues)
}

func TestPrintableRejectsControlCharacters(t *testing.T) {
	issues := validate.NewChecker().Printable("name", "bad\x00name").Result()
	require.Len(t, issues, 1)
}
