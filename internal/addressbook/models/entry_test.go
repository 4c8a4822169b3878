package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/infinex-exchange/wallet.addressbook/pkg/domain-errors"
)

func TestValidateName(t *testing.T) {
	valid := []string{
		"Alice",
		"Cold Wallet 2",
		"a",
		strings.Repeat("x", 255),
	}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), "expected %q to be accepted", name)
	}

	invalid := []string{
		"",
		strings.Repeat("x", 256),
		"emoji ❤",
		"tab\tname",
		"dash-name",
		"dot.name",
	}
	for _, name := range invalid {
		err := ValidateName(name)
		require.Error(t, err, "expected %q to be rejected", name)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	}
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID(1))
	assert.NoError(t, ValidateID(1<<40))
	assert.Error(t, ValidateID(0))
	assert.Error(t, ValidateID(-3))
}

func TestMemoEqual(t *testing.T) {
	empty := ""
	tag := "100234"
	sameTag := "100234"

	assert.True(t, MemoEqual(nil, nil))
	assert.True(t, MemoEqual(&tag, &sameTag))
	assert.False(t, MemoEqual(nil, &empty), "NULL memo must differ from empty string")
	assert.False(t, MemoEqual(&empty, nil))
	assert.False(t, MemoEqual(&tag, &empty))
}

func TestCloneDoesNotAliasMemo(t *testing.T) {
	memo := "original"
	e := &AddressBookEntry{ID: 1, Name: "A", Memo: &memo}

	c := e.Clone()
	*c.Memo = "mutated"

	assert.Equal(t, "original", *e.Memo)
}
