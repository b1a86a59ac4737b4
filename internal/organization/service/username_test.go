package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrgUsernameFromEmail(t *testing.T) {
	cases := []struct {
		name       string
		email      string
		autoAccept string
		want       string
	}{
		{"matching domain strips it", "jane@acme.com", "acme.com", "jane"},
		{"matching domain is case insensitive", "Jane@ACME.com", "acme.com", "jane"},
		{"foreign domain keeps first label", "jane@gmail.com", "acme.com", "jane-gmail"},
		{"no auto accept domain keeps first label", "jane@acme.com", "", "jane-acme"},
		{"local part is slugified", "jane.doe+x@acme.com", "acme.com", "jane-doe-x"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, OrgUsernameFromEmail(tc.email, tc.autoAccept))
		})
	}
}

func TestEmailDomain(t *testing.T) {
	assert.Equal(t, "acme.com", EmailDomain("jane@acme.com"))
	assert.Equal(t, "acme.com", EmailDomain("  jane@ACME.com  "))
	assert.Equal(t, "b.com", EmailDomain("weird@a.com@b.com"))
	assert.Equal(t, "", EmailDomain("no-at-sign"))
	assert.Equal(t, "", EmailDomain("trailing@"))
}
