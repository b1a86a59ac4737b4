package service

import (
	"strings"

	"github.com/gosimple/slug"
)

// OrgUsernameFromEmail derives the tenant-local username for a brand-new
// owner. When the email's domain matches the organization's auto-accept
// domain, the domain is stripped and the local part becomes the username;
// otherwise the first domain label is kept as a disambiguating suffix.
func OrgUsernameFromEmail(email, autoAcceptEmailDomain string) string {
	local, emailDomain, _ := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	if emailDomain == strings.ToLower(strings.TrimSpace(autoAcceptEmailDomain)) {
		return slug.Make(local)
	}
	label, _, _ := strings.Cut(emailDomain, ".")
	if label == "" {
		return slug.Make(local)
	}
	return slug.Make(local + "-" + label)
}

// EmailDomain returns the substring after the last '@' in email.
func EmailDomain(email string) string {
	trimmed := strings.TrimSpace(email)
	idx := strings.LastIndex(trimmed, "@")
	if idx < 0 || idx == len(trimmed)-1 {
		return ""
	}
	return strings.ToLower(trimmed[idx+1:])
}
