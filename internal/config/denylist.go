package config

// DefaultDenylistDomains returns domains whose history entries are dropped
// from read results when filter.use_default_denylist is set. A listed domain
// also covers its subdomains.
func DefaultDenylistDomains() []string {
	return []string{
		// Banking & payments
		"chase.com",
		"bankofamerica.com",
		"wellsfargo.com",
		"citi.com",
		"capitalone.com",
		"schwab.com",
		"fidelity.com",
		"vanguard.com",
		"paypal.com",
		"venmo.com",

		// Password managers
		"1password.com",
		"lastpass.com",
		"bitwarden.com",
		"dashlane.com",

		// Sign-in pages
		"accounts.google.com",
		"login.microsoftonline.com",
		"login.live.com",
		"auth0.com",
		"okta.com",

		// Health & government
		"mychart.com",
		"healthcare.gov",
		"irs.gov",
		"login.gov",
		"id.me",
	}
}
