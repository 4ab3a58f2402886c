package config

import "time"

const defaultDadataURL = "https://suggestions.dadata.ru/suggestions/api/4_1/rs/suggest/address"

// DadataURL is the address suggestion endpoint used for city lookups.
func DadataURL() string {
	return GetEnv("DADATA_URL", defaultDadataURL)
}

// DadataAPIKey may be empty, in which case city lookups use the fallback list.
func DadataAPIKey() string {
	return GetEnv("DADATA_API_KEY", "")
}

func CityLookupQuery() string {
	return GetEnv("CITY_LOOKUP_QUERY", "Россия")
}

func CityLookupCount() int {
	return parseIntEnv("CITY_LOOKUP_COUNT", 100)
}

// UniversitiesFile optionally points at a YAML city -> universities table.
func UniversitiesFile() string {
	return GetEnv("UNIVERSITIES_FILE", "")
}

// GoogleClientID enables federated sign-in when set.
func GoogleClientID() string {
	return GetEnv("GOOGLE_CLIENT_ID", "")
}

func GoogleCertsURL() string {
	return GetEnv("GOOGLE_CERTS_URL", "https://www.googleapis.com/oauth2/v3/certs")
}

// LoginRedirectDelay is the pause before a password login redirects.
func LoginRedirectDelay() time.Duration {
	return MustParseDuration("LOGIN_REDIRECT_DELAY", "1s")
}

// SignupRedirectDelay is the pause before a password signup redirects.
func SignupRedirectDelay() time.Duration {
	return MustParseDuration("SIGNUP_REDIRECT_DELAY", "1s")
}

// FormTTL bounds how long an abandoned signup form is kept.
func FormTTL() time.Duration {
	return MustParseDuration("FORM_TTL", "30m")
}

// SMTPAddr enables welcome mail when set (host:port).
func SMTPAddr() string {
	return GetEnv("SMTP_ADDR", "")
}

func SMTPUsername() string {
	return GetEnv("SMTP_USERNAME", "")
}

func SMTPPassword() string {
	return GetEnv("SMTP_PASSWORD", "")
}

func MailFrom() string {
	return GetEnv("MAIL_FROM", "noreply@campusconnect.local")
}

func DKIMDomain() string {
	return GetEnv("DKIM_DOMAIN", "")
}

func DKIMSelector() string {
	return GetEnv("DKIM_SELECTOR", "campusconnect")
}

// DKIMKeyFile is a PEM encoded PKCS#8 private key; signing is skipped when empty.
func DKIMKeyFile() string {
	return GetEnv("DKIM_KEY_FILE", "")
}

// NATSURL enables cross-instance document change fan-out when set.
func NATSURL() string {
	return GetEnv("NATS_URL", "")
}
