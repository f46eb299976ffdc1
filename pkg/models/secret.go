package models

// SecretVersion is the resolved payload of a secret's latest version.
type SecretVersion struct {
	Name    string // full version resource name
	Version string // trailing version id, e.g. "3"
	Payload string
}

// SecretCreated names the resources produced by creating a secret.
type SecretCreated struct {
	SecretName  string
	VersionName string
}
