package common

type Kind string

const (
	ClientSecret    Kind = "client_secret"
	ClientAssertion Kind = "client_assertion"
	JWT             Kind = "jwt"
	SWT             Kind = "swt"
)

type Credentials interface {
	Kind() Kind
}
