package config

import (
	"encoding/json"
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go-adxlog/internal/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// IngestionMode selects the Kusto client used by a target.
type IngestionMode int

const (
	IngestionQueued IngestionMode = iota
	IngestionStreaming
)

func (m IngestionMode) String() string {
	if m == IngestionStreaming {
		return "streaming"
	}
	return "queued"
}

// AuthMode selects how the Kusto connection authenticates.
type AuthMode int

const (
	AuthUnspecified AuthMode = iota
	AuthAadApplicationKey
	AuthManagedIdentity
	AuthAzCli
	AuthDefaultCredential
)

var authModeNames = map[string]AuthMode{
	"aadapplicationkey":      AuthAadApplicationKey,
	"managedidentity":        AuthManagedIdentity,
	"azcli":                  AuthAzCli,
	"defaultazurecredential": AuthDefaultCredential,
}

// ParseAuthMode looks a mode name up case-insensitively. Unknown names map to
// AuthUnspecified.
func ParseAuthMode(name string) AuthMode {
	return authModeNames[strings.ToLower(strings.TrimSpace(name))]
}

func (m AuthMode) String() string {
	switch m {
	case AuthAadApplicationKey:
		return "AadApplicationKey"
	case AuthManagedIdentity:
		return "ManagedIdentity"
	case AuthAzCli:
		return "AzCli"
	case AuthDefaultCredential:
		return "DefaultAzureCredential"
	default:
		return "Unspecified"
	}
}

// SinkColumnMapping is one entry of the ColumnsMapping JSON array.
type SinkColumnMapping struct {
	ColumnName string `json:"ColumnName"`
	ColumnType string `json:"ColumnType"`
	ValuePath  string `json:"ValuePath"`
}

// TargetProperties holds the raw, unrendered target settings as they come from
// the host configuration.
type TargetProperties struct {
	Database                string
	TableName               string
	IngestionEndpointURI    string
	UseStreamingIngestion   string
	AuthenticationMode      string
	ApplicationClientID     string
	ApplicationKey          string
	Authority               string
	ManagedIdentityClientID string
	FlushImmediately        string
	MappingNameRef          string
	ColumnsMapping          string
}

// Options is the validated, typed form of TargetProperties.
type Options struct {
	Database             string `validate:"required"`
	TableName            string `validate:"required"`
	IngestionEndpointURI string `validate:"required,url"`

	IngestionMode           IngestionMode
	AuthMode                AuthMode
	ApplicationClientID     string
	ApplicationKey          string
	Authority               string
	ManagedIdentityClientID string
	FlushImmediately        bool
	MappingName             string
	ColumnsMapping          []SinkColumnMapping
}

// Bind renders every property once and turns the result into Options. It fails
// fast on the first missing or malformed value.
func (p TargetProperties) Bind() (*Options, error) {
	opts := &Options{
		Database:             render(p.Database),
		TableName:            render(p.TableName),
		IngestionEndpointURI: render(p.IngestionEndpointURI),
	}
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	streaming, err := parseFlag("UseStreamingIngestion", render(p.UseStreamingIngestion))
	if err != nil {
		return nil, err
	}
	if streaming {
		opts.IngestionMode = IngestionStreaming
	}
	if opts.FlushImmediately, err = parseFlag("FlushImmediately", render(p.FlushImmediately)); err != nil {
		return nil, err
	}

	opts.AuthMode = ParseAuthMode(render(p.AuthenticationMode))
	opts.MappingName = render(p.MappingNameRef)

	if raw := render(p.ColumnsMapping); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.ColumnsMapping); err != nil {
			return nil, &InvalidArgumentError{Field: "ColumnsMapping", Reason: "not a JSON column mapping array", Err: err}
		}
	}

	if bind, ok := credentialBinders[opts.AuthMode]; ok {
		if err := bind(opts, p); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// credentialBinders validates and copies the settings each auth mode needs.
var credentialBinders = map[AuthMode]func(*Options, TargetProperties) error{
	AuthAadApplicationKey: func(o *Options, p TargetProperties) error {
		var err error
		if o.ApplicationKey, err = required("ApplicationKey", p.ApplicationKey); err != nil {
			return err
		}
		if o.Authority, err = required("Authority", p.Authority); err != nil {
			return err
		}
		o.ApplicationClientID, err = required("ApplicationClientID", p.ApplicationClientID)
		return err
	},
	AuthManagedIdentity: func(o *Options, p TargetProperties) error {
		o.ManagedIdentityClientID = render(p.ManagedIdentityClientID)
		return nil
	},
}

func validateOptions(opts *Options) error {
	err := validation.StructValidator.Struct(opts)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return err
	}
	fe := fieldErrors[0]
	if fe.Tag() == "required" {
		return &MissingArgumentError{Field: fe.Field()}
	}
	return &InvalidArgumentError{Field: fe.Field(), Reason: validation.Message(fe)}
}

func required(field, raw string) (string, error) {
	value := render(raw)
	if err := validation.StructValidator.Var(value, "required"); err != nil {
		return "", &MissingArgumentError{Field: field}
	}
	return value, nil
}

func parseFlag(field, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, &InvalidArgumentError{Field: field, Reason: "not a boolean", Err: err}
	}
	return b, nil
}

var envRef = regexp.MustCompile(`\$\{(?:env:)?([A-Za-z_][A-Za-z0-9_]*)\}`)

// render expands ${NAME} and ${env:NAME} references. Bare $NAME is left alone
// so secrets containing '$' survive.
func render(value string) string {
	value = envRef.ReplaceAllStringFunc(value, func(ref string) string {
		return os.Getenv(envRef.FindStringSubmatch(ref)[1])
	})
	return strings.TrimSpace(value)
}
