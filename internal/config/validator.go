package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/config.schema.json
var schemaJSON []byte

var messages = message.NewPrinter(language.English)

var configSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing config schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("config.schema.json", doc); err != nil {
		return nil, fmt.Errorf("registering config schema: %w", err)
	}
	s, err := c.Compile("config.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling config schema: %w", err)
	}
	return s, nil
})

// Issue is one schema violation found in a config file.
type Issue struct {
	// Field is the JSON pointer of the offending value, e.g. "/archive_url".
	// It is empty for problems with the document as a whole.
	Field   string
	Keyword string
	Message string
}

func (i Issue) String() string {
	if i.Field == "" {
		return i.Message
	}
	return i.Field + ": " + i.Message
}

// InvalidError is returned for a config file that does not match the schema.
type InvalidError struct {
	Path   string
	Issues []Issue
}

func (e *InvalidError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("invalid config file %s: %s", e.Path, strings.Join(parts, "; "))
}

// Check validates YAML config content and returns its schema violations. The
// error is reserved for content that cannot be parsed at all. An empty
// document has no violations.
func Check(data []byte) ([]Issue, error) {
	schema, err := configSchema()
	if err != nil {
		return nil, err
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if doc == nil {
		return nil, nil
	}

	// Round-trip through JSON so YAML scalars take their JSON types.
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("converting config to JSON: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("converting config to JSON: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	issues := leafIssues(ve, nil)
	if len(issues) == 0 {
		issues = []Issue{{Message: ve.Error()}}
	}
	return issues, nil
}

// CheckFile validates the config file at path, returning *InvalidError when
// it violates the schema.
func CheckFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	issues, err := Check(data)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if len(issues) > 0 {
		return &InvalidError{Path: path, Issues: issues}
	}
	return nil
}

// leafIssues flattens the validation error tree, keeping only the errors
// that have no further causes.
func leafIssues(ve *jsonschema.ValidationError, acc []Issue) []Issue {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			acc = leafIssues(cause, acc)
		}
		return acc
	}

	issue := Issue{}
	if len(ve.InstanceLocation) > 0 {
		issue.Field = "/" + strings.Join(ve.InstanceLocation, "/")
	}
	if ve.ErrorKind != nil {
		if kw := ve.ErrorKind.KeywordPath(); len(kw) > 0 {
			issue.Keyword = kw[len(kw)-1]
		}
		issue.Message = ve.ErrorKind.LocalizedString(messages)
	}
	return append(acc, issue)
}
