package file

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/nuxeo/spreadsheet-schemas/pkg/schema"
	"github.com/nuxeo/spreadsheet-schemas/pkg/utils"
	"sigs.k8s.io/yaml"
)

// WriteConfig holds settings to use to write the schema file.
type WriteConfig struct {
	Filename    string
	FileFormat  Format
	Server      string
	WithColumns bool
}

// ResultToContent converts a fetch result into its serialized form,
// schemas and errors ordered by key.
func ResultToContent(result *schema.Result, config WriteConfig) (*Content, error) {
	content := &Content{
		Server:  config.Server,
		Schemas: []FSchema{},
	}
	for key, d := range result.Schemas {
		s := FSchema{
			Key:    key,
			Name:   d.Name,
			Fields: d.Fields,
		}
		if config.WithColumns {
			columns, err := schema.Columns(key, d.Fields)
			if err != nil {
				return nil, err
			}
			s.Columns = columns
		}
		content.Schemas = append(content.Schemas, s)
	}
	sort.SliceStable(content.Schemas, func(i, j int) bool {
		return strings.Compare(content.Schemas[i].Key, content.Schemas[j].Key) < 0
	})

	for _, f := range result.Failures {
		content.Errors = append(content.Errors, FError{
			Key:   f.Key,
			Name:  f.Name,
			Error: f.Err.Error(),
		})
	}
	sort.SliceStable(content.Errors, func(i, j int) bool {
		return strings.Compare(content.Errors[i].Key, content.Errors[j].Key) < 0
	})
	return content, nil
}

// ResultToFile writes a fetch result to the file named in config.
func ResultToFile(result *schema.Result, config WriteConfig) error {
	content, err := ResultToContent(result, config)
	if err != nil {
		return err
	}
	return WriteContentToFile(content, config.Filename, config.FileFormat)
}

// WriteContentToFile writes content to filename in the given format.
// A filename of "-" writes to stdout.
func WriteContentToFile(content *Content, filename string, format Format) error {
	var c []byte
	var err error
	switch format {
	case YAML:
		c, err = yaml.Marshal(content)
		if err != nil {
			return err
		}
	case JSON:
		c, err = json.MarshalIndent(content, "", "  ")
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown file format: %s", format)
	}

	if filename == "-" {
		if _, err := fmt.Print(string(c)); err != nil {
			return fmt.Errorf("writing file: %w", err)
		}
		return nil
	}
	filename = utils.AddExtToFilename(filename, strings.ToLower(string(format)))
	if err := os.WriteFile(filename, c, 0o600); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
