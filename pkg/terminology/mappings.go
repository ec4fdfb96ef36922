package terminology

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConditionList pairs a curated condition name with its codes or synonyms.
type ConditionList struct {
	Condition string   `json:"condition" yaml:"condition"`
	Values    []string `json:"values" yaml:"values"`
}

// MappingTables holds the curated priors that outrank fuzzy matching. Lists keep the
// order of the source document.
type MappingTables struct {
	SpecificConditions   []ConditionList
	Synonyms             []ConditionList
	MedicationExclusions []string

	specificIndex map[string][]string
}

func NewMappingTables(specific, synonyms []ConditionList, exclusions []string) *MappingTables {
	t := &MappingTables{
		SpecificConditions:   specific,
		Synonyms:             synonyms,
		MedicationExclusions: exclusions,
		specificIndex:        make(map[string][]string, len(specific)),
	}
	for _, s := range specific {
		t.specificIndex[s.Condition] = s.Values
	}
	return t
}

// CodesFor returns the specific codes curated for condition, matched exactly.
func (t *MappingTables) CodesFor(condition string) ([]string, bool) {
	codes, ok := t.specificIndex[condition]
	return codes, ok
}

type mappingDocument struct {
	SpecificConditionMappings orderedLists `json:"specific_condition_mappings" yaml:"specific_condition_mappings"`
	SynonymMappings           orderedLists `json:"synonym_mappings" yaml:"synonym_mappings"`
	MedicationExclusions      []string     `json:"medication_exclusions" yaml:"medication_exclusions"`
}

// LoadMappingTables reads the curated mapping resource (JSON, or YAML by extension).
// On any failure the fallback tables are returned together with the error.
func LoadMappingTables(path string) (*MappingTables, error) {
	if path == "" {
		return FallbackMappingTables(), errors.New("no mapping tables configured")
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return FallbackMappingTables(), err
	}

	var doc mappingDocument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &doc)
	default:
		err = json.Unmarshal(content, &doc)
	}
	if err != nil {
		return FallbackMappingTables(), fmt.Errorf("parsing %s: %w", path, err)
	}

	return NewMappingTables(doc.SpecificConditionMappings, doc.SynonymMappings, doc.MedicationExclusions), nil
}

var fallbackTables = NewMappingTables(
	[]ConditionList{
		{Condition: "headache", Values: []string{"R519", "R510", "G439"}},
		{Condition: "hypertension", Values: []string{"I10", "I11"}},
		{Condition: "diabetes", Values: []string{"E119", "E11"}},
		{Condition: "depression", Values: []string{"F329", "F32"}},
		{Condition: "anxiety", Values: []string{"F419", "F41"}},
	},
	[]ConditionList{
		{Condition: "hypertension", Values: []string{"high blood pressure", "elevated bp", "htn"}},
		{Condition: "diabetes", Values: []string{"blood sugar", "glucose", "diabetic"}},
		{Condition: "depression", Values: []string{"mood disorder", "depressed", "sad"}},
		{Condition: "anxiety", Values: []string{"anxious", "worried", "panic"}},
		{Condition: "headache", Values: []string{"head pain", "migraine", "cephalalgia"}},
	},
	[]string{"ibuprofen", "tylenol", "acetaminophen", "aspirin", "medication"},
)

// FallbackMappingTables returns the built-in tables shared by every caller.
func FallbackMappingTables() *MappingTables {
	return fallbackTables
}

// orderedLists decodes a {"condition": ["a", "b"]} object without losing key order.
type orderedLists []ConditionList

func (o *orderedLists) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	var out orderedLists
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", keyTok)
		}
		var values []string
		if err := dec.Decode(&values); err != nil {
			return fmt.Errorf("condition %q: %w", key, err)
		}
		out = append(out, ConditionList{Condition: key, Values: values})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}

func (o *orderedLists) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping", node.Line)
	}
	out := make(orderedLists, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var values []string
		if err := node.Content[i+1].Decode(&values); err != nil {
			return fmt.Errorf("condition %q: %w", key, err)
		}
		out = append(out, ConditionList{Condition: key, Values: values})
	}
	*o = out
	return nil
}
