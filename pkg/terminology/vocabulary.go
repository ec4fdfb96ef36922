package terminology

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/synaptica-ai/icd-mapper/pkg/common/logger"
)

const (
	SourceCodesFile = "codes-file"
	SourceCSV       = "csv"
	SourceDefault   = "default"
)

var ErrEmptyVocabulary = errors.New("icd-10 vocabulary empty")

type CodeEntry struct {
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Keywords    []string `json:"keywords"`

	// Lower-cased description, precomputed for matching.
	Normalized string `json:"-"`
}

// Vocabulary is the ICD-10-CM reference table. It is read-only after construction
// and keeps the order of the source file.
type Vocabulary struct {
	entries []CodeEntry
	index   map[string]int
	source  string
}

func NewVocabulary(source string, entries []CodeEntry) *Vocabulary {
	v := &Vocabulary{
		entries: make([]CodeEntry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
		source:  source,
	}
	for _, e := range entries {
		v.add(e)
	}
	return v
}

func (v *Vocabulary) add(e CodeEntry) {
	if e.Category == "" {
		e.Category = CategoryForCode(e.Code)
	}
	if e.Keywords == nil {
		e.Keywords = ExtractKeywords(e.Description)
	}
	e.Normalized = strings.ToLower(e.Description)
	if i, ok := v.index[e.Code]; ok {
		// later definitions win but keep the original position
		v.entries[i] = e
		return
	}
	v.index[e.Code] = len(v.entries)
	v.entries = append(v.entries, e)
}

func (v *Vocabulary) Lookup(code string) (CodeEntry, bool) {
	if v == nil {
		return CodeEntry{}, false
	}
	i, ok := v.index[code]
	if !ok {
		return CodeEntry{}, false
	}
	return v.entries[i], true
}

func (v *Vocabulary) Contains(code string) bool {
	_, ok := v.Lookup(code)
	return ok
}

// Entries exposes the backing slice; callers must not modify it.
func (v *Vocabulary) Entries() []CodeEntry {
	if v == nil {
		return nil
	}
	return v.entries
}

func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.entries)
}

func (v *Vocabulary) Source() string {
	return v.source
}

// LoadVocabulary reads the flat codes file, then the CSV file, and finally falls back
// to DefaultVocabulary. The returned vocabulary is never nil; a non-nil error means
// the default table is in use.
func LoadVocabulary(codesPath, csvPath string) (*Vocabulary, error) {
	var errs []error
	if codesPath != "" {
		v, err := LoadCodesFile(codesPath)
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
	}
	if csvPath != "" {
		v, err := LoadCSVFile(csvPath)
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no icd-10 source configured"))
	}
	return DefaultVocabulary(), fmt.Errorf("using default icd-10 vocabulary: %w", errors.Join(errs...))
}

// LoadCodesFile parses the CMS "CODE    DESCRIPTION" flat file.
func LoadCodesFile(path string) (*Vocabulary, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	v, err := ParseCodes(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}

func ParseCodes(r io.Reader) (*Vocabulary, error) {
	log := logger.Component("terminology")
	v := NewVocabulary(SourceCodesFile, nil)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		code, description, found := cutWhitespace(line)
		if !found || description == "" {
			log.WithFields(map[string]interface{}{
				"line": lineNum,
				"code": code,
			}).Debug("no description found for code")
			continue
		}
		v.add(CodeEntry{Code: code, Description: description})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if v.Len() == 0 {
		return nil, ErrEmptyVocabulary
	}
	return v, nil
}

// LoadCSVFile parses a CSV file with code, description and optional category columns.
func LoadCSVFile(path string) (*Vocabulary, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	v, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}

func ParseCSV(r io.Reader) (*Vocabulary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyVocabulary
		}
		return nil, err
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	codeCol, okCode := columns["code"]
	descCol, okDesc := columns["description"]
	if !okCode || !okDesc {
		return nil, errors.New("csv header must contain code and description")
	}
	catCol, hasCat := columns["category"]

	v := NewVocabulary(SourceCSV, nil)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		code := field(row, codeCol)
		description := field(row, descCol)
		if code == "" || description == "" {
			continue
		}
		entry := CodeEntry{Code: code, Description: description}
		if hasCat {
			entry.Category = field(row, catCol)
		}
		v.add(entry)
	}
	if v.Len() == 0 {
		return nil, ErrEmptyVocabulary
	}
	return v, nil
}

var defaultVocabulary = NewVocabulary(SourceDefault, []CodeEntry{
	{Code: "I10", Description: "Essential (primary) hypertension", Category: "Cardiovascular", Keywords: []string{"hypertension", "high blood pressure"}},
	{Code: "E11", Description: "Type 2 diabetes mellitus", Category: "Endocrine", Keywords: []string{"diabetes", "blood sugar"}},
	{Code: "F32", Description: "Major depressive disorder", Category: "Mental Health", Keywords: []string{"depression", "mood"}},
	{Code: "R51", Description: "Headache", Category: "Symptoms", Keywords: []string{"headache", "head pain"}},
})

// DefaultVocabulary is the embedded four-code table used when no source loads.
func DefaultVocabulary() *Vocabulary {
	return defaultVocabulary
}

func cutWhitespace(line string) (string, string, bool) {
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return line, "", false
	}
	return line[:i], strings.TrimSpace(line[i:]), true
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
