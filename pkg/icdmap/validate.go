package icdmap

import (
	"regexp"
	"strings"

	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
)

var codeFormat = regexp.MustCompile(`^[A-Z]\d{2}(\.[\dA-Z]+)?$`)

func ValidCodeFormat(code string) bool {
	return codeFormat.MatchString(code)
}

// ValidateCode checks the code shape and whether the loaded vocabulary knows it.
func (e *Engine) ValidateCode(code string) models.CodeValidation {
	code = strings.TrimSpace(code)
	result := models.CodeValidation{
		Code:     code,
		Warnings: []string{},
	}

	if ValidCodeFormat(code) {
		result.FormatCorrect = true
	} else {
		result.Warnings = append(result.Warnings, "Invalid ICD-10 code format")
	}

	if e.vocab.Contains(code) {
		result.ExistsInDatabase = true
	} else {
		result.Warnings = append(result.Warnings, "Code not found in database")
	}

	result.IsValid = result.FormatCorrect && result.ExistsInDatabase
	return result
}
