package terminology

import "strings"

const UnknownCategory = "Unknown"

// ICD-10-CM chapters keyed by the leading letter of the code.
var chapterByLetter = map[byte]string{
	'A': "Infectious and Parasitic Diseases",
	'B': "Infectious and Parasitic Diseases",
	'C': "Neoplasms",
	'D': "Diseases of Blood and Immune System",
	'E': "Endocrine, Nutritional and Metabolic Diseases",
	'F': "Mental, Behavioral and Neurodevelopmental Disorders",
	'G': "Diseases of the Nervous System",
	'H': "Diseases of Eye/Ear and Adnexa",
	'I': "Diseases of the Circulatory System",
	'J': "Diseases of the Respiratory System",
	'K': "Diseases of the Digestive System",
	'L': "Diseases of the Skin and Subcutaneous Tissue",
	'M': "Diseases of the Musculoskeletal System",
	'N': "Diseases of the Genitourinary System",
	'O': "Pregnancy, Childbirth and the Puerperium",
	'P': "Perinatal Period Conditions",
	'Q': "Congenital Malformations and Chromosomal Abnormalities",
	'R': "Symptoms, Signs and Abnormal Clinical Findings",
	'S': "Injury, Poisoning and External Causes",
	'T': "Injury, Poisoning and External Causes",
	'V': "External Causes of Morbidity",
	'W': "External Causes of Morbidity",
	'X': "External Causes of Morbidity",
	'Y': "External Causes of Morbidity",
	'Z': "Factors Influencing Health Status",
}

func CategoryForCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return UnknownCategory
	}
	letter := code[0]
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	if category, ok := chapterByLetter[letter]; ok {
		return category
	}
	return UnknownCategory
}
