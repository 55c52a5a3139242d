package utils

import (
	"strings"

	"github.com/stellaephile/whats-up-doc/internal/model"
)

// specialtyAliases maps lower-cased spellings models commonly emit to the
// exact specialty names stored in the hospitals table.
var specialtyAliases = map[string]string{
	"general medicine":             model.SpecialtyGeneralMedicine,
	"general physician":            model.SpecialtyGeneralMedicine,
	"internal medicine":            model.SpecialtyGeneralMedicine,
	"general practice":             model.SpecialtyGeneralMedicine,
	"dentistry":                    model.SpecialtyDental,
	"dentist":                      model.SpecialtyDental,
	"oral surgery":                 model.SpecialtyDental,
	"otolaryngology":               model.SpecialtyENT,
	"ear nose throat":              model.SpecialtyENT,
	"ophthalmologist":              model.SpecialtyOphthalmology,
	"eye":                          model.SpecialtyOphthalmology,
	"dermatologist":                model.SpecialtyDermatology,
	"skin":                         model.SpecialtyDermatology,
	"orthopedics":                  model.SpecialtyOrthopaedics,
	"orthopedic":                   model.SpecialtyOrthopaedics,
	"orthopaedic":                  model.SpecialtyOrthopaedics,
	"orthopedic surgery":           model.SpecialtyOrthopaedics,
	"pediatrics":                   model.SpecialtyPaediatrics,
	"pediatric":                    model.SpecialtyPaediatrics,
	"paediatric":                   model.SpecialtyPaediatrics,
	"obstetrics":                   model.SpecialtyObstetrics,
	"gynecology":                   model.SpecialtyObstetrics,
	"gynaecology":                  model.SpecialtyObstetrics,
	"obstetrics and gynecology":    model.SpecialtyObstetrics,
	"obstetrics & gynaecology":     model.SpecialtyObstetrics,
	"ob/gyn":                       model.SpecialtyObstetrics,
	"obgyn":                        model.SpecialtyObstetrics,
	"cardiac":                      model.SpecialtyCardiology,
	"cardiologist":                 model.SpecialtyCardiology,
	"neurologist":                  model.SpecialtyNeurology,
	"neurosurgery":                 model.SpecialtyNeurology,
	"psychiatrist":                 model.SpecialtyPsychiatry,
	"mental health":                model.SpecialtyPsychiatry,
	"gastroenterology":             model.SpecialtyGastro,
	"gastro enterology":            model.SpecialtyGastro,
	"gastro":                       model.SpecialtyGastro,
	"nephrologist":                 model.SpecialtyNephrology,
	"endocrinologist":              model.SpecialtyEndocrinology,
	"diabetes":                     model.SpecialtyDiabetology,
	"physical therapy":             model.SpecialtyPhysiotherapy,
	"physiotherapist":              model.SpecialtyPhysiotherapy,
	"cancer":                       model.SpecialtyOncology,
	"oncologist":                   model.SpecialtyOncology,
	"respiratory":                  model.SpecialtyPulmonology,
	"respiratory medicine":         model.SpecialtyPulmonology,
	"pulmonologist":                model.SpecialtyPulmonology,
	"chest medicine":               model.SpecialtyPulmonology,
	"trauma":                       model.SpecialtyTrauma,
	"trauma surgery":               model.SpecialtyTrauma,
	"emergency":                    model.SpecialtyEmergency24x7,
	"emergency medicine":           model.SpecialtyEmergency24x7,
	"emergency care":               model.SpecialtyEmergency24x7,
	"24x7 emergency":               model.SpecialtyEmergency24x7,
	"24 hour emergency care":       model.SpecialtyEmergency24x7,
	"plastic surgery":              model.SpecialtyPlasticSurgery,
	"cosmetic surgery":             model.SpecialtyPlasticSurgery,
	"cosmetic & plastic surgery":   model.SpecialtyPlasticSurgery,
	"geriatric":                    model.SpecialtyGeriatrics,
	"geriatric medicine":           model.SpecialtyGeriatrics,
	"rheumatologist":               model.SpecialtyRheumatology,
	"hematology":                   model.SpecialtyHaematology,
	"haematologist":                model.SpecialtyHaematology,
	"hematologist":                 model.SpecialtyHaematology,
}

// bodySystemAliases maps lower-cased variants onto the body-system enumeration.
var bodySystemAliases = map[string]model.BodySystem{
	"cardiac":                    model.BodyCardiology,
	"cardiovascular":             model.BodyCardiology,
	"pulmonology":                model.BodyRespiratory,
	"pulmonary":                  model.BodyRespiratory,
	"gastro-enterology":          model.BodyGastroenterology,
	"gastro":                     model.BodyGastroenterology,
	"gastrointestinal":           model.BodyGastroenterology,
	"neurological":               model.BodyNeurology,
	"orthopaedics":               model.BodyOrthopedics,
	"orthopedic":                 model.BodyOrthopedics,
	"musculoskeletal":            model.BodyOrthopedics,
	"skin":                       model.BodyDermatology,
	"paediatrics":                model.BodyPediatrics,
	"pediatric":                  model.BodyPediatrics,
	"obstetrics and gynaecology": model.BodyObstetrics,
	"gynecology":                 model.BodyObstetrics,
	"gynaecology":                model.BodyObstetrics,
	"otolaryngology":             model.BodyENT,
	"eye":                        model.BodyOphthalmology,
	"mental health":              model.BodyPsychiatry,
	"general":                    model.BodyGeneralMedicine,
	"internal medicine":          model.BodyGeneralMedicine,
	"trauma":                     model.BodyEmergency,
	"emergency medicine":         model.BodyEmergency,
}

// bodySystemSpecialty is the default specialty for each body system.
var bodySystemSpecialty = map[model.BodySystem]string{
	model.BodyCardiology:       model.SpecialtyCardiology,
	model.BodyRespiratory:      model.SpecialtyPulmonology,
	model.BodyGastroenterology: model.SpecialtyGastro,
	model.BodyNeurology:        model.SpecialtyNeurology,
	model.BodyOrthopedics:      model.SpecialtyOrthopaedics,
	model.BodyDermatology:      model.SpecialtyDermatology,
	model.BodyPediatrics:       model.SpecialtyPaediatrics,
	model.BodyObstetrics:       model.SpecialtyObstetrics,
	model.BodyENT:              model.SpecialtyENT,
	model.BodyOphthalmology:    model.SpecialtyOphthalmology,
	model.BodyUrology:          model.SpecialtyUrology,
	model.BodyPsychiatry:       model.SpecialtyPsychiatry,
	model.BodyGeneralMedicine:  model.SpecialtyGeneralMedicine,
	model.BodyEmergency:        model.SpecialtyEmergency24x7,
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizeSpecialty maps a free-form specialty name onto the closed set.
// The second return is false when no mapping exists.
func NormalizeSpecialty(name string) (string, bool) {
	key := normalizeKey(name)
	if key == "" {
		return "", false
	}

	for _, s := range model.Specialties {
		if strings.ToLower(s) == key {
			return s, true
		}
	}

	if s, ok := specialtyAliases[key]; ok {
		return s, true
	}

	// Loose forms such as "Dental clinic" or "Paediatrics OPD"
	for _, s := range model.Specialties {
		if strings.HasPrefix(key, strings.ToLower(s)+" ") {
			return s, true
		}
	}

	return "", false
}

// NormalizeSpecialties maps, de-duplicates and caps a specialty list.
// Names without a mapping are dropped.
func NormalizeSpecialties(names []string) []string {
	out := make([]string, 0, model.MaxSpecialties)
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		s, ok := NormalizeSpecialty(name)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == model.MaxSpecialties {
			break
		}
	}

	return out
}

// NormalizeBodySystem maps a free-form body system onto the enumeration,
// defaulting to General Medicine.
func NormalizeBodySystem(name string) model.BodySystem {
	key := normalizeKey(name)
	if key == "" {
		return model.BodyGeneralMedicine
	}

	for _, b := range model.BodySystems {
		if strings.ToLower(string(b)) == key {
			return b
		}
	}

	if b, ok := bodySystemAliases[key]; ok {
		return b
	}

	return model.BodyGeneralMedicine
}

// SpecialtyForBodySystem returns the specialty a body system routes to.
func SpecialtyForBodySystem(b model.BodySystem) string {
	if s, ok := bodySystemSpecialty[b]; ok {
		return s
	}
	return model.SpecialtyGeneralMedicine
}

// FuzzyMatchSpecialty reports whether a facility's listed specialty covers
// the wanted one. Facility data is less tidy than the closed set, so both
// sides are normalised before comparing.
func FuzzyMatchSpecialty(wanted, listed string) bool {
	wantedLower := normalizeKey(wanted)
	listedLower := normalizeKey(listed)
	if wantedLower == "" || listedLower == "" {
		return false
	}

	if wantedLower == listedLower || strings.Contains(" "+listedLower+" ", " "+wantedLower+" ") {
		return true
	}

	w, ok1 := NormalizeSpecialty(wanted)
	l, ok2 := NormalizeSpecialty(listed)
	return ok1 && ok2 && w == l
}
