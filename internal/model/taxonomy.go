package model

// BodySystem is the coarse clinical category produced by Stage 1
type BodySystem string

const (
	BodyCardiology       BodySystem = "Cardiology"
	BodyRespiratory      BodySystem = "Respiratory"
	BodyGastroenterology BodySystem = "Gastroenterology"
	BodyNeurology        BodySystem = "Neurology"
	BodyOrthopedics      BodySystem = "Orthopedics"
	BodyDermatology      BodySystem = "Dermatology"
	BodyPediatrics       BodySystem = "Pediatrics"
	BodyObstetrics       BodySystem = "Obstetrics"
	BodyENT              BodySystem = "ENT"
	BodyOphthalmology    BodySystem = "Ophthalmology"
	BodyUrology          BodySystem = "Urology"
	BodyPsychiatry       BodySystem = "Psychiatry"
	BodyGeneralMedicine  BodySystem = "General Medicine"
	BodyEmergency        BodySystem = "Emergency"
)

// BodySystems lists every valid body system in prompt order.
var BodySystems = []BodySystem{
	BodyCardiology, BodyRespiratory, BodyGastroenterology, BodyNeurology,
	BodyOrthopedics, BodyDermatology, BodyPediatrics, BodyObstetrics,
	BodyENT, BodyOphthalmology, BodyUrology, BodyPsychiatry,
	BodyGeneralMedicine, BodyEmergency,
}

// IsValid reports whether b is one of BodySystems.
func (b BodySystem) IsValid() bool {
	for _, v := range BodySystems {
		if v == b {
			return true
		}
	}
	return false
}

// Specialty names exactly as stored in hospitals.specialties_array.
const (
	SpecialtyGeneralMedicine = "General Medicine"
	SpecialtyDental          = "Dental"
	SpecialtyENT             = "ENT"
	SpecialtyOphthalmology   = "Ophthalmology"
	SpecialtyDermatology     = "Dermatology"
	SpecialtyOrthopaedics    = "Orthopaedics"
	SpecialtyPaediatrics     = "Paediatrics"
	SpecialtyObstetrics      = "Obstetrics and Gynaecology"
	SpecialtyCardiology      = "Cardiology"
	SpecialtyNeurology       = "Neurology"
	SpecialtyPsychiatry      = "Psychiatry"
	SpecialtyGastro          = "Gastro-enterology"
	SpecialtyUrology         = "Urology"
	SpecialtyNephrology      = "Nephrology"
	SpecialtyEndocrinology   = "Endocrinology"
	SpecialtyDiabetology     = "Diabetology"
	SpecialtyPhysiotherapy   = "Physiotherapy"
	SpecialtyOncology        = "Oncology"
	SpecialtyPulmonology     = "Pulmonology"
	SpecialtyTrauma          = "Trauma care"
	SpecialtyEmergency24x7   = "24 hours emergency care"
	SpecialtyPlasticSurgery  = "Cosmetic and plastic surgery"
	SpecialtyGeriatrics      = "Geriatrics"
	SpecialtyRheumatology    = "Rheumatology"
	SpecialtyHaematology     = "Haematology"
)

// Specialties is the closed set a response may route to.
var Specialties = []string{
	SpecialtyGeneralMedicine, SpecialtyDental, SpecialtyENT, SpecialtyOphthalmology,
	SpecialtyDermatology, SpecialtyOrthopaedics, SpecialtyPaediatrics, SpecialtyObstetrics,
	SpecialtyCardiology, SpecialtyNeurology, SpecialtyPsychiatry, SpecialtyGastro,
	SpecialtyUrology, SpecialtyNephrology, SpecialtyEndocrinology, SpecialtyDiabetology,
	SpecialtyPhysiotherapy, SpecialtyOncology, SpecialtyPulmonology, SpecialtyTrauma,
	SpecialtyEmergency24x7, SpecialtyPlasticSurgery, SpecialtyGeriatrics, SpecialtyRheumatology,
	SpecialtyHaematology,
}

// MaxSpecialties caps how many specialties a response carries.
const MaxSpecialties = 3

// IsSpecialty reports whether name is in the closed specialty set.
func IsSpecialty(name string) bool {
	for _, s := range Specialties {
		if s == name {
			return true
		}
	}
	return false
}

// Facility care types exactly as stored in hospitals.hospital_care_type.
const (
	CareDispensary     = "Dispensary/ Poly Clinic"
	CareHealthCentre   = "Health Centre"
	CareHospital       = "Hospital"
	CareClinic         = "Clinic"
	CareMedicalCollege = "Medical College / Institute/Hospital"
)

// CareTypesForLevel returns the default care-type filter for a tier. The
// emergency tier returns nil: any care type qualifies as long as the facility
// has emergency services.
func CareTypesForLevel(level SeverityLevel) []string {
	switch level {
	case SeverityMild:
		return []string{CareDispensary, CareHealthCentre}
	case SeverityModerate:
		return []string{CareHospital, CareClinic}
	case SeverityHigh:
		return []string{CareHospital, CareMedicalCollege}
	}
	return nil
}
