package access

// Section identifies a fixed category of clinical record.
type Section string

const (
	SectionVitals            Section = "vitals"
	SectionMedications       Section = "medications"
	SectionIntakeOutput      Section = "intake_output"
	SectionVentilator        Section = "ventilator"
	SectionProceduresLines   Section = "procedures_lines"
	SectionLabsImaging       Section = "labs_imaging"
	SectionClinicalNotes     Section = "clinical_notes"
	SectionNeurological      Section = "neurological"
	SectionBloodGlucose      Section = "blood_glucose"
	SectionNursingAssessment Section = "nursing_assessment"
	SectionBradenScale       Section = "braden_scale"
	SectionNursingActivities Section = "nursing_activities"
	SectionNursingNotes      Section = "nursing_notes"
	SectionDoctorNotes       Section = "doctor_notes"
)

// Sections lists every known section in display order.
var Sections = []Section{
	SectionVitals,
	SectionMedications,
	SectionIntakeOutput,
	SectionVentilator,
	SectionProceduresLines,
	SectionLabsImaging,
	SectionClinicalNotes,
	SectionNeurological,
	SectionBloodGlucose,
	SectionNursingAssessment,
	SectionBradenScale,
	SectionNursingActivities,
	SectionNursingNotes,
	SectionDoctorNotes,
}

// Known reports whether s is one of the fourteen section ids.
func (s Section) Known() bool {
	for _, known := range Sections {
		if s == known {
			return true
		}
	}
	return false
}

func (s Section) String() string {
	return string(s)
}
