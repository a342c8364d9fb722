package access

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type fakePatient struct {
	id     string
	nurse  string
	doctor string
	hash   string
}

func (p *fakePatient) AssignedNurse() string  { return p.nurse }
func (p *fakePatient) AssignedDoctor() string { return p.doctor }
func (p *fakePatient) AccessCodeHash() string { return p.hash }
func (p *fakePatient) PatientID() string      { return p.id }

type fakeRecord struct {
	section Section
}

func (r fakeRecord) RecordSection() Section { return r.section }

type recorderCall struct {
	op      string
	allowed bool
	reason  string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recorderCall
}

func (f *fakeRecorder) RecordAuthorizationDecision(op string, allowed bool, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recorderCall{op, allowed, reason})
}

var (
	admin  = &Identity{ID: "admin-1", Role: RoleAdmin, FullName: "System Admin"}
	nurse  = &Identity{ID: "nurse-1", Role: RoleNurse, FullName: "Nurse Dela Cruz"}
	nurse2 = &Identity{ID: "nurse-2", Role: RoleNurse, FullName: "Nurse Two"}
	doctor = &Identity{ID: "doctor-1", Role: RoleDoctor, FullName: "Dr. Smith"}
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func hashOf(t *testing.T, code string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(h)
}

func newTestAuthorizer(rec DecisionRecorder) *Authorizer {
	return NewAuthorizer(DefaultPolicyTable(), NewCodeVerifier(bcrypt.MinCost), quietLogger(), rec)
}

func assignedPatient(t *testing.T) *fakePatient {
	return &fakePatient{id: "p1", nurse: nurse.ID, doctor: doctor.ID, hash: hashOf(t, "1234")}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"admin", RoleAdmin, true},
		{"NURSE", RoleNurse, true},
		{" Doctor ", RoleDoctor, true},
		{"caregiver", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRole(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsAssigned(t *testing.T) {
	p := &fakePatient{nurse: "nurse-1", doctor: "doctor-1"}
	unassigned := &fakePatient{}

	tests := []struct {
		name string
		p    Patient
		id   *Identity
		want bool
	}{
		{"admin always", unassigned, admin, true},
		{"assigned nurse", p, nurse, true},
		{"other nurse", p, nurse2, false},
		{"assigned doctor", p, doctor, true},
		{"doctor id in nurse slot", &fakePatient{nurse: "doctor-1"}, doctor, false},
		{"empty id vs empty slot", unassigned, &Identity{Role: RoleNurse}, false},
		{"unknown role", p, &Identity{ID: "nurse-1", Role: "caregiver"}, false},
		{"nil identity", p, nil, false},
		{"nil patient", nil, nurse, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAssigned(tt.p, tt.id); got != tt.want {
				t.Errorf("IsAssigned = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultPolicyTable_Partition(t *testing.T) {
	table := DefaultPolicyTable()
	if len(table) != len(Sections) {
		t.Fatalf("table has %d sections, want %d", len(table), len(Sections))
	}

	gated := map[Section]bool{
		SectionVitals: true, SectionMedications: true, SectionIntakeOutput: true,
		SectionVentilator: true, SectionProceduresLines: true, SectionLabsImaging: true,
		SectionClinicalNotes: true,
	}
	for _, s := range Sections {
		pol, ok := table.Lookup(s)
		if !ok {
			t.Fatalf("missing section %s", s)
		}
		if pol.CodeGated != gated[s] {
			t.Errorf("%s gated = %v, want %v", s, pol.CodeGated, gated[s])
		}
		if s == SectionDoctorNotes {
			if !pol.Writable(RoleDoctor) || pol.Writable(RoleNurse) || pol.Writable(RoleAdmin) {
				t.Errorf("doctor_notes writable set = %v", pol.WritableBy)
			}
			continue
		}
		for _, r := range Roles {
			if !pol.Writable(r) {
				t.Errorf("%s not writable by %s", s, r)
			}
		}
	}
	if got := len(table.GatedSections()); got != 7 {
		t.Errorf("gated sections = %d, want 7", got)
	}
}

func TestLoadPolicyTable_MatchesDefault(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "sections.yml")
	table, err := LoadPolicyTable(path)
	if err != nil {
		t.Fatalf("LoadPolicyTable: %v", err)
	}
	def := DefaultPolicyTable()
	for _, s := range Sections {
		got, want := table[s], def[s]
		if got.CodeGated != want.CodeGated {
			t.Errorf("%s gated = %v, want %v", s, got.CodeGated, want.CodeGated)
		}
		for _, r := range Roles {
			if got.Writable(r) != want.Writable(r) {
				t.Errorf("%s writable by %s = %v, want %v", s, r, got.Writable(r), want.Writable(r))
			}
		}
	}
}

func TestParsePolicyTable_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"unknown section", "sections:\n  x_rays:\n    writable_by: [doctor]\n", ErrUnknownSection},
		{"unknown role", "sections:\n  vitals:\n    writable_by: [caregiver]\n", ErrUnknownRole},
		{"incomplete", "sections:\n  vitals:\n    writable_by: [nurse]\n    code_gated: true\n", ErrIncompletePolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePolicyTable([]byte(tt.yaml))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadPolicyTable_MissingFile(t *testing.T) {
	_, err := LoadPolicyTable(filepath.Join(t.TempDir(), "nope.yml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestLoadPolicyTable_Custom(t *testing.T) {
	var b strings.Builder
	b.WriteString("sections:\n")
	for _, s := range Sections {
		b.WriteString("  " + string(s) + ":\n    writable_by: [doctor]\n")
	}
	path := filepath.Join(t.TempDir(), "sections.yml")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatal(err)
	}

	table, err := LoadPolicyTable(path)
	if err != nil {
		t.Fatalf("LoadPolicyTable: %v", err)
	}
	a := NewAuthorizer(table, NewCodeVerifier(bcrypt.MinCost), quietLogger(), nil)
	d := a.CreateRecord(assignedPatient(t), nurse, SectionVitals, CodeOf("1234"))
	if d.Reason != ReasonForbiddenRole {
		t.Errorf("reason = %q, want FORBIDDEN_ROLE", d.Reason)
	}
}

func TestSuppliedCode(t *testing.T) {
	if NoCode().Present() || !NoCode().Empty() {
		t.Error("NoCode should be absent and empty")
	}
	if !CodeOf("").Present() || !CodeOf("").Empty() {
		t.Error("CodeOf(\"\") should be present and empty")
	}
	if CodeOf("1234").Empty() {
		t.Error("CodeOf(1234) should not be empty")
	}
	if CodeFromPtr(nil).Present() {
		t.Error("CodeFromPtr(nil) should be absent")
	}
	s := "1234"
	if c := CodeFromPtr(&s); !c.Present() || c.Empty() {
		t.Error("CodeFromPtr(&s) should be present")
	}
	if strings.Contains(CodeOf("1234").String(), "1234") {
		t.Error("String() leaked the code")
	}
}

func TestCodeVerifier(t *testing.T) {
	v := NewCodeVerifier(bcrypt.MinCost)
	p := &fakePatient{hash: hashOf(t, "1234")}

	tests := []struct {
		name string
		p    Patient
		code SuppliedCode
		want bool
	}{
		{"correct", p, CodeOf("1234"), true},
		{"wrong", p, CodeOf("1235"), false},
		{"empty", p, CodeOf(""), false},
		{"absent", p, NoCode(), false},
		{"no stored hash", &fakePatient{}, CodeOf("1234"), false},
		{"nil patient", nil, CodeOf("1234"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.VerifyCode(tt.p, tt.code); got != tt.want {
				t.Errorf("VerifyCode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeVerifier_HashAndRotate(t *testing.T) {
	v := NewCodeVerifier(bcrypt.MinCost)

	for _, bad := range []string{"", "123", "123456789", "12a4"} {
		if _, err := v.HashCode(bad); !errors.Is(err, ErrMalformedCode) {
			t.Errorf("HashCode(%q) err = %v, want ErrMalformedCode", bad, err)
		}
	}

	h1, err := v.HashCode("1234")
	if err != nil {
		t.Fatalf("HashCode: %v", err)
	}
	p := &fakePatient{hash: h1}
	if !v.VerifyCode(p, CodeOf("1234")) {
		t.Fatal("original code should verify")
	}

	h2, err := v.HashCode("9876")
	if err != nil {
		t.Fatalf("HashCode: %v", err)
	}
	p.hash = h2
	if v.VerifyCode(p, CodeOf("1234")) {
		t.Error("old code verified after rotation")
	}
	if !v.VerifyCode(p, CodeOf("9876")) {
		t.Error("new code did not verify after rotation")
	}
}

func TestNewCodeVerifier_CostFallback(t *testing.T) {
	if v := NewCodeVerifier(99); v.cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want default", v.cost)
	}
}

func TestDeniedError_Is(t *testing.T) {
	tests := []struct {
		reason Reason
		want   error
	}{
		{ReasonUnauthenticated, ErrUnauthenticated},
		{ReasonNotFound, ErrNotFound},
		{ReasonForbiddenRole, ErrForbiddenRole},
		{ReasonNotAssigned, ErrNotAssigned},
		{ReasonInvalidCode, ErrInvalidCode},
	}
	for _, tt := range tests {
		err := Deny(tt.reason).Err()
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: errors.Is(%v) = false", tt.reason, tt.want)
		}
		var de *DeniedError
		if !errors.As(err, &de) || de.Reason != tt.reason {
			t.Errorf("%s: errors.As failed", tt.reason)
		}
	}
	if Allow().Err() != nil {
		t.Error("Allow().Err() should be nil")
	}
	if errors.Is(Deny(ReasonNotAssigned).Err(), ErrInvalidCode) {
		t.Error("NOT_ASSIGNED should not match ErrInvalidCode")
	}
}

func TestAuthorizer_ViewPatient(t *testing.T) {
	a := newTestAuthorizer(nil)
	p := assignedPatient(t)

	tests := []struct {
		name string
		p    Patient
		id   *Identity
		want Reason
	}{
		{"admin", &fakePatient{}, admin, ReasonNone},
		{"assigned nurse", p, nurse, ReasonNone},
		{"assigned doctor", p, doctor, ReasonNone},
		{"unassigned nurse", p, nurse2, ReasonNotAssigned},
		{"nil identity", p, nil, ReasonUnauthenticated},
		{"missing patient", nil, admin, ReasonNotFound},
		{"unknown role", p, &Identity{ID: "x", Role: "caregiver"}, ReasonNotAssigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := a.ViewPatient(tt.p, tt.id)
			if d.Reason != tt.want || d.Allowed != (tt.want == ReasonNone) {
				t.Errorf("decision = %+v, want reason %q", d, tt.want)
			}
			if rd := a.ReadRecords(tt.p, tt.id); rd != d {
				t.Errorf("ReadRecords = %+v, ViewPatient = %+v", rd, d)
			}
		})
	}
}

func TestAuthorizer_ListPatients(t *testing.T) {
	a := newTestAuthorizer(nil)

	tests := []struct {
		name         string
		id           *Identity
		assignedOnly bool
		wantScope    PatientScope
		wantReason   Reason
	}{
		{"admin", admin, true, PatientScope{}, ReasonNone},
		{"nurse all", nurse, false, PatientScope{}, ReasonNone},
		{"nurse assigned", nurse, true, PatientScope{AssignedNurseID: nurse.ID}, ReasonNone},
		{"doctor assigned", doctor, true, PatientScope{AssignedDoctorID: doctor.ID}, ReasonNone},
		{"nil identity", nil, false, PatientScope{}, ReasonUnauthenticated},
		{"unknown role", &Identity{ID: "x", Role: "caregiver"}, false, PatientScope{}, ReasonForbiddenRole},
		{"nurse without id", &Identity{Role: RoleNurse}, true, PatientScope{}, ReasonNotAssigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, d := a.ListPatients(tt.id, tt.assignedOnly)
			if d.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", d.Reason, tt.wantReason)
			}
			if d.Allowed && scope != tt.wantScope {
				t.Errorf("scope = %+v, want %+v", scope, tt.wantScope)
			}
		})
	}
}

func TestAuthorizer_GatedPartition(t *testing.T) {
	a := newTestAuthorizer(nil)
	p := assignedPatient(t)

	for _, s := range Sections {
		if s == SectionDoctorNotes {
			continue
		}
		gated := a.Policy()[s].CodeGated
		d := a.CreateRecord(p, nurse, s, NoCode())
		if gated && d.Reason != ReasonInvalidCode {
			t.Errorf("%s without code: reason %q, want INVALID_CODE", s, d.Reason)
		}
		if !gated && !d.Allowed {
			t.Errorf("%s without code: denied %q, want allowed", s, d.Reason)
		}
		if d := a.CreateRecord(p, nurse, s, CodeOf("1234")); !d.Allowed {
			t.Errorf("%s with code: denied %q", s, d.Reason)
		}
	}
}

func TestAuthorizer_DoctorNotes(t *testing.T) {
	a := newTestAuthorizer(nil)
	p := assignedPatient(t)

	if d := a.CreateRecord(p, doctor, SectionDoctorNotes, NoCode()); !d.Allowed {
		t.Errorf("assigned doctor denied: %q", d.Reason)
	}
	for _, id := range []*Identity{nurse, admin} {
		if d := a.CreateRecord(p, id, SectionDoctorNotes, CodeOf("1234")); d.Reason != ReasonForbiddenRole {
			t.Errorf("%s on doctor_notes: reason %q, want FORBIDDEN_ROLE", id.Role, d.Reason)
		}
	}
	other := &Identity{ID: "doctor-2", Role: RoleDoctor}
	if d := a.CreateRecord(p, other, SectionDoctorNotes, NoCode()); d.Reason != ReasonNotAssigned {
		t.Errorf("unassigned doctor: reason %q, want NOT_ASSIGNED", d.Reason)
	}
}

func TestAuthorizer_NurseScenario(t *testing.T) {
	a := newTestAuthorizer(nil)
	p := &fakePatient{id: "p1", nurse: nurse.ID, hash: hashOf(t, "1234")}

	tests := []struct {
		name    string
		id      *Identity
		section Section
		code    SuppliedCode
		want    Reason
	}{
		{"vitals with code", nurse, SectionVitals, CodeOf("1234"), ReasonNone},
		{"vitals wrong code", nurse, SectionVitals, CodeOf("1235"), ReasonInvalidCode},
		{"vitals empty code", nurse, SectionVitals, CodeOf(""), ReasonInvalidCode},
		{"vitals absent code", nurse, SectionVitals, NoCode(), ReasonInvalidCode},
		{"nursing notes without code", nurse, SectionNursingNotes, NoCode(), ReasonNone},
		{"unassigned nurse wrong code", nurse2, SectionVitals, CodeOf("0000"), ReasonInvalidCode},
		{"unassigned nurse right code", nurse2, SectionVitals, CodeOf("1234"), ReasonNotAssigned},
		{"unassigned nurse ungated", nurse2, SectionBradenScale, NoCode(), ReasonNotAssigned},
		{"unknown section", nurse, Section("x_rays"), CodeOf("1234"), ReasonNotFound},
		{"nil identity", nil, SectionVitals, CodeOf("1234"), ReasonUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := a.CreateRecord(p, tt.id, tt.section, tt.code)
			if d.Reason != tt.want || d.Allowed != (tt.want == ReasonNone) {
				t.Errorf("decision = %+v, want reason %q", d, tt.want)
			}
		})
	}
}

func TestAuthorizer_AdminSubjectToCodeGate(t *testing.T) {
	a := newTestAuthorizer(nil)
	p := &fakePatient{hash: hashOf(t, "1234")}

	if d := a.CreateRecord(p, admin, SectionLabsImaging, NoCode()); d.Reason != ReasonInvalidCode {
		t.Errorf("admin labs_imaging without code: reason %q, want INVALID_CODE", d.Reason)
	}
	if d := a.CreateRecord(p, admin, SectionLabsImaging, CodeOf("1234")); !d.Allowed {
		t.Errorf("admin labs_imaging with code denied: %q", d.Reason)
	}
	if d := a.CreateRecord(p, admin, SectionNeurological, NoCode()); !d.Allowed {
		t.Errorf("admin ungated section denied: %q", d.Reason)
	}
}

func TestAuthorizer_MutateUsesStoredSection(t *testing.T) {
	a := newTestAuthorizer(nil)
	p := assignedPatient(t)

	doctorNote := fakeRecord{section: SectionDoctorNotes}
	if d := a.MutateRecord(doctorNote, p, nurse, CodeOf("1234")); d.Reason != ReasonForbiddenRole {
		t.Errorf("nurse mutate doctor_notes: reason %q, want FORBIDDEN_ROLE", d.Reason)
	}
	if d := a.DeleteRecord(doctorNote, p, nurse, CodeOf("1234")); d.Reason != ReasonForbiddenRole {
		t.Errorf("nurse delete doctor_notes: reason %q, want FORBIDDEN_ROLE", d.Reason)
	}

	vitals := fakeRecord{section: SectionVitals}
	if d := a.MutateRecord(vitals, p, nurse, NoCode()); d.Reason != ReasonInvalidCode {
		t.Errorf("mutate vitals without code: reason %q, want INVALID_CODE", d.Reason)
	}
	if d := a.DeleteRecord(vitals, p, nurse, CodeOf("1234")); !d.Allowed {
		t.Errorf("delete vitals with code denied: %q", d.Reason)
	}
	if d := a.MutateRecord(nil, p, nurse, CodeOf("1234")); d.Reason != ReasonNotFound {
		t.Errorf("missing record: reason %q, want NOT_FOUND", d.Reason)
	}
	if d := a.DeleteRecord(vitals, nil, nurse, CodeOf("1234")); d.Reason != ReasonNotFound {
		t.Errorf("missing patient: reason %q, want NOT_FOUND", d.Reason)
	}
	if d := a.MutateRecord(vitals, p, nil, CodeOf("1234")); d.Reason != ReasonUnauthenticated {
		t.Errorf("nil identity: reason %q, want UNAUTHENTICATED", d.Reason)
	}
}

func TestAuthorizer_DenialsAreIdempotent(t *testing.T) {
	a := newTestAuthorizer(nil)
	p := assignedPatient(t)

	first := a.CreateRecord(p, nurse2, SectionVitals, CodeOf("1234"))
	for i := 0; i < 5; i++ {
		if d := a.CreateRecord(p, nurse2, SectionVitals, CodeOf("1234")); d != first {
			t.Fatalf("call %d: %+v, first %+v", i, d, first)
		}
	}
}

func TestAuthorizer_UnknownRoleFailsClosed(t *testing.T) {
	a := newTestAuthorizer(nil)
	p := assignedPatient(t)
	ghost := &Identity{ID: nurse.ID, Role: "caregiver"}

	if d := a.CreateRecord(p, ghost, SectionNursingNotes, NoCode()); d.Reason != ReasonForbiddenRole {
		t.Errorf("reason %q, want FORBIDDEN_ROLE", d.Reason)
	}
}

func TestAuthorizer_RecordsMetrics(t *testing.T) {
	rec := &fakeRecorder{}
	a := newTestAuthorizer(rec)
	p := assignedPatient(t)

	a.ViewPatient(p, nurse)
	a.CreateRecord(p, nurse, SectionVitals, CodeOf("0000"))

	if len(rec.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(rec.calls))
	}
	if rec.calls[0] != (recorderCall{OpViewPatient, true, ""}) {
		t.Errorf("first call = %+v", rec.calls[0])
	}
	if rec.calls[1] != (recorderCall{OpCreateRecord, false, "INVALID_CODE"}) {
		t.Errorf("second call = %+v", rec.calls[1])
	}
}

func TestAuthorizer_AuditNeverLogsCode(t *testing.T) {
	var buf strings.Builder
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	a := NewAuthorizer(nil, NewCodeVerifier(bcrypt.MinCost), l, nil)
	p := assignedPatient(t)
	a.CreateRecord(p, nurse, SectionVitals, CodeOf("4821"))
	a.CreateRecord(p, nurse, SectionVitals, CodeOf("1234"))

	out := buf.String()
	if strings.Contains(out, "4821") || strings.Contains(out, "1234") || strings.Contains(out, p.hash) {
		t.Errorf("audit log leaked code material: %s", out)
	}
	if !strings.Contains(out, `"patient_id":"p1"`) || !strings.Contains(out, `"section":"vitals"`) {
		t.Errorf("audit log missing fields: %s", out)
	}
}

func TestAuthorizer_VerifyCode(t *testing.T) {
	a := newTestAuthorizer(nil)
	p := assignedPatient(t)
	if !a.VerifyCode(p, CodeOf("1234")) || a.VerifyCode(p, CodeOf("1235")) {
		t.Error("VerifyCode mismatch")
	}
}
