package access

import (
	"github.com/sirupsen/logrus"

	"github.com/WailSalutem-Health-Care/micu-service/internal/logging"
)

// Operation names used in audit logs and decision metrics.
const (
	OpViewPatient  = "patient.view"
	OpListPatients = "patient.list"
	OpReadRecords  = "record.read"
	OpCreateRecord = "record.create"
	OpUpdateRecord = "record.update"
	OpDeleteRecord = "record.delete"
)

// DecisionRecorder receives one call per authorization decision.
type DecisionRecorder interface {
	RecordAuthorizationDecision(operation string, allowed bool, reason string)
}

// PatientScope narrows a patient listing to one assignment column. The zero
// value means no restriction.
type PatientScope struct {
	AssignedNurseID  string
	AssignedDoctorID string
}

// Unrestricted reports whether the scope returns every patient.
func (s PatientScope) Unrestricted() bool {
	return s.AssignedNurseID == "" && s.AssignedDoctorID == ""
}

// Authorizer decides every read and write against patient data. It holds no
// per-request state; callers pass a patient or record snapshot loaded for the
// current request.
type Authorizer struct {
	policy  PolicyTable
	codes   *CodeVerifier
	logger  logrus.FieldLogger
	metrics DecisionRecorder
}

// NewAuthorizer builds an engine. A nil policy uses DefaultPolicyTable, a nil
// verifier uses bcrypt's default cost, and a nil logger uses the standard
// logrus logger. metrics may be nil.
func NewAuthorizer(policy PolicyTable, codes *CodeVerifier, logger logrus.FieldLogger, metrics DecisionRecorder) *Authorizer {
	if policy == nil {
		policy = DefaultPolicyTable()
	}
	if codes == nil {
		codes = NewCodeVerifier(0)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Authorizer{policy: policy, codes: codes, logger: logger, metrics: metrics}
}

// Policy returns the section policy table in use.
func (a *Authorizer) Policy() PolicyTable {
	return a.policy
}

// Codes returns the access-code verifier in use.
func (a *Authorizer) Codes() *CodeVerifier {
	return a.codes
}

// ViewPatient allows admins and assigned staff.
func (a *Authorizer) ViewPatient(p Patient, id *Identity) Decision {
	return a.record(OpViewPatient, id, p, "", a.view(p, id))
}

// ReadRecords has the same rule as ViewPatient. Reads are not section-gated.
func (a *Authorizer) ReadRecords(p Patient, id *Identity) Decision {
	return a.record(OpReadRecords, id, p, "", a.view(p, id))
}

// ListPatients returns the listing scope for the caller. Admins always see
// every patient; staff see only their own assignments when assignedOnly is
// set.
func (a *Authorizer) ListPatients(id *Identity, assignedOnly bool) (PatientScope, Decision) {
	var scope PatientScope
	var d Decision

	switch {
	case id == nil:
		d = Deny(ReasonUnauthenticated)
	case id.Role == RoleAdmin:
		d = Allow()
	case id.Role == RoleNurse:
		if assignedOnly {
			scope.AssignedNurseID = id.ID
		}
		d = Allow()
	case id.Role == RoleDoctor:
		if assignedOnly {
			scope.AssignedDoctorID = id.ID
		}
		d = Allow()
	default:
		d = Deny(ReasonForbiddenRole)
	}

	// An empty staff ID would otherwise widen to an unrestricted scope.
	if d.Allowed && assignedOnly && id.Role.IsStaff() && id.ID == "" {
		d = Deny(ReasonNotAssigned)
	}
	return scope, a.record(OpListPatients, id, nil, "", d)
}

// CreateRecord checks a new record in section for patient p.
func (a *Authorizer) CreateRecord(p Patient, id *Identity, section Section, code SuppliedCode) Decision {
	return a.record(OpCreateRecord, id, p, section, a.write(p, id, section, code))
}

// MutateRecord checks an update of an existing record. The section always
// comes from the stored record.
func (a *Authorizer) MutateRecord(rec Record, p Patient, id *Identity, code SuppliedCode) Decision {
	return a.mutate(OpUpdateRecord, rec, p, id, code)
}

// DeleteRecord follows the same rules as MutateRecord.
func (a *Authorizer) DeleteRecord(rec Record, p Patient, id *Identity, code SuppliedCode) Decision {
	return a.mutate(OpDeleteRecord, rec, p, id, code)
}

// VerifyCode reports whether code matches the patient's access code.
func (a *Authorizer) VerifyCode(p Patient, code SuppliedCode) bool {
	return a.codes.VerifyCode(p, code)
}

func (a *Authorizer) mutate(op string, rec Record, p Patient, id *Identity, code SuppliedCode) Decision {
	var d Decision
	var section Section
	switch {
	case id == nil:
		d = Deny(ReasonUnauthenticated)
	case rec == nil:
		d = Deny(ReasonNotFound)
	default:
		section = rec.RecordSection()
		d = a.write(p, id, section, code)
	}
	return a.record(op, id, p, section, d)
}

func (a *Authorizer) view(p Patient, id *Identity) Decision {
	switch {
	case id == nil:
		return Deny(ReasonUnauthenticated)
	case p == nil:
		return Deny(ReasonNotFound)
	case IsAssigned(p, id):
		return Allow()
	}
	return Deny(ReasonNotAssigned)
}

// write applies the section rules in order: known section, role, code gate,
// then assignment. The code check runs before the assignment check.
func (a *Authorizer) write(p Patient, id *Identity, section Section, code SuppliedCode) Decision {
	if id == nil {
		return Deny(ReasonUnauthenticated)
	}
	if p == nil {
		return Deny(ReasonNotFound)
	}
	pol, ok := a.policy.Lookup(section)
	if !ok {
		return Deny(ReasonNotFound)
	}
	if !pol.Writable(id.Role) {
		return Deny(ReasonForbiddenRole)
	}
	if pol.CodeGated && !a.codes.VerifyCode(p, code) {
		return Deny(ReasonInvalidCode)
	}
	if id.Role.IsStaff() && !IsAssigned(p, id) {
		return Deny(ReasonNotAssigned)
	}
	return Allow()
}

type identifiable interface {
	PatientID() string
}

func (a *Authorizer) record(op string, id *Identity, p Patient, section Section, d Decision) Decision {
	fields := logrus.Fields{}
	if d.Reason != ReasonNone {
		fields["reason"] = string(d.Reason)
	}
	if section != "" {
		fields["section"] = string(section)
	}
	if ip, ok := p.(identifiable); ok {
		fields["patient_id"] = ip.PatientID()
	}

	var userID, role string
	if id != nil {
		userID, role = id.ID, string(id.Role)
	}
	logging.Audit(a.logger, userID, role, op, d.Allowed, fields)

	if a.metrics != nil {
		a.metrics.RecordAuthorizationDecision(op, d.Allowed, string(d.Reason))
	}
	return d
}
