//go:build integration

package e2e

import (
	"net/http"
	"testing"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
	"github.com/WailSalutem-Health-Care/micu-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/micu-service/internal/records"
	"github.com/WailSalutem-Health-Care/micu-service/internal/testutil"
)

func assertDenied(t *testing.T, resp *http.Response, status int, reason string) {
	t.Helper()
	testutil.AssertStatusCode(t, resp, status)
	var body auth.ErrorResponse
	testutil.DecodeJSON(t, resp, &body)
	if body.Error != reason {
		t.Errorf("Expected %s, got %s", reason, body.Error)
	}
}

func TestE2E_RecordLifecycle(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	staff := ts.SeedStaff(t)
	patientID := testutil.CreateTestPatient(t, ts.DB, "Juan Dela Cruz", staff.NurseID, staff.DoctorID, "1234")
	base := "/api/patients/" + patientID + "/records"
	nurse := ts.NewClient(staff.NurseToken)

	vitals := map[string]interface{}{
		"section":   "vitals",
		"timestamp": "2026-03-01T08:15:00Z",
		"data":      map[string]interface{}{"hr": 88, "bp": "120/80"},
	}

	// Code gated without a code
	resp := nurse.POST(t, base, vitals)
	assertDenied(t, resp, http.StatusUnauthorized, "INVALID_CODE")

	vitals["code"] = "1234"
	resp = nurse.POST(t, base, vitals)
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	var created records.Record
	testutil.DecodeJSON(t, resp, &created)
	if created.RecordedBy.ID != staff.NurseID || created.RecordedBy.Name != "Nurse Dela Cruz" {
		t.Errorf("Unexpected recordedBy: %+v", created.RecordedBy)
	}
	if created.Status != records.DefaultStatus {
		t.Errorf("Expected status %s, got %s", records.DefaultStatus, created.Status)
	}
	ts.MockPublisher.AssertEventPublished(t, messaging.EventRecordCreated)

	// Header code on update
	resp = nurse.Do(t, http.MethodPut, base+"/"+created.ID,
		map[string]interface{}{"data": map[string]interface{}{"hr": 92}},
		map[string]string{records.AccessCodeHeader: "1234"})
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var updated records.Record
	testutil.DecodeJSON(t, resp, &updated)
	if updated.Section != access.SectionVitals {
		t.Errorf("Expected section to stay vitals, got %s", updated.Section)
	}

	resp = nurse.GET(t, base+"?section=vitals&hour=8")
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var list []records.Record
	testutil.DecodeJSON(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(list))
	}

	resp = nurse.DELETE(t, base+"/"+created.ID, map[string]string{"code": "1235"})
	assertDenied(t, resp, http.StatusUnauthorized, "INVALID_CODE")

	resp = nurse.DELETE(t, base+"/"+created.ID, map[string]string{"code": "1234"})
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var deleted records.DeleteResponse
	testutil.DecodeJSON(t, resp, &deleted)
	if !deleted.Success {
		t.Error("Expected success to be true")
	}
	ts.MockPublisher.AssertEventPublished(t, messaging.EventRecordDeleted)

	resp = nurse.DELETE(t, base+"/"+created.ID, map[string]string{"code": "1234"})
	assertDenied(t, resp, http.StatusNotFound, "NOT_FOUND")
}

func TestE2E_RecordSectionPolicy(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	staff := ts.SeedStaff(t)
	patientID := testutil.CreateTestPatient(t, ts.DB, "Juan Dela Cruz", staff.NurseID, staff.DoctorID, "1234")
	base := "/api/patients/" + patientID + "/records"

	note := map[string]interface{}{
		"section": "doctor_notes",
		"data":    map[string]interface{}{"text": "Improving"},
	}

	resp := ts.NewClient(staff.NurseToken).POST(t, base, note)
	assertDenied(t, resp, http.StatusForbidden, "FORBIDDEN_ROLE")

	resp = ts.NewClient(staff.AdminToken).POST(t, base, note)
	assertDenied(t, resp, http.StatusForbidden, "FORBIDDEN_ROLE")

	// doctor_notes is not code gated
	resp = ts.NewClient(staff.DoctorToken).POST(t, base, note)
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	// Ungated nursing section needs no code
	resp = ts.NewClient(staff.NurseToken).POST(t, base, map[string]interface{}{
		"section": "nursing_notes",
		"data":    map[string]interface{}{"text": "Turned patient"},
	})
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()
}

func TestE2E_RecordAssignment(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	staff := ts.SeedStaff(t)
	otherNurseID := testutil.CreateTestUser(t, ts.DB, access.RoleNurse, "Nurse Reyes")
	patientID := testutil.CreateTestPatient(t, ts.DB, "Juan Dela Cruz", staff.NurseID, staff.DoctorID, "1234")
	base := "/api/patients/" + patientID + "/records"

	other := ts.NewClient(testutil.GenerateNurseToken(t, ts.PrivateKey, otherNurseID))

	resp := other.GET(t, base)
	assertDenied(t, resp, http.StatusForbidden, "NOT_ASSIGNED")

	// Without the code the gate fails before assignment is checked
	resp = other.POST(t, base, map[string]interface{}{
		"section": "vitals",
		"data":    map[string]interface{}{"hr": 70},
	})
	assertDenied(t, resp, http.StatusUnauthorized, "INVALID_CODE")

	resp = other.POST(t, base, map[string]interface{}{
		"section": "vitals",
		"data":    map[string]interface{}{"hr": 70},
		"code":    "1234",
	})
	assertDenied(t, resp, http.StatusForbidden, "NOT_ASSIGNED")

	// Admin reads any patient
	resp = ts.NewClient(staff.AdminToken).GET(t, base)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()
}
