package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/patient"
	"github.com/WailSalutem-Health-Care/micu-service/internal/users"
)

func seedCmd() *cobra.Command {
	var adminID, nurseID, doctorID string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo staff and patients",
		Long: "Upserts one admin, nurse and doctor, then admits two demo patients " +
			"assigned to them. Staff IDs must match the subjects issued by the identity provider.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), adminID, nurseID, doctorID)
		},
	}

	cmd.Flags().StringVar(&adminID, "admin-id", "seed-admin", "subject of the admin user")
	cmd.Flags().StringVar(&nurseID, "nurse-id", "seed-nurse", "subject of the nurse user")
	cmd.Flags().StringVar(&doctorID, "doctor-id", "seed-doctor", "subject of the doctor user")
	return cmd
}

func runSeed(ctx context.Context, adminID, nurseID, doctorID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	authz, err := newAuthorizer(cfg, nil)
	if err != nil {
		return err
	}

	userRepo := users.NewRepository(database)
	staff := []users.User{
		{ID: adminID, Username: "admin", Role: access.RoleAdmin, FullName: "System Admin"},
		{ID: nurseID, Username: "nurse", Role: access.RoleNurse, FullName: "Nurse Dela Cruz"},
		{ID: doctorID, Username: "doctor", Role: access.RoleDoctor, FullName: "Dr. Smith"},
	}
	for i := range staff {
		if err := userRepo.Upsert(ctx, &staff[i]); err != nil {
			return err
		}
		log.WithFields(log.Fields{"user_id": staff[i].ID, "role": staff[i].Role}).Info("✓ Seeded user")
	}

	patientRepo := patient.NewRepository(database)
	service := patient.NewService(patientRepo, authz, userRepo, nil, nil, cfg.TotalBeds)
	admin := &access.Identity{ID: adminID, Role: access.RoleAdmin, FullName: "System Admin"}

	age45, age62 := 45, 62
	demo := []patient.CreatePatientRequest{
		{
			HospitalID:       "54382341",
			Name:             "Juan Dela Cruz",
			BedNumber:        "A-12",
			Status:           patient.StatusStable,
			Age:              &age45,
			Sex:              "M",
			Condition:        "Pneumonia",
			AssignedNurseID:  nurseID,
			AssignedDoctorID: doctorID,
			Code:             "1234",
		},
		{
			HospitalID:       "54381210",
			Name:             "Maria Santos",
			BedNumber:        "B-08",
			Status:           patient.StatusCritical,
			Age:              &age62,
			Sex:              "F",
			Condition:        "Sepsis",
			AssignedNurseID:  nurseID,
			AssignedDoctorID: doctorID,
			Code:             "5678",
		},
	}

	for _, req := range demo {
		existing, _, err := patientRepo.ListPatients(ctx, patient.ListFilter{Search: req.HospitalID, Limit: 20})
		if err != nil {
			return err
		}
		if hasHospitalID(existing, req.HospitalID) {
			log.WithField("hospital_id", req.HospitalID).Info("Patient already seeded, skipping")
			continue
		}

		created, err := service.CreatePatient(ctx, req, admin)
		if err != nil {
			return fmt.Errorf("seed patient %s: %w", req.Name, err)
		}
		log.WithFields(log.Fields{
			"patient_id": created.ID,
			"bed":        created.BedNumber,
		}).Info("✓ Seeded patient")
	}
	return nil
}

func hasHospitalID(patients []patient.Patient, hospitalID string) bool {
	for _, p := range patients {
		if p.HospitalID == hospitalID {
			return true
		}
	}
	return false
}
