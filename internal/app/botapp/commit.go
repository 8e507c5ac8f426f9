package botapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/commie294/T4t/internal/domain/enums"
	dialogsvc "github.com/commie294/T4t/internal/services/dialog"
	modsvc "github.com/commie294/T4t/internal/services/moderation"
	profilesvc "github.com/commie294/T4t/internal/services/profiles"
)

// commitDialogue persists the collected answers of a finished dialogue.
// Errors returned here keep the dialogue parked so the user can retry.
func (a *App) commitDialogue(ctx context.Context, userID int64, kind dialogsvc.Kind, values map[string]string) error {
	switch kind {
	case dialogsvc.KindRegistration:
		return a.commitRegistration(ctx, userID, values)
	case dialogsvc.KindEditProfile:
		return a.commitProfileEdit(ctx, userID, values)
	case dialogsvc.KindReport:
		return a.commitReport(ctx, userID, values)
	default:
		return fmt.Errorf("unknown dialogue kind %q", kind)
	}
}

func (a *App) commitRegistration(ctx context.Context, userID int64, values map[string]string) error {
	age, err := strconv.Atoi(values[dialogsvc.KeyAge])
	if err != nil {
		return fmt.Errorf("parse collected age: %w", err)
	}

	_, err = a.profiles.Save(ctx, userID, profilesvc.Input{
		Username:      values[dialogsvc.KeyUsername],
		DisplayName:   values[dialogsvc.KeyName],
		Age:           age,
		Gender:        enums.Gender(values[dialogsvc.KeyGender]),
		GenderDetail:  values[dialogsvc.KeyGenderDetail],
		City:          values[dialogsvc.KeyCity],
		Bio:           values[dialogsvc.KeyBio],
		PhotoFileID:   values[dialogsvc.KeyPhoto],
		AgePreference: values[dialogsvc.KeyAgePreference],
	})
	return err
}

func (a *App) commitProfileEdit(ctx context.Context, userID int64, values map[string]string) error {
	if values[dialogsvc.KeyField] == dialogsvc.KeyGender {
		_, err := a.profiles.UpdateGender(ctx, userID,
			enums.Gender(values[dialogsvc.KeyGender]), values[dialogsvc.KeyGenderDetail])
		return err
	}

	_, err := a.profiles.UpdateField(ctx, userID, values[dialogsvc.KeyField], values[dialogsvc.KeyValue])
	return err
}

func (a *App) commitReport(ctx context.Context, userID int64, values map[string]string) error {
	targetID, err := strconv.ParseInt(values[dialogsvc.KeyReportedID], 10, 64)
	if err != nil {
		return fmt.Errorf("parse reported user id: %w", err)
	}

	_, err = a.moderation.FileReport(ctx, modsvc.ReportInput{
		ReporterUserID: userID,
		TargetUserID:   targetID,
		Reason:         enums.ReportReasonOther,
		Details:        values[dialogsvc.KeyReason],
		EvidenceFileID: values[dialogsvc.KeyEvidence],
	})
	// A second report while the first is still open is a no-op, not a
	// reason to keep the dialogue stuck at commit.
	if errors.Is(err, modsvc.ErrDuplicateReport) {
		return nil
	}
	return err
}
