package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/habittracker/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func fixedClock(now time.Time) Clock {
	return Clock{Now: func() time.Time { return now }, Location: time.UTC}
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared&_foreign_keys=on", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close(gdb)
	})
	return gdb
}

func seedUser(t *testing.T, gdb *gorm.DB, username string) *db.User {
	t.Helper()
	user, err := NewUserService(gdb, bcrypt.MinCost).Create(UserInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "pw123",
	})
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return user
}

func strPtr(value string) *string {
	return &value
}

func TestHabitServiceCreateNormalizes(t *testing.T) {
	gdb := setupServiceTestDB(t)
	alice := seedUser(t, gdb, "alice")
	svc := NewHabitService(gdb, fixedClock(fixedNow))

	habit, err := svc.Create(alice.ID, HabitInput{
		Name:         "  read   books ",
		Description:  strPtr("  Read >= 30 minutes & <3 it  "),
		Category:     "personal development",
		Frequency:    "daily",
		ReminderTime: "7:30",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if habit.ID == 0 {
		t.Fatal("expected habit to have ID")
	}
	if habit.Name != "Read Books" {
		t.Fatalf("expected normalized name, got %q", habit.Name)
	}
	if habit.Description == nil || *habit.Description != "Read >= 30 minutes & <3 it" {
		t.Fatalf("expected description stored as plain text, got %v", habit.Description)
	}
	if habit.Category != db.CategoryPersonalDevelopment {
		t.Fatalf("unexpected category %q", habit.Category)
	}
	if habit.Frequency != db.FrequencyDaily {
		t.Fatalf("unexpected frequency %q", habit.Frequency)
	}
	if habit.ReminderTime == nil || *habit.ReminderTime != "07:30:00" {
		t.Fatalf("unexpected reminder time %v", habit.ReminderTime)
	}
	if !habit.StartDate.Equal(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected start date today, got %s", habit.StartDate)
	}

	byName, err := svc.GetByName(alice.ID, "Read Books")
	if err != nil {
		t.Fatalf("GetByName returned error: %v", err)
	}
	if byName.ID != habit.ID {
		t.Fatalf("expected habit %d by name, got %d", habit.ID, byName.ID)
	}
}

func TestHabitServiceCreateDefaultsAndValidation(t *testing.T) {
	gdb := setupServiceTestDB(t)
	alice := seedUser(t, gdb, "alice")
	svc := NewHabitService(gdb, fixedClock(fixedNow))

	habit, err := svc.Create(alice.ID, HabitInput{Name: "stretch", Frequency: "Weekly"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if habit.Category != db.CategoryGeneral {
		t.Fatalf("expected default category General, got %q", habit.Category)
	}
	if habit.Description != nil || habit.ReminderTime != nil {
		t.Fatal("expected optional fields to stay empty")
	}

	tests := []struct {
		name  string
		input HabitInput
		want  error
	}{
		{name: "missing name", input: HabitInput{Name: "  ", Frequency: "daily"}, want: ErrInvalidInput},
		{name: "missing frequency", input: HabitInput{Name: "read"}, want: ErrInvalidFrequency},
		{name: "invalid frequency", input: HabitInput{Name: "read", Frequency: "hourly"}, want: ErrInvalidFrequency},
		{name: "invalid category", input: HabitInput{Name: "read", Frequency: "daily", Category: "education"}, want: ErrInvalidCategory},
		{name: "invalid reminder", input: HabitInput{Name: "read", Frequency: "daily", ReminderTime: "25:99"}, want: ErrInvalidReminderTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(alice.ID, tt.input); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestHabitServiceOwnershipIsolation(t *testing.T) {
	gdb := setupServiceTestDB(t)
	alice := seedUser(t, gdb, "alice")
	bob := seedUser(t, gdb, "bob")
	svc := NewHabitService(gdb, fixedClock(fixedNow))

	habit, err := svc.Create(alice.ID, HabitInput{Name: "read", Frequency: "daily"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := svc.GetOfUser(habit.ID, bob.ID); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound for other user, got %v", err)
	}
	if _, err := svc.GetOfUser(9999, alice.ID); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound for missing habit, got %v", err)
	}
	if _, err := svc.GetByName(bob.ID, "Read"); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound by name for other user, got %v", err)
	}
	if _, err := svc.Update(habit.ID, bob.ID, HabitPatch{Name: strPtr("hijack")}); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound on update, got %v", err)
	}
	if err := svc.Delete(habit.ID, bob.ID); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound on delete, got %v", err)
	}

	bobHabits, err := svc.List(bob.ID, HabitFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(bobHabits) != 0 {
		t.Fatalf("expected bob to see no habits, got %d", len(bobHabits))
	}

	reloaded, err := svc.GetOfUser(habit.ID, alice.ID)
	if err != nil {
		t.Fatalf("GetOfUser returned error: %v", err)
	}
	if reloaded.Name != "Read" {
		t.Fatalf("expected habit untouched, got %q", reloaded.Name)
	}
}

func TestHabitServiceUpdateMergesFields(t *testing.T) {
	gdb := setupServiceTestDB(t)
	alice := seedUser(t, gdb, "alice")
	svc := NewHabitService(gdb, fixedClock(fixedNow))

	habit, err := svc.Create(alice.ID, HabitInput{
		Name:         "read books",
		Description:  strPtr("Read 30 minutes daily"),
		Category:     "personal development",
		Frequency:    "daily",
		ReminderTime: "21:00",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	later := NewHabitService(gdb, fixedClock(fixedNow.AddDate(0, 0, 3)))
	updated, err := later.Update(habit.ID, alice.ID, HabitPatch{Description: strPtr("Read 1 hour daily")})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.Name != "Read Books" {
		t.Fatalf("expected name to stay, got %q", updated.Name)
	}
	if updated.Description == nil || *updated.Description != "Read 1 hour daily" {
		t.Fatalf("expected description to update, got %v", updated.Description)
	}
	if updated.Category != db.CategoryPersonalDevelopment || updated.Frequency != db.FrequencyDaily {
		t.Fatalf("expected enums to stay, got %q/%q", updated.Category, updated.Frequency)
	}
	if !updated.StartDate.Equal(habit.StartDate) {
		t.Fatalf("expected start date to stay, got %s", updated.StartDate)
	}

	updated, err = svc.Update(habit.ID, alice.ID, HabitPatch{
		Name:         strPtr("morning run"),
		Category:     strPtr("FITNESS"),
		Frequency:    strPtr("weekly"),
		Description:  strPtr(""),
		ReminderTime: strPtr(""),
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Name != "Morning Run" || updated.Category != db.CategoryFitness || updated.Frequency != db.FrequencyWeekly {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if updated.Description != nil || updated.ReminderTime != nil {
		t.Fatal("expected optional fields to be cleared")
	}

	if _, err := svc.Update(habit.ID, alice.ID, HabitPatch{Category: strPtr("education")}); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := svc.Update(habit.ID, alice.ID, HabitPatch{Category: strPtr("")}); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory for empty category, got %v", err)
	}
	if _, err := svc.Update(habit.ID, alice.ID, HabitPatch{Frequency: strPtr("  ")}); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency for empty frequency, got %v", err)
	}

	reloaded, err := svc.GetOfUser(habit.ID, alice.ID)
	if err != nil {
		t.Fatalf("GetOfUser returned error: %v", err)
	}
	if reloaded.Category != db.CategoryFitness || reloaded.Frequency != db.FrequencyWeekly {
		t.Fatalf("expected rejected patches to leave enums alone, got %q/%q", reloaded.Category, reloaded.Frequency)
	}
}

func TestHabitServiceRejectsMarkup(t *testing.T) {
	gdb := setupServiceTestDB(t)
	alice := seedUser(t, gdb, "alice")
	svc := NewHabitService(gdb, fixedClock(fixedNow))

	tests := []struct {
		name  string
		input HabitInput
	}{
		{name: "tag-like name", input: HabitInput{Name: "a<b", Frequency: "daily"}},
		{name: "script name", input: HabitInput{Name: "<script>alert(1)</script>", Frequency: "daily"}},
		{name: "tag in description", input: HabitInput{Name: "water", Frequency: "weekly", Description: strPtr("water plants <ferns only> weekly")}},
		{name: "entity in description", input: HabitInput{Name: "water", Frequency: "weekly", Description: strPtr("ferns&nbsp;only")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(alice.ID, tt.input); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	var count int64
	gdb.Model(&db.Habit{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no habits stored, got %d", count)
	}

	habit, err := svc.Create(alice.ID, HabitInput{Name: "a < b", Frequency: "daily"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if habit.Name != "A < B" {
		t.Fatalf("expected comparison text kept, got %q", habit.Name)
	}

	if _, err := svc.Update(habit.ID, alice.ID, HabitPatch{Name: strPtr("<b>bold</b>")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput on update, got %v", err)
	}
	if _, err := svc.Update(habit.ID, alice.ID, HabitPatch{Description: strPtr("<i>soon</i>")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput on description update, got %v", err)
	}
}

func TestHabitServiceListFilters(t *testing.T) {
	gdb := setupServiceTestDB(t)
	alice := seedUser(t, gdb, "alice")
	svc := NewHabitService(gdb, fixedClock(fixedNow))

	inputs := []HabitInput{
		{Name: "read", Category: "personal development", Frequency: "daily"},
		{Name: "run", Category: "fitness", Frequency: "daily"},
		{Name: "budget review", Category: "finance", Frequency: "monthly", Description: strPtr("check spending")},
		{Name: "lift", Category: "fitness", Frequency: "weekly", Description: strPtr("100% effort")},
	}
	for _, input := range inputs {
		if _, err := svc.Create(alice.ID, input); err != nil {
			t.Fatalf("failed to seed habit %s: %v", input.Name, err)
		}
	}

	tests := []struct {
		name   string
		filter HabitFilter
		want   []string
	}{
		{name: "all", filter: HabitFilter{}, want: []string{"Read", "Run", "Budget Review", "Lift"}},
		{name: "category", filter: HabitFilter{Category: "Fitness"}, want: []string{"Run", "Lift"}},
		{name: "frequency", filter: HabitFilter{Frequency: "DAILY"}, want: []string{"Read", "Run"}},
		{name: "both", filter: HabitFilter{Category: "fitness", Frequency: "weekly"}, want: []string{"Lift"}},
		{name: "search description", filter: HabitFilter{Search: "spending"}, want: []string{"Budget Review"}},
		{name: "search ignores case", filter: HabitFilter{Search: "SPENDING"}, want: []string{"Budget Review"}},
		{name: "search name ignores case", filter: HabitFilter{Search: "bUdGeT"}, want: []string{"Budget Review"}},
		{name: "percent is literal", filter: HabitFilter{Search: "%"}, want: []string{"Lift"}},
		{name: "underscore is literal", filter: HabitFilter{Search: "_"}, want: []string{}},
		{name: "backslash is literal", filter: HabitFilter{Search: `\`}, want: []string{}},
		{name: "no match", filter: HabitFilter{Category: "social"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			habits, err := svc.List(alice.ID, tt.filter)
			if err != nil {
				t.Fatalf("List returned error: %v", err)
			}
			if len(habits) != len(tt.want) {
				t.Fatalf("expected %d habits, got %d", len(tt.want), len(habits))
			}
			for i, habit := range habits {
				if habit.Name != tt.want[i] {
					t.Fatalf("expected habit %d to be %q, got %q", i, tt.want[i], habit.Name)
				}
			}
		})
	}

	if _, err := svc.List(alice.ID, HabitFilter{Category: "education"}); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := svc.List(alice.ID, HabitFilter{Frequency: "hourly"}); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestHabitServiceDeleteRemovesCompletions(t *testing.T) {
	gdb := setupServiceTestDB(t)
	alice := seedUser(t, gdb, "alice")
	clock := fixedClock(fixedNow)
	svc := NewHabitService(gdb, clock)

	habit, err := svc.Create(alice.ID, HabitInput{Name: "read", Frequency: "daily"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := NewCompletionService(gdb, clock).MarkToday(habit.ID, alice.ID, true); err != nil {
		t.Fatalf("MarkToday returned error: %v", err)
	}

	if err := svc.Delete(habit.ID, alice.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, err := svc.GetOfUser(habit.ID, alice.ID); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected habit to be gone, got %v", err)
	}

	var count int64
	gdb.Model(&db.HabitCompletion{}).Where("habit_id = ?", habit.ID).Count(&count)
	if count != 0 {
		t.Fatalf("expected completions to be removed, got %d", count)
	}
}
