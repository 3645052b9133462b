package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
)

func sem(id string, status models.PeriodStatus, sections ...Record) Record {
	return Record{ID: id, Kind: "semester", Path: "academic_years/y/semesters/" + id, Status: status, Children: sections}
}

func sec(id string, status models.PeriodStatus) Record {
	return Record{ID: id, Kind: "section", Path: "sections/" + id, Status: status}
}

func year(id string, status models.PeriodStatus, semesters ...Record) Record {
	return Record{ID: id, Kind: "academic_year", Path: "academic_years/" + id, Status: status, Children: semesters}
}

func TestPlanActivationArchivesOtherActiveSiblings(t *testing.T) {
	siblings := []Record{
		year("y1", models.StatusActive, sem("s1", models.StatusActive, sec("c1", models.StatusActive), sec("c2", models.StatusUpcoming))),
		year("y2", models.StatusUpcoming, sem("s2", models.StatusActive)),
		year("y3", models.StatusArchived),
	}

	plan, err := PlanActivation("y2", siblings)
	require.NoError(t, err)

	after := plan.Apply(siblings)
	assert.Equal(t, models.StatusArchived, after[0].Status)
	assert.Equal(t, models.StatusArchived, after[0].Children[0].Status)
	assert.Equal(t, models.StatusArchived, after[0].Children[0].Children[0].Status)
	assert.Equal(t, models.StatusUpcoming, after[0].Children[0].Children[1].Status)
	assert.Equal(t, models.StatusActive, after[1].Status)
	// target's own children untouched
	assert.Equal(t, models.StatusActive, after[1].Children[0].Status)
	assert.Equal(t, models.StatusArchived, after[2].Status)
	assert.Equal(t, 1, ActiveCount(after))
	assert.Equal(t, "y2", plan.Target().ID)
	assert.Len(t, plan.Archived(), 3)
}

func TestPlanActivationIdempotent(t *testing.T) {
	siblings := []Record{
		sem("s1", models.StatusActive, sec("a", models.StatusActive)),
		sem("s2", models.StatusActive),
	}

	plan, err := PlanActivation("s1", siblings)
	require.NoError(t, err)
	once := plan.Apply(siblings)

	again, err := PlanActivation("s1", once)
	require.NoError(t, err)
	twice := again.Apply(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, models.StatusActive, twice[0].Status)
	assert.Equal(t, models.StatusActive, twice[0].Children[0].Status)
	assert.Equal(t, models.StatusArchived, twice[1].Status)
	assert.Len(t, again.Changes, 1)
}

func TestPlanActivationUnknownTarget(t *testing.T) {
	_, err := PlanActivation("missing", []Record{sem("s1", models.StatusActive)})
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestPlanActivationOnlyChangesActiveRecords(t *testing.T) {
	siblings := []Record{
		sem("s1", models.StatusUpcoming, sec("a", models.StatusActive)),
		sem("s2", models.StatusArchived),
		sem("s3", models.StatusUpcoming),
	}
	plan, err := PlanActivation("s3", siblings)
	require.NoError(t, err)

	require.Len(t, plan.Changes, 1)
	assert.Equal(t, Change{ID: "s3", Kind: "semester", Path: "academic_years/y/semesters/s3", From: models.StatusUpcoming, To: models.StatusActive}, plan.Changes[0])
}

func TestPlanArchiveCascades(t *testing.T) {
	record := sem("s1", models.StatusActive, sec("a", models.StatusActive), sec("b", models.StatusArchived))
	plan := PlanArchive(record)

	after := plan.Apply([]Record{record})
	assert.Equal(t, models.StatusArchived, after[0].Status)
	assert.Equal(t, models.StatusArchived, after[0].Children[0].Status)
	assert.Equal(t, models.StatusArchived, after[0].Children[1].Status)
	assert.Len(t, plan.Changes, 2)
}

func TestCheckDeletable(t *testing.T) {
	tests := []struct {
		name     string
		status   models.PeriodStatus
		children int
		want     error
	}{
		{name: "active without children", status: models.StatusActive, want: ErrActiveRecord},
		{name: "active with children", status: models.StatusActive, children: 2, want: ErrActiveRecord},
		{name: "upcoming with children", status: models.StatusUpcoming, children: 1, want: ErrHasChildren},
		{name: "archived empty", status: models.StatusArchived},
		{name: "unset status empty", status: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckDeletable(tc.status, tc.children)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCheckChildStatus(t *testing.T) {
	assert.NoError(t, CheckChildStatus(models.StatusActive, models.StatusActive))
	assert.NoError(t, CheckChildStatus(models.StatusUpcoming, models.StatusArchived))
	assert.NoError(t, CheckChildStatus(models.StatusArchived, models.StatusUpcoming))
	assert.ErrorIs(t, CheckChildStatus(models.StatusActive, models.StatusUpcoming), ErrParentNotActive)
	assert.ErrorIs(t, CheckChildStatus(models.StatusActive, models.StatusArchived), ErrParentNotActive)
}

func TestDuplicateName(t *testing.T) {
	existing := []Named{{ID: "1", Name: "Computer Science"}, {ID: "2", Name: "  Nursing "}}

	assert.True(t, DuplicateName("Computer Science", "", existing))
	assert.True(t, DuplicateName("  Computer Science  ", "", existing))
	assert.True(t, DuplicateName("Nursing", "", existing))
	assert.False(t, DuplicateName("computer science", "", existing))
	assert.False(t, DuplicateName("Computer Science", "1", existing))
	assert.True(t, DuplicateName("Nursing", "1", existing))
	assert.False(t, DuplicateName("Education", "", nil))
}

func TestViolations(t *testing.T) {
	records := []Record{
		year("y1", models.StatusActive, sem("s1", models.StatusActive), sem("s2", models.StatusActive)),
		year("y2", models.StatusActive),
	}
	got := Violations("academic_years", records)
	require.Len(t, got, 2)
	assert.Equal(t, "academic_years", got[0].Scope)
	assert.ElementsMatch(t, []string{"y1", "y2"}, got[0].Active)
	assert.Equal(t, "academic_years/y1", got[1].Scope)

	plan, err := PlanActivation("y1", records)
	require.NoError(t, err)
	assert.Len(t, Violations("academic_years", plan.Apply(records)), 1)
}
