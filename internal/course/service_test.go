package course

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndListByEmail(t *testing.T) {
	svc := NewService()

	created, err := svc.Create(Registration{
		StudentName: "A",
		StudentID:   "1",
		CourseName:  "CS101",
		CourseID:    "C1",
		Email:       "alice@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := svc.ListByEmail("alice@example.com")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].StudentName)
	assert.Equal(t, "1", got[0].StudentID)
	assert.Equal(t, "CS101", got[0].CourseName)
	assert.Equal(t, "C1", got[0].CourseID)
	assert.Equal(t, "alice@example.com", got[0].Email)
}

func TestCreateAllowsDuplicatePairs(t *testing.T) {
	svc := NewService()

	reg := Registration{
		StudentName: "A",
		StudentID:   "1",
		CourseName:  "CS101",
		CourseID:    "C1",
		Email:       "alice@example.com",
	}
	first, err := svc.Create(reg)
	require.NoError(t, err)
	second, err := svc.Create(reg)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := svc.ListByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	svc := NewService()

	_, err := svc.Create(Registration{
		StudentName: "A",
		StudentID:   "1",
		CourseName:  "",
		CourseID:    "C1",
		Email:       "alice@example.com",
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	got, err := svc.ListByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListByEmailFiltersOwner(t *testing.T) {
	svc := NewService()

	_, err := svc.Create(Registration{StudentName: "A", StudentID: "1", CourseName: "CS101", CourseID: "C1", Email: "alice@example.com"})
	require.NoError(t, err)
	_, err = svc.Create(Registration{StudentName: "B", StudentID: "2", CourseName: "CS102", CourseID: "C2", Email: "bob@example.com"})
	require.NoError(t, err)

	got, err := svc.ListByEmail("bob@example.com")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].StudentName)

	empty, err := svc.ListByEmail("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFileBackedServicePersistsAcrossInstances(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "courses.json")

	svc, err := NewServiceWithFile(stateFile)
	require.NoError(t, err)
	_, err = svc.Create(Registration{StudentName: "A", StudentID: "1", CourseName: "CS101", CourseID: "C1", Email: "alice@example.com"})
	require.NoError(t, err)

	svc2, err := NewServiceWithFile(stateFile)
	require.NoError(t, err)
	got, err := svc2.ListByEmail("alice@example.com")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "CS101", got[0].CourseName)
}
