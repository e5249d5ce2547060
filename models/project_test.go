package models

import (
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// In-memory sqlite databases are per-connection
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return db
}

func seedProject(t *testing.T, db *gorm.DB) *Project {
	t.Helper()

	owner := User{Email: "owner@example.com", PasswordHash: "x", Name: "Owner", Role: RoleDeveloper}
	require.NoError(t, db.Create(&owner).Error)

	org := Organization{Name: "Acme", Slug: "acme", OwnerID: owner.ID}
	require.NoError(t, org.CreateWithOwner(db))

	project := Project{
		Name:           "Demo",
		Key:            "DEMO",
		OrganizationID: org.ID,
		LeadID:         owner.ID,
		Settings:       DefaultProjectSettings(),
	}
	require.NoError(t, db.Create(&project).Error)
	return &project
}

func TestNextIssueSeqSequential(t *testing.T) {
	db := newTestDB(t)
	project := seedProject(t, db)

	for want := int64(1); want <= 5; want++ {
		seq, err := NextIssueSeq(db, project.ID)
		require.NoError(t, err)
		assert.Equal(t, want, seq)
	}
}

func TestNextIssueSeqPerProject(t *testing.T) {
	db := newTestDB(t)
	first := seedProject(t, db)

	second := Project{
		Name:           "Other",
		Key:            "OTHR",
		OrganizationID: first.OrganizationID,
		LeadID:         first.LeadID,
		Settings:       DefaultProjectSettings(),
	}
	require.NoError(t, db.Create(&second).Error)

	seq, err := NextIssueSeq(db, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	seq, err = NextIssueSeq(db, second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	seq, err = NextIssueSeq(db, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestNextIssueSeqConcurrent(t *testing.T) {
	db := newTestDB(t)
	project := seedProject(t, db)

	const workers = 20
	seqs := make(chan int64, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := NextIssueSeq(db, project.ID)
			assert.NoError(t, err)
			seqs <- seq
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool, workers)
	for seq := range seqs {
		assert.False(t, seen[seq], "sequence %d assigned twice", seq)
		assert.GreaterOrEqual(t, seq, int64(1))
		assert.LessOrEqual(t, seq, int64(workers))
		seen[seq] = true
	}
	assert.Len(t, seen, workers)
}

func TestProjectMemberRole(t *testing.T) {
	db := newTestDB(t)
	project := seedProject(t, db)

	role, err := ProjectMemberRole(db, project.ID, project.LeadID)
	require.NoError(t, err)
	assert.Empty(t, role, "lead is not a member until added")

	member := ProjectMember{ProjectID: project.ID, UserID: project.LeadID, Role: RoleProjectAdmin}
	require.NoError(t, db.Create(&member).Error)

	role, err = ProjectMemberRole(db, project.ID, project.LeadID)
	require.NoError(t, err)
	assert.Equal(t, RoleProjectAdmin, role)

	ok, err := IsProjectMember(db, project.ID, project.LeadID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsProjectMember(db, project.ID, 9999)
	require.NoError(t, err)
	assert.False(t, ok)
}
