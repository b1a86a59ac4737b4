package migration

import (
	"testing"

	"github.com/orgforge/orgforge/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoSchemaCreatesAllTables(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, AutoSchema(conn))

	for _, table := range []string{
		"users",
		"organizations",
		"organization_settings",
		"memberships",
		"profiles",
		"invitations",
	} {
		assert.True(t, conn.Migrator().HasTable(table), "missing table %s", table)
	}
}
