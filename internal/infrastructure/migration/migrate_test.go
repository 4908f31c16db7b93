package migration

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_Embedded(t *testing.T) {
	names, err := List(Embedded())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"000001_crm_read_tables",
		"000002_commission_ledger",
		"000003_ledger_append_only",
	}, names)
}

func TestList(t *testing.T) {
	tests := []struct {
		name    string
		fsys    fstest.MapFS
		want    []string
		wantErr bool
	}{
		{
			name: "sorted by version",
			fsys: fstest.MapFS{
				"000002_b.up.sql":   {},
				"000002_b.down.sql": {},
				"000001_a.up.sql":   {},
				"000001_a.down.sql": {},
				"README.md":         {},
			},
			want: []string{"000001_a", "000002_b"},
		},
		{
			name: "missing down file",
			fsys: fstest.MapFS{
				"000001_a.up.sql": {},
			},
			wantErr: true,
		},
		{
			name: "empty",
			fsys: fstest.MapFS{},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := List(tt.fsys)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// The unique indexes below carry the ledger's idempotency guarantees and
// must match the names the GORM models declare.
func TestEmbedded_LedgerConstraints(t *testing.T) {
	up, err := fs.ReadFile(Embedded(), "000002_commission_ledger.up.sql")
	require.NoError(t, err)
	sql := string(up)

	for _, want := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_accrual_key",
		"ON commission_ledger_entries(opportunity_id, idempotency_key, seller_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_commission_ledger_entries_exclusive_key",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_bonus_award_period",
		"ON commission_bonus_awards(bonus_rule_id, seller_id, period_start)",
	} {
		assert.Contains(t, sql, want)
	}
}
